package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"bitbucket.org/mmdatafocus/production_backend/fakturownia"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/odoo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UpdateRwValues fetches the purchase cost of each produced doc's RW and splits it
// over the doc's produced positions. Allocations are recomputed from scratch on
// every run and overwrite earlier values.
func (r *Runner) UpdateRwValues(ctx context.Context, monthId int, report *StepReport) error {
	db := r.DB.WithContext(ctx)
	month, err := models.LoadMonthGraph(db, monthId)
	if err != nil {
		return err
	}

	valuedAt := r.now()
	for _, doc := range month.ProducedDocs() {
		if doc.Rw == nil || doc.Rw.FakturowniaId == nil {
			report.warn("production_doc", doc.OrderNumber, issueMissingRw, fmt.Sprintf("doc %s has no issued RW", doc.OrderNumber), nil)
			continue
		}

		value, err := r.Invoicing.GetWarehouseIssueValue(ctx, *doc.Rw.FakturowniaId)
		found := true
		if errors.Is(err, fakturownia.ErrNotFound) {
			report.warn("rw", strconv.FormatInt(*doc.Rw.FakturowniaId, 10), issueRwNotFound,
				fmt.Sprintf("RW %s of doc %s not found in the invoicing service, value 0", doc.Rw.Number, doc.OrderNumber), nil)
			value = decimal.Zero
			found = false
		} else if err != nil {
			return err
		}

		doc.Rw.Value = decimal.NewNullDecimal(value.Round(2))
		if err := db.Model(doc.Rw).Update("value", doc.Rw.Value).Error; err != nil {
			return err
		}
		report.count("rws_valued")

		if err := r.applyAllocations(ctx, db, doc, AllocateRawMaterials(doc, value), report); err != nil {
			return err
		}
		if !found {
			continue
		}
		if err := db.Model(doc).Update("valued_at", valuedAt).Error; err != nil {
			return err
		}
		doc.ValuedAt = &valuedAt
	}
	return nil
}

func (r *Runner) applyAllocations(ctx context.Context, db *gorm.DB, doc *models.ProductionDoc, allocations []Allocation, report *StepReport) error {
	for _, allocation := range allocations {
		position := allocation.Position
		position.RawMaterialsValue = allocation.Value
		if err := db.Model(position).Update("raw_materials_value", allocation.Value).Error; err != nil {
			return err
		}
		report.count("positions_allocated")

		if allocation.Value.IsZero() {
			continue
		}
		if position.OdooId == nil {
			report.warn("production_position", strconv.Itoa(position.ID), issueMissingErpId,
				fmt.Sprintf("position %s of doc %s is not registered in the ERP, allocation kept locally", position.ProductName(), doc.OrderNumber), nil)
			continue
		}
		if err := r.Erp.Update(ctx, odoo.ModelProductionPositions, *position.OdooId, odoo.RawMaterialsValueFields(allocation.Value)); err != nil {
			return err
		}
	}
	return nil
}
