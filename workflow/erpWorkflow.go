package workflow

import (
	"context"
	"fmt"
	"strconv"

	"bitbucket.org/mmdatafocus/production_backend/fakturownia"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/odoo"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RegisterMonthInErp creates the month, its RWs, docs and positions in the ERP.
// Records that already carry an ERP id are left alone, so a failed run can be resumed.
// Every new id is stored right after the remote create.
func (r *Runner) RegisterMonthInErp(ctx context.Context, monthId int, report *StepReport) error {
	db := r.DB.WithContext(ctx)
	month, err := models.LoadMonthGraph(db, monthId)
	if err != nil {
		return err
	}

	if month.OdooId == nil {
		id, err := r.Erp.CreateMonth(ctx, month.String())
		if err != nil {
			return err
		}
		if err := db.Model(month).Update("odoo_id", id).Error; err != nil {
			return err
		}
		month.OdooId = &id
		models.InvalidateMonthListCache(ctx)
		report.count("months")
	}

	rwsById := map[int]*models.RW{}
	for _, rw := range month.Rws {
		rwsById[rw.ID] = rw
		if rw.OdooId != nil {
			continue
		}
		if err := r.registerRw(ctx, db, rw, report); err != nil {
			return err
		}
	}

	for _, doc := range month.ProductionDocs {
		if err := doc.RequireState(models.ProductionStateClassified); err != nil {
			report.warn("production_doc", doc.OrderNumber, issueInvalidState, err.Error(), nil)
			continue
		}
		if doc.OdooId == nil {
			var rwOdooId *int64
			if doc.RwId != nil {
				if rw, ok := rwsById[*doc.RwId]; ok {
					rwOdooId = rw.OdooId
				}
			}
			id, err := r.Erp.CreateProductionDoc(ctx, odoo.ProductionDocRecord{
				OrderNumber:   doc.OrderNumber,
				FirstSaleDate: doc.FirstSaleDate(),
				MonthOdooId:   *month.OdooId,
				DoNotProduce:  doc.DoNotProduce,
				RwOdooId:      rwOdooId,
			})
			if err != nil {
				return err
			}
			if err := db.Model(doc).Update("odoo_id", id).Error; err != nil {
				return err
			}
			doc.OdooId = &id
			report.count("production_docs")
		}

		for _, position := range doc.ProductionPositions {
			if position.OdooId != nil {
				continue
			}
			id, err := r.Erp.CreateProductionPosition(ctx, r.positionRecord(*doc.OdooId, position))
			if err != nil {
				return err
			}
			if err := db.Model(position).Update("odoo_id", id).Error; err != nil {
				return err
			}
			position.OdooId = &id
			report.count("production_positions")
		}
	}
	return nil
}

func (r *Runner) rwRecord(rw *models.RW) odoo.RwRecord {
	return odoo.RwRecord{
		Number:        rw.Number,
		IssueDate:     rw.IssueDate,
		Description:   rw.DescriptionText(),
		LinkURL:       rw.Link(r.Options.InvoicingBaseURL),
		FakturowniaId: rw.FakturowniaId,
	}
}

func (r *Runner) registerRw(ctx context.Context, db *gorm.DB, rw *models.RW, report *StepReport) error {
	id, err := r.Erp.CreateRw(ctx, r.rwRecord(rw))
	if err != nil {
		return err
	}
	if err := db.Model(rw).Update("odoo_id", id).Error; err != nil {
		return err
	}
	rw.OdooId = &id
	report.count("rws")
	return nil
}

func (r *Runner) positionRecord(docOdooId int64, position *models.ProductionPosition) odoo.ProductionPositionRecord {
	record := odoo.ProductionPositionRecord{
		Name:             position.ProductName(),
		DocOdooId:        docOdooId,
		Quantity:         position.Quantity(),
		SalesValue:       position.SalesValue(),
		Balance:          position.Balance,
		ProducedQuantity: position.ProdQuantity(),
		DoNotProduce:     position.DoNotProduce,
	}
	if position.Product != nil {
		record.ProductFakturowniaId = position.Product.FakturowniaId
		record.LinkURL = position.Product.Link(r.Options.InvoicingBaseURL)
	}
	return record
}

// CheckProductionStatus pulls the operators' decisions back from the ERP, numbers and
// dates the docs to produce and makes sure each of them has an RW in all three systems.
func (r *Runner) CheckProductionStatus(ctx context.Context, monthId int, report *StepReport) error {
	db := r.DB.WithContext(ctx)
	month, err := models.LoadMonthGraph(db, monthId)
	if err != nil {
		return err
	}

	checkedAt := r.now()
	var refreshed []*models.ProductionDoc
	for _, doc := range month.ProductionDocs {
		if doc.OdooId == nil {
			report.warn("production_doc", doc.OrderNumber, issueMissingErpId, fmt.Sprintf("doc %s is not registered in the ERP", doc.OrderNumber), nil)
			continue
		}
		if err := r.refreshDocStatus(ctx, db, doc, report); err != nil {
			return err
		}
		if err := db.Model(doc).Update("status_checked_at", checkedAt).Error; err != nil {
			return err
		}
		doc.StatusCheckedAt = &checkedAt
		refreshed = append(refreshed, doc)
	}

	produced := producedInSaleOrder(month, refreshed)
	NumberProductionDocs(month, produced)
	for _, doc := range produced {
		if doc.RwDate == nil {
			report.warn("production_doc", doc.OrderNumber, issueMissingSaleDate, fmt.Sprintf("doc %s has no sale date, rw date left empty", doc.OrderNumber), nil)
		}
		if err := db.Model(doc).Updates(map[string]interface{}{
			"number":  doc.Number,
			"rw_date": doc.RwDate,
		}).Error; err != nil {
			return err
		}
		if doc.Rw != nil {
			if err := db.Model(doc.Rw).Updates(map[string]interface{}{
				"number":     doc.Rw.Number,
				"issue_date": doc.Rw.IssueDate,
			}).Error; err != nil {
				return err
			}
		}
		report.count("docs_numbered")
	}

	for _, doc := range produced {
		if err := r.issueRw(ctx, db, month, doc, report); err != nil {
			return err
		}
	}
	return nil
}

// producedInSaleOrder keeps the month's sale-date order but only the refreshed docs to produce.
func producedInSaleOrder(month *models.Month, refreshed []*models.ProductionDoc) []*models.ProductionDoc {
	keep := make(map[int]struct{}, len(refreshed))
	for _, doc := range refreshed {
		keep[doc.ID] = struct{}{}
	}
	var produced []*models.ProductionDoc
	for _, doc := range month.ProducedDocs() {
		if _, ok := keep[doc.ID]; ok {
			produced = append(produced, doc)
		}
	}
	return produced
}

func (r *Runner) refreshDocStatus(ctx context.Context, db *gorm.DB, doc *models.ProductionDoc, report *StepReport) error {
	status, err := r.Erp.GetProductionStatus(ctx, *doc.OdooId)
	if err != nil {
		return err
	}
	doc.DoNotProduce = status.DoNotProduce
	doc.OrderName = status.OrderName
	if err := db.Model(doc).Updates(map[string]interface{}{
		"do_not_produce": doc.DoNotProduce,
		"order_name":     doc.OrderName,
	}).Error; err != nil {
		return err
	}

	for _, position := range doc.ProductionPositions {
		if position.OdooId == nil {
			report.warn("production_position", strconv.Itoa(position.ID), issueMissingErpId,
				fmt.Sprintf("position %s of doc %s is not registered in the ERP", position.ProductName(), doc.OrderNumber), nil)
			continue
		}
		positionStatus, err := r.Erp.GetProductionPositionStatus(ctx, *position.OdooId)
		if err != nil {
			return err
		}
		position.DoNotProduce = positionStatus.DoNotProduce
		position.FinalQuantity = positionStatus.FinalQuantity
		position.UnitPrice = decimal.Zero
		if positionStatus.UnitPrice.Valid {
			position.UnitPrice = positionStatus.UnitPrice.Decimal.Round(2)
		}
		if err := db.Model(position).Updates(map[string]interface{}{
			"do_not_produce": position.DoNotProduce,
			"final_quantity": position.FinalQuantity,
			"unit_price":     position.UnitPrice,
		}).Error; err != nil {
			return err
		}
	}
	report.count("docs_refreshed")
	return nil
}

// issueRw makes sure a produced doc has an RW locally, in the invoicing service and
// in the ERP. Missing pieces are created; existing ones get the new number and date.
func (r *Runner) issueRw(ctx context.Context, db *gorm.DB, month *models.Month, doc *models.ProductionDoc, report *StepReport) error {
	if doc.Rw == nil {
		description := models.RwDescriptionFor(doc)
		rw := models.RW{
			Number:      doc.NumberText(),
			Description: &description,
			MonthId:     &month.ID,
		}
		if doc.RwDate != nil {
			rw.IssueDate = utils.FormatDate(*doc.RwDate)
		}
		if err := db.Create(&rw).Error; err != nil {
			return err
		}
		if err := db.Model(doc).Update("rw_id", rw.ID).Error; err != nil {
			return err
		}
		doc.RwId = &rw.ID
		doc.Rw = &rw
		report.count("rws_created")
	}
	rw := doc.Rw

	if rw.FakturowniaId == nil {
		id, err := r.Invoicing.CreateWarehouseIssue(ctx, fakturownia.NewWarehouseIssue{
			Number:      rw.Number,
			IssueDate:   rw.IssueDate,
			Description: rw.DescriptionText(),
		})
		if err != nil {
			return err
		}
		if err := db.Model(rw).Update("fakturownia_id", id).Error; err != nil {
			return err
		}
		rw.FakturowniaId = &id
		report.count("rws_issued")
	} else if r.Options.UpdateInvoicingRw {
		if err := r.Invoicing.UpdateWarehouseIssue(ctx, *rw.FakturowniaId, rw.Number, rw.IssueDate); err != nil {
			return err
		}
		report.count("rws_renumbered")
	}

	if rw.OdooId == nil {
		if err := r.registerRw(ctx, db, rw, report); err != nil {
			return err
		}
		return r.Erp.Update(ctx, odoo.ModelProductionDocs, *doc.OdooId, odoo.DocRwFields(*rw.OdooId))
	}
	return r.Erp.Update(ctx, odoo.ModelRw, *rw.OdooId, odoo.RwHeaderFields(rw.Number, rw.IssueDate))
}
