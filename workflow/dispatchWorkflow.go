package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"bitbucket.org/mmdatafocus/production_backend/fakturownia"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
)

const goodsReceivedDescriptionPrefix = "Przyjęcie wyrobów z produkcji "

// BuildGoodsReceivedDoc turns a valued doc into a PW: one line per produced position
// with its received quantity. The unit price is the ERP's price when set, otherwise
// the allocated raw-material cost per unit.
func BuildGoodsReceivedDoc(month *models.Month, doc *models.ProductionDoc) fakturownia.GoodsReceivedDoc {
	issueDate := month.DateFrom()
	if doc.RwDate != nil {
		issueDate = *doc.RwDate
	}
	pw := fakturownia.GoodsReceivedDoc{
		Number:      doc.NumberText(),
		IssueDate:   utils.FormatDate(issueDate),
		Description: goodsReceivedDescriptionPrefix + doc.String(),
	}
	for _, position := range doc.ProducedPositions() {
		quantity := position.ReceivedQuantity()
		if quantity <= 0 || position.Product == nil {
			continue
		}
		unitPrice := position.UnitPrice
		if unitPrice.IsZero() {
			unitPrice = position.RawMaterialsValue.Div(decimal.NewFromInt(quantity)).Round(2)
		}
		pw.Positions = append(pw.Positions, fakturownia.GoodsReceivedPosition{
			ProductId: position.Product.FakturowniaId,
			UnitPrice: unitPrice,
			Quantity:  quantity,
		})
	}
	return pw
}

// DispatchGoodsReceived books a PW for every valued doc that has none yet.
func (r *Runner) DispatchGoodsReceived(ctx context.Context, monthId int, report *StepReport) error {
	db := r.DB.WithContext(ctx)
	month, err := models.LoadMonthGraph(db, monthId)
	if err != nil {
		return err
	}

	for _, doc := range month.ProducedDocs() {
		if doc.PwFakturowniaId != nil {
			report.Stats["already_dispatched"]++
			continue
		}
		if err := doc.RequireState(models.ProductionStateValued); err != nil {
			report.warn("production_doc", doc.OrderNumber, issueInvalidState, err.Error(), nil)
			continue
		}

		pw := BuildGoodsReceivedDoc(month, doc)
		if len(pw.Positions) == 0 {
			report.warn("production_doc", doc.OrderNumber, issueNothingToDispatch, fmt.Sprintf("doc %s has no quantity to receive", doc.OrderNumber), nil)
			continue
		}
		payload, err := json.Marshal(pw)
		if err != nil {
			return err
		}

		id, err := r.Invoicing.CreateGoodsReceivedDoc(ctx, pw)
		if err != nil {
			return err
		}
		if err := db.Model(doc).Updates(map[string]interface{}{
			"pw_fakturownia_id":   id,
			"pw_fakturownia_json": payload,
		}).Error; err != nil {
			return err
		}
		doc.PwFakturowniaId = &id
		doc.PwFakturowniaJSON = payload
		report.count("pw_created")

		if r.Options.ArchivePw && r.Archive != nil {
			objectName := utils.ArchiveObjectName(month.Year, month.Month, doc.NumberText())
			if err := r.Archive(ctx, objectName, payload); err != nil {
				report.warn("production_doc", doc.OrderNumber, issueArchiveFailed, fmt.Sprintf("archive PW %s: %v", doc.NumberText(), err), nil)
			}
		}
	}
	return nil
}
