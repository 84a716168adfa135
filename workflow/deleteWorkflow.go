package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/production_backend/models"
	"gorm.io/gorm"
)

// DeleteMonthDocuments removes the month's invoices, production docs and RWs
// (with their positions) so the month can be imported from scratch.
// Products and the month itself stay.
func (r *Runner) DeleteMonthDocuments(ctx context.Context, monthId int, report *StepReport) error {
	db := r.DB.WithContext(ctx)
	if _, err := loadMonth(db, monthId); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		invoiceIds := tx.Model(&models.Invoice{}).Select("id").Where("month_id = ?", monthId)
		docIds := tx.Model(&models.ProductionDoc{}).Select("id").Where("month_id = ?", monthId)

		steps := []struct {
			stat  string
			query *gorm.DB
			model interface{}
		}{
			{"invoice_positions", tx.Where("invoice_id IN (?)", invoiceIds), &models.InvoicePosition{}},
			{"invoices", tx.Where("month_id = ?", monthId), &models.Invoice{}},
			{"production_positions", tx.Where("production_doc_id IN (?)", docIds), &models.ProductionPosition{}},
			{"production_docs", tx.Where("month_id = ?", monthId), &models.ProductionDoc{}},
			{"rws", tx.Where("month_id = ?", monthId), &models.RW{}},
		}
		for _, step := range steps {
			res := step.query.Delete(step.model)
			if res.Error != nil {
				return res.Error
			}
			report.Stats[step.stat] = int(res.RowsAffected)
			report.Records += int(res.RowsAffected)
		}
		return nil
	})
}
