package workflow

import (
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/utils"
)

// ProductionNumber renders YY/MM/NN for the n-th (1-based) produced doc of the month.
func ProductionNumber(month *models.Month, n int) string {
	return fmt.Sprintf("%s/%02d/%02d", month.ShortYear(), month.Month, n)
}

// RwDateFor backdates the raw-material issue a week before the first sale,
// but never before the first day of the sale's month.
func RwDateFor(firstSale time.Time) time.Time {
	if firstSale.Day() > 7 {
		return firstSale.AddDate(0, 0, -7)
	}
	return utils.StartOfMonth(firstSale)
}

// NumberProductionDocs numbers docs in the order given and dates them from their
// first sale. Docs without a sale date get a number but keep rw_date unset.
// An attached RW takes over number and issue date.
func NumberProductionDocs(month *models.Month, docs []*models.ProductionDoc) {
	for i, doc := range docs {
		number := ProductionNumber(month, i+1)
		doc.Number = &number

		doc.RwDate = nil
		if firstSale := doc.FirstSaleDate(); firstSale != nil {
			rwDate := RwDateFor(*firstSale)
			doc.RwDate = &rwDate
		}

		if doc.Rw != nil {
			doc.Rw.Number = number
			if doc.RwDate != nil {
				doc.Rw.IssueDate = utils.FormatDate(*doc.RwDate)
			}
		}
	}
}
