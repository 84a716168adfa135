package workflow

import (
	"bitbucket.org/mmdatafocus/production_backend/models"
)

// ClassifyProductionDoc re-evaluates every position from its product name and
// balance snapshot, then the doc flag from its positions. Running it twice gives the same flags.
func ClassifyProductionDoc(doc *models.ProductionDoc) {
	for _, position := range doc.ProductionPositions {
		position.SetDoNotProduce()
	}
	doc.SetDoNotProduce()
}
