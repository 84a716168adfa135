package workflow

import (
	"strings"

	"bitbucket.org/mmdatafocus/production_backend/models"
)

// RwMatch is the outcome of matching one RW description against the month's docs.
type RwMatch struct {
	Doc *models.ProductionDoc
	// Others are further docs whose order number also occurs in the description.
	Others []*models.ProductionDoc
}

func (m RwMatch) Ambiguous() bool {
	return len(m.Others) > 0
}

// MatchRwToDoc scans docs in the given (store) order and picks the first one whose
// order number is a substring of the RW description.
func MatchRwToDoc(rw *models.RW, docs []*models.ProductionDoc) RwMatch {
	description := rw.DescriptionText()
	var match RwMatch
	if description == "" {
		return match
	}
	for _, doc := range docs {
		if doc.OrderNumber == "" || !strings.Contains(description, doc.OrderNumber) {
			continue
		}
		if match.Doc == nil {
			match.Doc = doc
		} else {
			match.Others = append(match.Others, doc)
		}
	}
	return match
}
