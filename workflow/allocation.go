package workflow

import (
	"bitbucket.org/mmdatafocus/production_backend/models"
	"github.com/shopspring/decimal"
)

// Allocation is the raw-material value assigned to one produced position.
type Allocation struct {
	Position *models.ProductionPosition
	Value    decimal.Decimal
}

// AllocateRawMaterials splits value over the produced positions proportionally to
// their share of the doc's sale value. Every position but the last gets its share
// rounded to cents; the last takes what is left so the parts add up to round(value, 2).
// It returns nil when value is zero or nothing is produced.
func AllocateRawMaterials(doc *models.ProductionDoc, value decimal.Decimal) []Allocation {
	value = value.Round(2)
	positions := doc.ProducedPositions()
	if value.IsZero() || len(positions) == 0 {
		return nil
	}

	saleValue := doc.SaleValue()
	valueLeft := value
	allocations := make([]Allocation, 0, len(positions))
	for i, position := range positions {
		var allocated decimal.Decimal
		if i == len(positions)-1 {
			allocated = valueLeft
		} else {
			allocated = position.SalesFraction(saleValue).Mul(value).Round(2)
			valueLeft = valueLeft.Sub(allocated)
		}
		allocations = append(allocations, Allocation{Position: position, Value: allocated})
	}
	return allocations
}
