package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product names containing one of these never require production:
// transport fees and settlement/advance-payment lines.
var doNotProduceNameMarkers = []string{"transport", "rozliczenie", "zaliczk"}

// ProductionPosition is one product to manufacture for one production doc.
type ProductionPosition struct {
	ID                int                `gorm:"primary_key" json:"id"`
	ProductionDocId   int                `gorm:"not null;uniqueIndex:idx_position_doc_product,priority:1" json:"production_doc_id"`
	ProductId         int                `gorm:"not null;uniqueIndex:idx_position_doc_product,priority:2" json:"product_id"`
	Product           *Product           `gorm:"foreignKey:ProductId;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	Balance           decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`
	RawMaterialsValue decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"raw_materials_value"`
	FinalQuantity     *int               `json:"final_quantity"`
	UnitPrice         decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"unit_price"`
	DoNotProduce      bool               `gorm:"not null;default:false" json:"do_not_produce"`
	OdooId            *int64             `gorm:"uniqueIndex" json:"odoo_id"`
	InvoicePositions  []*InvoicePosition `gorm:"foreignKey:ProductionPositionId;constraint:OnDelete:SET NULL" json:"invoice_positions,omitempty"`
	CreatedAt         time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsDoNotProduce applies the classification rule to a product name and a stock balance.
// Non-negative stock means nothing was consumed from inventory, so nothing has to be made.
func IsDoNotProduce(productName string, balance decimal.Decimal) bool {
	name := strings.ToLower(productName)
	for _, marker := range doNotProduceNameMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return !balance.IsNegative()
}

func (p *ProductionPosition) ProductName() string {
	if p.Product == nil {
		return ""
	}
	return p.Product.Name
}

// SetDoNotProduce re-evaluates the flag from the current product name and balance.
func (p *ProductionPosition) SetDoNotProduce() {
	p.DoNotProduce = IsDoNotProduce(p.ProductName(), p.Balance)
}

// Quantity is the sold quantity over all linked invoice lines.
func (p *ProductionPosition) Quantity() decimal.Decimal {
	total := decimal.Zero
	for _, ip := range p.InvoicePositions {
		total = total.Add(ip.Quantity)
	}
	return total
}

// SalesValue is the net sales value in invoice currency.
func (p *ProductionPosition) SalesValue() decimal.Decimal {
	total := decimal.Zero
	for _, ip := range p.InvoicePositions {
		total = total.Add(ip.TotalPrice)
	}
	return total
}

// FirstSaleDate is the earliest invoice date among linked lines, nil when none is known.
func (p *ProductionPosition) FirstSaleDate() *time.Time {
	var first *time.Time
	for _, ip := range p.InvoicePositions {
		d := ip.SaleDate()
		if d == nil {
			continue
		}
		if first == nil || d.Before(*first) {
			first = d
		}
	}
	return first
}

func (p *ProductionPosition) Currency() string {
	if len(p.InvoicePositions) == 0 {
		return ""
	}
	return p.InvoicePositions[0].Currency()
}

// ExchangeRate comes from the first linked invoice line, 1 without lines.
func (p *ProductionPosition) ExchangeRate() decimal.Decimal {
	if len(p.InvoicePositions) == 0 {
		return decimal.NewFromInt(1)
	}
	return p.InvoicePositions[0].ExchangeRate()
}

// ValuePln is the sales value converted with the stored exchange rate.
func (p *ProductionPosition) ValuePln() decimal.Decimal {
	return p.SalesValue().Mul(p.ExchangeRate())
}

// SalesFraction is the share of the doc's sale value; zero when the doc has no sale value.
func (p *ProductionPosition) SalesFraction(docSaleValue decimal.Decimal) decimal.Decimal {
	if docSaleValue.IsZero() {
		return decimal.Zero
	}
	return p.ValuePln().Div(docSaleValue)
}

// ProdQuantity is the consumed stock (negative balance) that has to be produced.
func (p *ProductionPosition) ProdQuantity() int64 {
	balance := p.Balance.IntPart()
	if balance < 0 {
		return -balance
	}
	return 0
}

// ReceivedQuantity is what goes into the goods-received document: the ERP's
// final quantity when reported, the consumed stock otherwise.
func (p *ProductionPosition) ReceivedQuantity() int64 {
	if p.FinalQuantity != nil {
		return int64(*p.FinalQuantity)
	}
	return p.ProdQuantity()
}

func (p *ProductionPosition) String() string {
	return p.ProductName()
}
