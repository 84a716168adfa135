package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a sales document imported from the invoicing service.
// Imported invoices are never edited; delete the month's documents and re-import instead.
type Invoice struct {
	ID               int                `gorm:"primary_key" json:"id"`
	FakturowniaId    int64              `gorm:"uniqueIndex;not null" json:"fakturownia_id"`
	Date             time.Time          `gorm:"type:date;not null" json:"date"`
	MonthId          int                `gorm:"index;not null" json:"month_id"`
	Number           string             `gorm:"size:32;not null" json:"number"`
	OrderId          string             `gorm:"size:32;index" json:"order_id"`
	Buyer            string             `gorm:"size:255" json:"buyer"`
	WarehouseId      int64              `gorm:"index" json:"warehouse_id"`
	Value            decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"value"`
	Currency         string             `gorm:"size:3" json:"currency"`
	ExchangeRate     decimal.Decimal    `gorm:"type:decimal(8,4);not null" json:"exchange_rate"`
	InvoicePositions []*InvoicePosition `gorm:"foreignKey:InvoiceId;constraint:OnDelete:CASCADE" json:"positions,omitempty"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

func (i *Invoice) Link(baseURL string) string {
	return fmt.Sprintf("%s/invoices/%d", strings.TrimRight(baseURL, "/"), i.FakturowniaId)
}

func (i *Invoice) String() string {
	return i.Number
}

// InvoicePosition is one line of an invoice; it may feed one production position.
type InvoicePosition struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	InvoiceId            int             `gorm:"index;not null" json:"invoice_id"`
	Invoice              *Invoice        `gorm:"foreignKey:InvoiceId" json:"-"`
	ProductId            int             `gorm:"index;not null" json:"product_id"`
	Product              *Product        `gorm:"foreignKey:ProductId;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	Quantity             decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"quantity"`
	Price                decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	TotalPrice           decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_price"`
	ProductionPositionId *int            `gorm:"index" json:"production_position_id"`
}

// NetTotal applies the line discount to the net total; a missing discount counts as zero.
func NetTotal(totalPriceNet decimal.Decimal, discount decimal.NullDecimal) decimal.Decimal {
	if !discount.Valid {
		return totalPriceNet
	}
	return totalPriceNet.Sub(discount.Decimal)
}

func (p *InvoicePosition) Currency() string {
	if p.Invoice == nil {
		return ""
	}
	return p.Invoice.Currency
}

// ExchangeRate passes the invoice rate through; 1 while the invoice is not loaded.
func (p *InvoicePosition) ExchangeRate() decimal.Decimal {
	if p.Invoice == nil {
		return decimal.NewFromInt(1)
	}
	return p.Invoice.ExchangeRate
}

// SaleDate is the parent invoice date, nil while the invoice is not loaded.
func (p *InvoicePosition) SaleDate() *time.Time {
	if p.Invoice == nil || p.Invoice.Date.IsZero() {
		return nil
	}
	d := p.Invoice.Date
	return &d
}
