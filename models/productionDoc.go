package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductionDoc is one customer order's production record for a month.
// (month_id, order_number) is unique.
type ProductionDoc struct {
	ID                  int                   `gorm:"primary_key" json:"id"`
	MonthId             int                   `gorm:"not null;uniqueIndex:idx_doc_month_order,priority:1" json:"month_id"`
	OrderNumber         string                `gorm:"size:32;not null;uniqueIndex:idx_doc_month_order,priority:2" json:"order_number"`
	OrderName           *string               `gorm:"size:128" json:"order_name"`
	RwId                *int                  `gorm:"index" json:"rw_id"`
	Rw                  *RW                   `gorm:"foreignKey:RwId;constraint:OnDelete:SET NULL" json:"rw,omitempty"`
	OdooId              *int64                `gorm:"uniqueIndex" json:"odoo_id"`
	DoNotProduce        bool                  `gorm:"not null;default:false" json:"do_not_produce"`
	Number              *string               `gorm:"size:16" json:"number"`
	RwDate              *time.Time            `gorm:"type:date" json:"rw_date"`
	PwFakturowniaId     *int64                `gorm:"uniqueIndex" json:"pw_fakturownia_id"`
	PwFakturowniaJSON   []byte                `gorm:"type:json" json:"pw_fakturownia_json"`
	ClassifiedAt        *time.Time            `json:"classified_at"`
	StatusCheckedAt     *time.Time            `json:"status_checked_at"`
	ValuedAt            *time.Time            `json:"valued_at"`
	ProductionPositions []*ProductionPosition `gorm:"foreignKey:ProductionDocId;constraint:OnDelete:CASCADE" json:"positions,omitempty"`
	CreatedAt           time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProducedPositions keeps store order, which the allocation relies on.
func (d *ProductionDoc) ProducedPositions() []*ProductionPosition {
	var produced []*ProductionPosition
	for _, p := range d.ProductionPositions {
		if !p.DoNotProduce {
			produced = append(produced, p)
		}
	}
	return produced
}

// FirstSaleDate is the earliest sale date over all positions; nil means "no sale date yet".
func (d *ProductionDoc) FirstSaleDate() *time.Time {
	var first *time.Time
	for _, p := range d.ProductionPositions {
		date := p.FirstSaleDate()
		if date == nil {
			continue
		}
		if first == nil || date.Before(*first) {
			first = date
		}
	}
	return first
}

// SaleValue sums value_pln over positions that require production.
func (d *ProductionDoc) SaleValue() decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.ProducedPositions() {
		total = total.Add(p.ValuePln())
	}
	return total
}

func (d *ProductionDoc) Currency() string {
	if len(d.ProductionPositions) == 0 {
		return ""
	}
	return d.ProductionPositions[0].Currency()
}

// AllocatedRawMaterials sums the raw-material value written to produced positions.
func (d *ProductionDoc) AllocatedRawMaterials() decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.ProducedPositions() {
		total = total.Add(p.RawMaterialsValue)
	}
	return total
}

// SetDoNotProduce is true iff every position is do-not-produce (true for an empty doc).
func (d *ProductionDoc) SetDoNotProduce() {
	for _, p := range d.ProductionPositions {
		if !p.DoNotProduce {
			d.DoNotProduce = false
			return
		}
	}
	d.DoNotProduce = true
}

func (d *ProductionDoc) NumberText() string {
	if d.Number == nil {
		return ""
	}
	return *d.Number
}

func (d *ProductionDoc) OdooLink(baseURL string) string {
	if d.OdooId == nil {
		return ""
	}
	return fmt.Sprintf("%s/web#id=%d&model=x_production_docs&view_type=form", strings.TrimRight(baseURL, "/"), *d.OdooId)
}

func (d *ProductionDoc) String() string {
	if d.OrderName != nil && *d.OrderName != "" {
		return *d.OrderName
	}
	return d.OrderNumber
}
