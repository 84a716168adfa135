package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RW is a raw-material issue document. Its value is the cost basis split across production positions.
type RW struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	FakturowniaId *int64              `gorm:"uniqueIndex" json:"fakturownia_id"`
	Number        string              `gorm:"size:16" json:"number"`
	IssueDate     string              `gorm:"size:10" json:"issue_date"`
	Description   *string             `gorm:"size:255" json:"description"`
	MonthId       *int                `gorm:"index" json:"month_id"`
	OdooId        *int64              `gorm:"uniqueIndex" json:"odoo_id"`
	Value         decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"value"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RW) TableName() string {
	return "rws"
}

func (r *RW) Link(baseURL string) string {
	if r.FakturowniaId == nil {
		return ""
	}
	return fmt.Sprintf("%s/warehouse_documents/%d", strings.TrimRight(baseURL, "/"), *r.FakturowniaId)
}

func (r *RW) String() string {
	return r.Number
}

// DescriptionText returns the description or an empty string.
func (r *RW) DescriptionText() string {
	if r.Description == nil {
		return ""
	}
	return *r.Description
}

// KnownValue is the RW value, zero while it has not been fetched.
func (r *RW) KnownValue() decimal.Decimal {
	if !r.Value.Valid {
		return decimal.Zero
	}
	return r.Value.Decimal
}

// RwDescriptionFor is the description of an RW generated for a production doc.
func RwDescriptionFor(doc *ProductionDoc) string {
	return "Wydanie surowców do " + doc.String()
}
