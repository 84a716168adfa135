package models

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Product mirrors a catalog entry of the invoicing service.
type Product struct {
	ID            int    `gorm:"primary_key" json:"id"`
	Name          string `gorm:"size:255;not null" json:"name"`
	FakturowniaId int64  `gorm:"uniqueIndex;not null" json:"fakturownia_id"`
}

func (p *Product) Link(baseURL string) string {
	return fmt.Sprintf("%s/products/%d", strings.TrimRight(baseURL, "/"), p.FakturowniaId)
}

func (p *Product) String() string {
	return p.Name
}

// UpsertProduct returns the product with the given external id, creating it on first encounter.
// The stored name is kept; the invoicing service is the source of truth only at creation.
func UpsertProduct(tx *gorm.DB, fakturowniaId int64, name string) (*Product, error) {
	var product Product
	err := tx.Where("fakturownia_id = ?", fakturowniaId).Take(&product).Error
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	product = Product{Name: name, FakturowniaId: fakturowniaId}
	if err := tx.Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
