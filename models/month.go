package models

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"gorm.io/gorm"
)

const (
	monthListCacheKey = "MonthList"
	monthListCacheTTL = time.Hour
)

const (
	MinMonthYear = 2021
	MaxMonthYear = 2099
)

// Month is a production/sales period. Operators create months before importing.
type Month struct {
	ID             int              `gorm:"primary_key" json:"id"`
	Year           int              `gorm:"not null;uniqueIndex:idx_month_period,priority:1" json:"year"`
	Month          int              `gorm:"not null;uniqueIndex:idx_month_period,priority:2" json:"month"`
	OdooId         *int64           `gorm:"uniqueIndex" json:"odoo_id"`
	Invoices       []*Invoice       `gorm:"foreignKey:MonthId;constraint:OnDelete:CASCADE" json:"invoices,omitempty"`
	Rws            []*RW            `gorm:"foreignKey:MonthId;constraint:OnDelete:CASCADE" json:"rws,omitempty"`
	ProductionDocs []*ProductionDoc `gorm:"foreignKey:MonthId;constraint:OnDelete:CASCADE" json:"production_docs,omitempty"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMonth struct {
	Year  int `json:"year" binding:"required,gte=2021,lte=2099"`
	Month int `json:"month" binding:"required,gte=1,lte=12"`
}

// DefaultNewMonth proposes the month that was current 30 days before now.
func DefaultNewMonth(now time.Time) NewMonth {
	monthAgo := now.AddDate(0, 0, -30)
	return NewMonth{Year: monthAgo.Year(), Month: int(monthAgo.Month())}
}

func (input *NewMonth) validate() error {
	if input.Year < MinMonthYear || input.Year > MaxMonthYear {
		return fmt.Errorf("%w: year must be between %d and %d", ErrInvalidMonth, MinMonthYear, MaxMonthYear)
	}
	if input.Month < 1 || input.Month > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidMonth)
	}
	return nil
}

// DateFrom is the first day of the month.
func (m *Month) DateFrom() time.Time {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
}

// DateTo is the last day of the month.
func (m *Month) DateTo() time.Time {
	return utils.EndOfMonth(m.DateFrom())
}

func (m *Month) String() string {
	return fmt.Sprintf("%02d.%d", m.Month, m.Year)
}

// ShortYear is the two digit year used in production numbers.
func (m *Month) ShortYear() string {
	year := strconv.Itoa(m.Year)
	if len(year) < 2 {
		return fmt.Sprintf("%02d", m.Year)
	}
	return year[len(year)-2:]
}

// ProductionDocsBySaleDate returns the docs ordered by ascending first sale date.
// Docs without a sale date come last; ties keep store order.
func (m *Month) ProductionDocsBySaleDate() []*ProductionDoc {
	docs := make([]*ProductionDoc, len(m.ProductionDocs))
	copy(docs, m.ProductionDocs)
	sort.SliceStable(docs, func(i, j int) bool {
		di, dj := docs[i].FirstSaleDate(), docs[j].FirstSaleDate()
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})
	return docs
}

// ProducedDocs are the docs ordered by sale date that still require production.
func (m *Month) ProducedDocs() []*ProductionDoc {
	var produced []*ProductionDoc
	for _, doc := range m.ProductionDocsBySaleDate() {
		if !doc.DoNotProduce {
			produced = append(produced, doc)
		}
	}
	return produced
}

func CreateMonth(ctx context.Context, input *NewMonth) (*Month, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	month := Month{
		Year:  input.Year,
		Month: input.Month,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&month).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("month %s already exists: %w", month.String(), ErrDuplicate)
		}
		return nil, err
	}
	InvalidateMonthListCache(ctx)
	return &month, nil
}

// ListMonths is served from Redis when cached; CreateMonth drops the cached list.
func ListMonths(ctx context.Context) ([]*Month, error) {
	var months []*Month
	if exists, err := config.GetRedisObject(ctx, monthListCacheKey, &months); err == nil && exists {
		return months, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Order("year DESC, month DESC").Find(&months).Error; err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(ctx, monthListCacheKey, months, monthListCacheTTL); err != nil {
		config.LogError(config.GetLogger(), "Month", "ListMonths", "SetRedisObject", monthListCacheKey, err)
	}
	return months, nil
}

func InvalidateMonthListCache(ctx context.Context) {
	if err := config.RemoveRedisKey(ctx, monthListCacheKey); err != nil {
		config.LogError(config.GetLogger(), "Month", "InvalidateMonthListCache", "RemoveRedisKey", monthListCacheKey, err)
	}
}

// LoadMonthGraph loads the month with everything the reconciliation engine reads:
// docs with their RW, positions, products, invoice positions and invoices.
func LoadMonthGraph(tx *gorm.DB, monthId int) (*Month, error) {
	byId := func(db *gorm.DB) *gorm.DB { return db.Order("id") }

	var month Month
	err := tx.
		Preload("Rws", byId).
		Preload("ProductionDocs", byId).
		Preload("ProductionDocs.Rw").
		Preload("ProductionDocs.ProductionPositions", byId).
		Preload("ProductionDocs.ProductionPositions.Product").
		Preload("ProductionDocs.ProductionPositions.InvoicePositions", byId).
		Preload("ProductionDocs.ProductionPositions.InvoicePositions.Invoice").
		Where("id = ?", monthId).
		Take(&month).Error
	if err != nil {
		return nil, err
	}
	return &month, nil
}
