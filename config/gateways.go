package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FakturowniaConfig holds the invoicing service endpoint and document defaults.
type FakturowniaConfig struct {
	BaseURL  string `validate:"required,url"`
	APIToken string `validate:"required"`
	// ProductWarehouseId is the finished-goods warehouse: invoices issued from it drive
	// production and goods received (PW) from production are booked into it.
	ProductWarehouseId int64 `validate:"required,gt=0"`
	// MaterialWarehouseId is where raw-material issues (RW) are booked.
	MaterialWarehouseId int64 `validate:"required,gt=0"`
	RwClientId          int64
	SellerPerson        string
	BuyerPerson         string
	RateLimitPerMin     int `validate:"gte=0"`
	PageSize            int `validate:"gt=0,lte=1000"`
}

// OdooConfig holds the ERP XML-RPC credentials.
type OdooConfig struct {
	URL      string `validate:"required,url"`
	Database string `validate:"required"`
	Username string `validate:"required"`
	Password string `validate:"required"`
}

var validate = validator.New()

func LoadFakturowniaConfig() (FakturowniaConfig, error) {
	cfg := FakturowniaConfig{
		BaseURL:             strings.TrimRight(strings.TrimSpace(os.Getenv("FAKTUROWNIA_URL")), "/"),
		APIToken:            strings.TrimSpace(os.Getenv("FAKTUROWNIA_API_TOKEN")),
		ProductWarehouseId:  int64FromEnv("FAKTUROWNIA_PRODUCT_WAREHOUSE_ID", 0),
		MaterialWarehouseId: int64FromEnv("FAKTUROWNIA_MATERIAL_WAREHOUSE_ID", 0),
		RwClientId:          int64FromEnv("FAKTUROWNIA_RW_CLIENT_ID", 0),
		SellerPerson:        strings.TrimSpace(os.Getenv("FAKTUROWNIA_SELLER_PERSON")),
		BuyerPerson:         strings.TrimSpace(os.Getenv("FAKTUROWNIA_BUYER_PERSON")),
		RateLimitPerMin:     intFromEnv("FAKTUROWNIA_RATE_LIMIT_PER_MIN", 120),
		PageSize:            intFromEnv("FAKTUROWNIA_PAGE_SIZE", 200),
	}
	if err := validate.Struct(cfg); err != nil {
		return FakturowniaConfig{}, fmt.Errorf("fakturownia config: %w", err)
	}
	return cfg, nil
}

func LoadOdooConfig() (OdooConfig, error) {
	cfg := OdooConfig{
		URL:      strings.TrimRight(strings.TrimSpace(os.Getenv("ODOO_URL")), "/"),
		Database: strings.TrimSpace(os.Getenv("ODOO_DB")),
		Username: strings.TrimSpace(os.Getenv("ODOO_USERNAME")),
		Password: os.Getenv("ODOO_PASSWORD"),
	}
	if err := validate.Struct(cfg); err != nil {
		return OdooConfig{}, fmt.Errorf("odoo config: %w", err)
	}
	return cfg, nil
}

func int64FromEnv(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
