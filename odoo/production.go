package odoo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ModelProduction          = "x_production"
	ModelRw                  = "x_rw"
	ModelProductionDocs      = "x_production_docs"
	ModelProductionPositions = "x_production_positions"
)

type RwRecord struct {
	Number        string
	IssueDate     string
	Description   string
	LinkURL       string
	FakturowniaId *int64
}

// Fields is the x_rw payload for create and full update.
func (r RwRecord) Fields() map[string]interface{} {
	return map[string]interface{}{
		"x_name":           "RW " + r.Number,
		"x_number":         r.Number,
		"x_date":           stringOrFalse(r.IssueDate),
		"x_description":    stringOrFalse(r.Description),
		"x_link_url":       stringOrFalse(r.LinkURL),
		"x_fakturownia_id": idOrFalse(r.FakturowniaId),
	}
}

type ProductionDocRecord struct {
	OrderNumber   string
	FirstSaleDate *time.Time
	MonthOdooId   int64
	DoNotProduce  bool
	RwOdooId      *int64
}

type ProductionPositionRecord struct {
	Name                 string
	DocOdooId            int64
	ProductFakturowniaId int64
	Quantity             decimal.Decimal
	LinkURL              string
	SalesValue           decimal.Decimal
	Balance              decimal.Decimal
	ProducedQuantity     int64
	DoNotProduce         bool
}

type ProductionDocStatus struct {
	DoNotProduce bool
	OrderName    *string
}

type ProductionPositionStatus struct {
	DoNotProduce      bool
	ProducedQuantity  *int
	FinalQuantity     *int
	RawMaterialsValue decimal.NullDecimal
	UnitPrice         decimal.NullDecimal
}

// CreateMonth creates the x_production header for a month label like "03.2024".
func (c *Client) CreateMonth(ctx context.Context, name string) (int64, error) {
	return c.create(ctx, ModelProduction, map[string]interface{}{"x_name": name})
}

func (c *Client) CreateRw(ctx context.Context, rw RwRecord) (int64, error) {
	return c.create(ctx, ModelRw, rw.Fields())
}

func (c *Client) CreateProductionDoc(ctx context.Context, doc ProductionDocRecord) (int64, error) {
	fields := map[string]interface{}{
		"x_name":                    doc.OrderNumber,
		"x_order_number":            doc.OrderNumber,
		"x_first_sale_date":         dateOrFalse(doc.FirstSaleDate),
		"x_studio_production_month": doc.MonthOdooId,
		"x_dont_produce":            doc.DoNotProduce,
	}
	if doc.RwOdooId != nil {
		fields["x_rw"] = *doc.RwOdooId
	}
	return c.create(ctx, ModelProductionDocs, fields)
}

func (c *Client) CreateProductionPosition(ctx context.Context, pos ProductionPositionRecord) (int64, error) {
	quantity, _ := pos.Quantity.Float64()
	value, _ := pos.SalesValue.Float64()
	balance, _ := pos.Balance.Float64()
	fields := map[string]interface{}{
		"x_name":                     pos.Name,
		"x_production_doc":           pos.DocOdooId,
		"x_product_id":               pos.ProductFakturowniaId,
		"x_quantity":                 quantity,
		"x_link_url":                 stringOrFalse(pos.LinkURL),
		"x_studio_value":             value,
		"x_studio_balance":           balance,
		"x_studio_produced_quantity": pos.ProducedQuantity,
		"x_dont_produce":             pos.DoNotProduce,
	}
	return c.create(ctx, ModelProductionPositions, fields)
}

func (c *Client) GetProductionStatus(ctx context.Context, id int64) (ProductionDocStatus, error) {
	row, err := c.readOne(ctx, ModelProductionDocs, id, []string{"x_dont_produce", "x_studio_order_name"})
	if err != nil {
		return ProductionDocStatus{}, err
	}
	return ProductionDocStatus{
		DoNotProduce: boolValue(row["x_dont_produce"]),
		OrderName:    stringValue(row["x_studio_order_name"]),
	}, nil
}

func (c *Client) GetProductionPositionStatus(ctx context.Context, id int64) (ProductionPositionStatus, error) {
	row, err := c.readOne(ctx, ModelProductionPositions, id, []string{
		"x_dont_produce",
		"x_studio_produced_quantity",
		"x_studio_final_quantity",
		"x_studio_raw_materials_value",
		"x_studio_unit_price",
	})
	if err != nil {
		return ProductionPositionStatus{}, err
	}
	return ProductionPositionStatus{
		DoNotProduce:      boolValue(row["x_dont_produce"]),
		ProducedQuantity:  intValue(row["x_studio_produced_quantity"]),
		FinalQuantity:     intValue(row["x_studio_final_quantity"]),
		RawMaterialsValue: decimalValue(row["x_studio_raw_materials_value"]),
		UnitPrice:         decimalValue(row["x_studio_unit_price"]),
	}, nil
}

// DocRwFields points an ERP production doc at its RW.
func DocRwFields(rwId int64) map[string]interface{} {
	return map[string]interface{}{"x_rw": rwId}
}

// RwHeaderFields carries a renumbered RW.
func RwHeaderFields(number, issueDate string) map[string]interface{} {
	return map[string]interface{}{
		"x_name":   "RW " + number,
		"x_number": number,
		"x_date":   stringOrFalse(issueDate),
	}
}

func RawMaterialsValueFields(value decimal.Decimal) map[string]interface{} {
	v, _ := value.Float64()
	return map[string]interface{}{"x_studio_raw_materials_value": v}
}
