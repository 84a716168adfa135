package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/fakturownia"
	"bitbucket.org/mmdatafocus/production_backend/odoo"
	"github.com/shopspring/decimal"
)

// InvoicingGateway is the part of the invoicing service the steps use.
// *fakturownia.Client satisfies it.
type InvoicingGateway interface {
	ListInvoices(ctx context.Context, from, to time.Time) ([]fakturownia.Invoice, error)
	ListWarehouseIssues(ctx context.Context, from, to time.Time) ([]fakturownia.WarehouseDocument, error)
	GetProductStockBalance(ctx context.Context, productId int64) (decimal.Decimal, error)
	CreateWarehouseIssue(ctx context.Context, issue fakturownia.NewWarehouseIssue) (int64, error)
	UpdateWarehouseIssue(ctx context.Context, id int64, number string, issueDate string) error
	GetWarehouseIssueValue(ctx context.Context, id int64) (decimal.Decimal, error)
	CreateGoodsReceivedDoc(ctx context.Context, doc fakturownia.GoodsReceivedDoc) (int64, error)
}

// ErpGateway is the part of the ERP the steps use. *odoo.Client satisfies it.
type ErpGateway interface {
	CreateMonth(ctx context.Context, name string) (int64, error)
	CreateRw(ctx context.Context, rw odoo.RwRecord) (int64, error)
	CreateProductionDoc(ctx context.Context, doc odoo.ProductionDocRecord) (int64, error)
	CreateProductionPosition(ctx context.Context, pos odoo.ProductionPositionRecord) (int64, error)
	GetProductionStatus(ctx context.Context, id int64) (odoo.ProductionDocStatus, error)
	GetProductionPositionStatus(ctx context.Context, id int64) (odoo.ProductionPositionStatus, error)
	Update(ctx context.Context, model string, id int64, fields map[string]interface{}) error
}

var (
	_ InvoicingGateway = (*fakturownia.Client)(nil)
	_ ErpGateway       = (*odoo.Client)(nil)
)
