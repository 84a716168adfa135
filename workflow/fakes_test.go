package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/fakturownia"
	"bitbucket.org/mmdatafocus/production_backend/odoo"
	"github.com/shopspring/decimal"
)

type fakeInvoicing struct {
	mu sync.Mutex

	invoices []fakturownia.Invoice
	rws      []fakturownia.WarehouseDocument
	balances map[int64]decimal.Decimal
	values   map[int64]decimal.Decimal

	nextId        int64
	balanceCalls  map[int64]int
	createdIssues map[int64]fakturownia.NewWarehouseIssue
	updatedIssues map[int64][2]string
	goodsReceived map[int64]fakturownia.GoodsReceivedDoc
}

func newFakeInvoicing() *fakeInvoicing {
	return &fakeInvoicing{
		balances:      map[int64]decimal.Decimal{},
		values:        map[int64]decimal.Decimal{},
		nextId:        9000,
		balanceCalls:  map[int64]int{},
		createdIssues: map[int64]fakturownia.NewWarehouseIssue{},
		updatedIssues: map[int64][2]string{},
		goodsReceived: map[int64]fakturownia.GoodsReceivedDoc{},
	}
}

func (f *fakeInvoicing) ListInvoices(ctx context.Context, from, to time.Time) ([]fakturownia.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakturownia.Invoice(nil), f.invoices...), nil
}

func (f *fakeInvoicing) ListWarehouseIssues(ctx context.Context, from, to time.Time) ([]fakturownia.WarehouseDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakturownia.WarehouseDocument(nil), f.rws...), nil
}

func (f *fakeInvoicing) GetProductStockBalance(ctx context.Context, productId int64) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceCalls[productId]++
	return f.balances[productId], nil
}

func (f *fakeInvoicing) CreateWarehouseIssue(ctx context.Context, issue fakturownia.NewWarehouseIssue) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextId++
	f.createdIssues[f.nextId] = issue
	return f.nextId, nil
}

func (f *fakeInvoicing) UpdateWarehouseIssue(ctx context.Context, id int64, number string, issueDate string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedIssues[id] = [2]string{number, issueDate}
	return nil
}

func (f *fakeInvoicing) GetWarehouseIssueValue(ctx context.Context, id int64) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("warehouse document %d: %w", id, fakturownia.ErrNotFound)
	}
	return value, nil
}

func (f *fakeInvoicing) CreateGoodsReceivedDoc(ctx context.Context, doc fakturownia.GoodsReceivedDoc) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextId++
	f.goodsReceived[f.nextId] = doc
	return f.nextId, nil
}

type erpUpdate struct {
	Model  string
	Id     int64
	Fields map[string]interface{}
}

type fakeErp struct {
	mu sync.Mutex

	nextId  int64
	records map[string]map[int64]map[string]interface{}
	updates []erpUpdate
	// orderNames are what operators typed into the ERP, keyed by order number.
	orderNames map[string]string
}

func newFakeErp() *fakeErp {
	return &fakeErp{
		nextId:     100,
		records:    map[string]map[int64]map[string]interface{}{},
		orderNames: map[string]string{},
	}
}

func (f *fakeErp) create(model string, fields map[string]interface{}) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextId++
	if f.records[model] == nil {
		f.records[model] = map[int64]map[string]interface{}{}
	}
	f.records[model][f.nextId] = fields
	return f.nextId
}

func (f *fakeErp) count(model string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records[model])
}

func (f *fakeErp) CreateMonth(ctx context.Context, name string) (int64, error) {
	return f.create(odoo.ModelProduction, map[string]interface{}{"x_name": name}), nil
}

func (f *fakeErp) CreateRw(ctx context.Context, rw odoo.RwRecord) (int64, error) {
	return f.create(odoo.ModelRw, rw.Fields()), nil
}

func (f *fakeErp) CreateProductionDoc(ctx context.Context, doc odoo.ProductionDocRecord) (int64, error) {
	fields := map[string]interface{}{
		"x_order_number": doc.OrderNumber,
		"x_dont_produce": doc.DoNotProduce,
	}
	if doc.RwOdooId != nil {
		fields["x_rw"] = *doc.RwOdooId
	}
	return f.create(odoo.ModelProductionDocs, fields), nil
}

func (f *fakeErp) CreateProductionPosition(ctx context.Context, pos odoo.ProductionPositionRecord) (int64, error) {
	return f.create(odoo.ModelProductionPositions, map[string]interface{}{
		"x_name":                     pos.Name,
		"x_production_doc":           pos.DocOdooId,
		"x_dont_produce":             pos.DoNotProduce,
		"x_studio_produced_quantity": pos.ProducedQuantity,
	}), nil
}

func (f *fakeErp) GetProductionStatus(ctx context.Context, id int64) (odoo.ProductionDocStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[odoo.ModelProductionDocs][id]
	if !ok {
		return odoo.ProductionDocStatus{}, odoo.ErrNotFound
	}
	status := odoo.ProductionDocStatus{DoNotProduce: record["x_dont_produce"].(bool)}
	if name, ok := f.orderNames[record["x_order_number"].(string)]; ok {
		status.OrderName = &name
	}
	return status, nil
}

func (f *fakeErp) GetProductionPositionStatus(ctx context.Context, id int64) (odoo.ProductionPositionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[odoo.ModelProductionPositions][id]
	if !ok {
		return odoo.ProductionPositionStatus{}, odoo.ErrNotFound
	}
	return odoo.ProductionPositionStatus{DoNotProduce: record["x_dont_produce"].(bool)}, nil
}

func (f *fakeErp) Update(ctx context.Context, model string, id int64, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[model][id]
	if !ok {
		return fmt.Errorf("%s %d: %w", model, id, odoo.ErrNotFound)
	}
	for k, v := range fields {
		record[k] = v
	}
	f.updates = append(f.updates, erpUpdate{Model: model, Id: id, Fields: fields})
	return nil
}

func (f *fakeErp) updatesFor(model string, id int64) []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]interface{}
	for _, u := range f.updates {
		if u.Model == model && u.Id == id {
			out = append(out, u.Fields)
		}
	}
	return out
}

// setField mimics an operator editing a record in the ERP UI.
func (f *fakeErp) setField(model string, id int64, field string, value interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[model][id][field] = value
}
