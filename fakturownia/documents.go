package fakturownia

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ListInvoices returns VAT invoices issued in [from, to], positions included.
func (c *Client) ListInvoices(ctx context.Context, from, to time.Time) ([]Invoice, error) {
	params := url.Values{}
	params.Set("include_positions", "true")
	params.Set("period", "more")
	params.Set("date_from", from.Format(dateLayout))
	params.Set("date_to", to.Format(dateLayout))
	params.Set("kind", "vat")
	invoices, err := listPages[Invoice](ctx, c, "/invoices.json", params)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// ListWarehouseIssues returns RW documents issued in [from, to].
func (c *Client) ListWarehouseIssues(ctx context.Context, from, to time.Time) ([]WarehouseDocument, error) {
	params := url.Values{}
	params.Set("period", "more")
	params.Set("date_from", from.Format(dateLayout))
	params.Set("date_to", to.Format(dateLayout))
	params.Set("kind", "rw")
	docs, err := listPages[WarehouseDocument](ctx, c, "/warehouse_documents.json", params)
	if err != nil {
		return nil, fmt.Errorf("list warehouse issues: %w", err)
	}
	return docs, nil
}

// GetProductStockBalance sums the quantities of every warehouse action for the
// product in the finished-goods warehouse.
func (c *Client) GetProductStockBalance(ctx context.Context, productId int64) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("product_id", fmt.Sprint(productId))
	params.Set("warehouse_id", fmt.Sprint(c.cfg.ProductWarehouseId))
	actions, err := listPages[WarehouseAction](ctx, c, "/warehouse_actions.json", params)
	if err != nil {
		return decimal.Zero, fmt.Errorf("stock balance product %d: %w", productId, err)
	}
	balance := decimal.Zero
	for _, action := range actions {
		balance = balance.Add(action.Quantity)
	}
	return balance, nil
}

// CreateWarehouseIssue books an RW in the material warehouse and returns its id.
func (c *Client) CreateWarehouseIssue(ctx context.Context, issue NewWarehouseIssue) (int64, error) {
	body := warehouseDocumentRequest{
		APIToken: c.cfg.APIToken,
		WarehouseDocument: warehouseDocumentPayload{
			Kind:         "rw",
			Number:       issue.Number,
			WarehouseId:  c.cfg.MaterialWarehouseId,
			IssueDate:    issue.IssueDate,
			ClientId:     c.cfg.RwClientId,
			SellerPerson: c.cfg.SellerPerson,
			BuyerPerson:  c.cfg.BuyerPerson,
			Description:  issue.Description,
		},
	}
	var created createdResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/warehouse_documents.json", body, &created); err != nil {
		return 0, fmt.Errorf("create warehouse issue %s: %w", issue.Number, err)
	}
	if created.Id == 0 {
		return 0, fmt.Errorf("create warehouse issue %s: response without id", issue.Number)
	}
	return created.Id, nil
}

// UpdateWarehouseIssue rewrites number and issue date of an existing RW.
func (c *Client) UpdateWarehouseIssue(ctx context.Context, id int64, number string, issueDate string) error {
	body := warehouseDocumentRequest{
		APIToken: c.cfg.APIToken,
		WarehouseDocument: warehouseDocumentPayload{
			Number:    number,
			IssueDate: issueDate,
		},
	}
	path := fmt.Sprintf("/warehouse_documents/%d.json", id)
	if err := c.sendJSON(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("update warehouse issue %d: %w", id, err)
	}
	return nil
}

// GetWarehouseIssueValue returns the purchase cost of an RW.
// A missing document yields zero together with ErrNotFound.
func (c *Client) GetWarehouseIssueValue(ctx context.Context, id int64) (decimal.Decimal, error) {
	var doc WarehouseDocument
	path := fmt.Sprintf("/warehouse_documents/%d.json", id)
	if err := c.getJSON(ctx, path, nil, &doc); err != nil {
		if errors.Is(err, ErrNotFound) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("get warehouse issue %d: %w", id, err)
	}
	return doc.Value(), nil
}

// CreateGoodsReceivedDoc books a PW for finished goods and returns its id.
func (c *Client) CreateGoodsReceivedDoc(ctx context.Context, doc GoodsReceivedDoc) (int64, error) {
	if len(doc.Positions) == 0 {
		return 0, fmt.Errorf("goods received %s: no positions", doc.Number)
	}
	actions := make([]warehouseActionPayload, 0, len(doc.Positions))
	for _, p := range doc.Positions {
		actions = append(actions, warehouseActionPayload{
			ProductId:        p.ProductId,
			PurchasePriceNet: p.UnitPrice,
			Quantity:         p.Quantity,
		})
	}
	body := warehouseDocumentRequest{
		APIToken: c.cfg.APIToken,
		WarehouseDocument: warehouseDocumentPayload{
			Kind:             "pw",
			Number:           doc.Number,
			WarehouseId:      c.cfg.ProductWarehouseId,
			IssueDate:        doc.IssueDate,
			Description:      doc.Description,
			WarehouseActions: actions,
		},
	}
	var created createdResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/warehouse_documents.json", body, &created); err != nil {
		return 0, fmt.Errorf("create goods received %s: %w", doc.Number, err)
	}
	if created.Id == 0 {
		return 0, fmt.Errorf("create goods received %s: response without id", doc.Number)
	}
	return created.Id, nil
}
