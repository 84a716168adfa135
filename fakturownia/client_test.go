package fakturownia

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(config.FakturowniaConfig{
		BaseURL:             srv.URL,
		APIToken:            "tok",
		ProductWarehouseId:  6033,
		MaterialWarehouseId: 6032,
		RwClientId:          77,
		SellerPerson:        "Seller",
		BuyerPerson:         "Buyer",
		PageSize:            2,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(config.FakturowniaConfig{BaseURL: "http://x"})
	require.Error(t, err)
}

func TestListInvoicesPaginates(t *testing.T) {
	var pages []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoices.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "tok", q.Get("api_token"))
		assert.Equal(t, "vat", q.Get("kind"))
		assert.Equal(t, "true", q.Get("include_positions"))
		assert.Equal(t, "2024-03-01", q.Get("date_from"))
		assert.Equal(t, "2024-03-31", q.Get("date_to"))
		pages = append(pages, q.Get("page"))
		switch q.Get("page") {
		case "1":
			_, _ = io.WriteString(w, `[{"id":1,"number":"FV/1","oid":"ZW-1","warehouse_id":6033,"price_net":"10.00","exchange_rate":"1.0","positions":[{"product_id":5,"name":"Chair","quantity":"2","total_price_net":"10.00","discount":null}]},{"id":2,"number":"FV/2","warehouse_id":null,"price_net":"5"}]`)
		default:
			_, _ = io.WriteString(w, `[{"id":3,"number":"FV/3","price_net":7.5}]`)
		}
	})

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	invoices, err := c.ListInvoices(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, invoices, 3)
	assert.Equal(t, []string{"1", "2"}, pages)

	assert.Equal(t, int64(6033), *invoices[0].WarehouseId)
	assert.Nil(t, invoices[1].WarehouseId)
	assert.True(t, invoices[2].PriceNet.Equal(decimal.RequireFromString("7.5")))
	require.Len(t, invoices[0].Positions, 1)
	assert.False(t, invoices[0].Positions[0].Discount.Valid)
	assert.Equal(t, int64(5), *invoices[0].Positions[0].ProductId)
}

func TestGetProductStockBalanceSumsActions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/warehouse_actions.json", r.URL.Path)
		assert.Equal(t, "6033", r.URL.Query().Get("warehouse_id"))
		assert.Equal(t, "9", r.URL.Query().Get("product_id"))
		_, _ = io.WriteString(w, `[{"quantity":"-5"},{"quantity":"2"}]`)
	})
	balance, err := c.GetProductStockBalance(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(-3)))
}

func TestCreateWarehouseIssueSendsHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/warehouse_documents.json", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok", body["api_token"])
		doc := body["warehouse_document"].(map[string]any)
		assert.Equal(t, "rw", doc["kind"])
		assert.Equal(t, "24/03/01", doc["number"])
		assert.Equal(t, float64(6032), doc["warehouse_id"])
		assert.Equal(t, float64(77), doc["client_id"])
		assert.Equal(t, "2024-03-01", doc["issue_date"])
		_, _ = io.WriteString(w, `{"id":555}`)
	})
	id, err := c.CreateWarehouseIssue(context.Background(), NewWarehouseIssue{
		Number:      "24/03/01",
		IssueDate:   "2024-03-01",
		Description: "Wydanie surowców do ZW-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(555), id)
}

func TestUpdateWarehouseIssue(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/warehouse_documents/555.json", r.URL.Path)
		_, _ = io.WriteString(w, `{}`)
	})
	require.NoError(t, c.UpdateWarehouseIssue(context.Background(), 555, "24/03/02", "2024-03-08"))
	assert.True(t, called)
}

func TestGetWarehouseIssueValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/warehouse_documents/1.json":
			_, _ = io.WriteString(w, `{"id":1,"warehouse_actions":[{"total_purchase_price_net":"100.50"},{"total_purchase_price_net":"20"}]}`)
		case "/warehouse_documents/2.json":
			_, _ = io.WriteString(w, `{"id":2,"purchase_price_net":"42.10"}`)
		case "/warehouse_documents/3.json":
			_, _ = io.WriteString(w, `{"id":3}`)
		case "/warehouse_documents/5.json":
			_, _ = io.WriteString(w, `{"id":5,"purchase_price_net":"88.00","warehouse_actions":[{"total_purchase_price_net":"50"},{"quantity":"2"}]}`)
		case "/warehouse_documents/6.json":
			_, _ = io.WriteString(w, `{"id":6,"warehouse_actions":[{"total_purchase_price_net":null}]}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	v, err := c.GetWarehouseIssueValue(ctx, 1)
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("120.50")))

	v, err = c.GetWarehouseIssueValue(ctx, 2)
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("42.10")))

	v, err = c.GetWarehouseIssueValue(ctx, 3)
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	v, err = c.GetWarehouseIssueValue(ctx, 5)
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("88")), v.String())

	v, err = c.GetWarehouseIssueValue(ctx, 6)
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	v, err = c.GetWarehouseIssueValue(ctx, 4)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, v.IsZero())
}

func TestAPIErrorSurfacesStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"bad number"}`)
	})
	_, err := c.CreateWarehouseIssue(context.Background(), NewWarehouseIssue{Number: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestCreateGoodsReceivedDoc(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body warehouseDocumentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pw", body.WarehouseDocument.Kind)
		assert.Equal(t, int64(6033), body.WarehouseDocument.WarehouseId)
		require.Len(t, body.WarehouseDocument.WarehouseActions, 1)
		assert.Equal(t, int64(4), body.WarehouseDocument.WarehouseActions[0].Quantity)
		assert.True(t, body.WarehouseDocument.WarehouseActions[0].PurchasePriceNet.Equal(decimal.RequireFromString("12.5")))
		_, _ = io.WriteString(w, `{"id":901}`)
	})

	_, err := c.CreateGoodsReceivedDoc(context.Background(), GoodsReceivedDoc{Number: "24/03/01"})
	require.Error(t, err)

	id, err := c.CreateGoodsReceivedDoc(context.Background(), GoodsReceivedDoc{
		Number:    "24/03/01",
		IssueDate: "2024-03-01",
		Positions: []GoodsReceivedPosition{{ProductId: 5, UnitPrice: decimal.RequireFromString("12.5"), Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(901), id)
}
