package fakturownia

import (
	"github.com/shopspring/decimal"
)

// Invoice is a VAT invoice as returned by /invoices.json?include_positions=true.
type Invoice struct {
	Id           int64             `json:"id"`
	IssueDate    string            `json:"issue_date"`
	Number       string            `json:"number"`
	Oid          string            `json:"oid"`
	BuyerName    string            `json:"buyer_name"`
	WarehouseId  *int64            `json:"warehouse_id"`
	PriceNet     decimal.Decimal   `json:"price_net"`
	Currency     string            `json:"currency"`
	ExchangeRate decimal.Decimal   `json:"exchange_rate"`
	Positions    []InvoicePosition `json:"positions"`
}

type InvoicePosition struct {
	ProductId     *int64              `json:"product_id"`
	Name          string              `json:"name"`
	Quantity      decimal.Decimal     `json:"quantity"`
	PriceNet      decimal.Decimal     `json:"price_net"`
	TotalPriceNet decimal.Decimal     `json:"total_price_net"`
	Discount      decimal.NullDecimal `json:"discount"`
}

// WarehouseDocument covers RW (issue), PW (goods received) and other warehouse kinds.
type WarehouseDocument struct {
	Id          int64  `json:"id"`
	Kind        string `json:"kind"`
	Number      string `json:"number"`
	IssueDate   string `json:"issue_date"`
	Description string `json:"description"`
	// nil when the payload has no warehouse_actions key.
	WarehouseActions []WarehouseAction  `json:"warehouse_actions"`
	PurchasePriceNet decimal.NullDecimal `json:"purchase_price_net"`
}

type WarehouseAction struct {
	ProductId             *int64              `json:"product_id"`
	Quantity              decimal.Decimal     `json:"quantity"`
	TotalPurchasePriceNet decimal.NullDecimal `json:"total_purchase_price_net"`
}

// Value is the purchase cost of the document: the sum over its warehouse actions.
// When the payload has no actions, or one of them lacks its total, the document's
// own purchase price is used instead, else zero.
func (d *WarehouseDocument) Value() decimal.Decimal {
	if d.WarehouseActions != nil {
		total := decimal.Zero
		complete := true
		for _, action := range d.WarehouseActions {
			if !action.TotalPurchasePriceNet.Valid {
				complete = false
				break
			}
			total = total.Add(action.TotalPurchasePriceNet.Decimal)
		}
		if complete {
			return total
		}
	}
	if d.PurchasePriceNet.Valid {
		return d.PurchasePriceNet.Decimal
	}
	return decimal.Zero
}

// NewWarehouseIssue is an RW created for a production doc.
type NewWarehouseIssue struct {
	Number      string
	IssueDate   string
	Description string
}

// GoodsReceivedDoc is a PW: finished goods received into stock from production.
type GoodsReceivedDoc struct {
	Number      string                  `json:"number"`
	IssueDate   string                  `json:"issue_date"`
	Description string                  `json:"description"`
	Positions   []GoodsReceivedPosition `json:"positions"`
}

type GoodsReceivedPosition struct {
	ProductId int64           `json:"product_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
}

type warehouseDocumentPayload struct {
	Kind             string                  `json:"kind,omitempty"`
	Number           string                  `json:"number"`
	WarehouseId      int64                   `json:"warehouse_id,omitempty"`
	IssueDate        string                  `json:"issue_date"`
	ClientId         int64                   `json:"client_id,omitempty"`
	SellerPerson     string                  `json:"seller_person,omitempty"`
	BuyerPerson      string                  `json:"buyer_person,omitempty"`
	Description      string                  `json:"description,omitempty"`
	WarehouseActions []warehouseActionPayload `json:"warehouse_actions,omitempty"`
}

type warehouseActionPayload struct {
	ProductId        int64           `json:"product_id"`
	PurchasePriceNet decimal.Decimal `json:"purchase_price_net"`
	Quantity         int64           `json:"quantity"`
}

type warehouseDocumentRequest struct {
	APIToken          string                   `json:"api_token"`
	WarehouseDocument warehouseDocumentPayload `json:"warehouse_document"`
}

type createdResponse struct {
	Id int64 `json:"id"`
}
