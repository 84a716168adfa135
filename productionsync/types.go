package productionsync

import (
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/models"
	"github.com/shopspring/decimal"
)

type CreateMonthRequest struct {
	Year  int `json:"year" binding:"omitempty,gte=2021,lte=2099"`
	Month int `json:"month" binding:"omitempty,gte=1,lte=12"`
}

type MonthResponse struct {
	ID     int    `json:"id"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Label  string `json:"label"`
	OdooId *int64 `json:"odooId"`
}

type ProductionDocResponse struct {
	ID                int             `json:"id"`
	Number            *string         `json:"number"`
	OrderNumber       string          `json:"orderNumber"`
	OrderName         *string         `json:"orderName"`
	State             string          `json:"state"`
	DoNotProduce      bool            `json:"doNotProduce"`
	FirstSaleDate     *string         `json:"firstSaleDate"`
	RwDate            *string         `json:"rwDate"`
	RwNumber          *string         `json:"rwNumber"`
	SaleValuePln      decimal.Decimal `json:"saleValuePln"`
	RawMaterialsValue decimal.Decimal `json:"rawMaterialsValue"`
	ErpLink           string          `json:"erpLink,omitempty"`
	RwLink            string          `json:"rwLink,omitempty"`
	Positions         int             `json:"positions"`
}

type MonthDetailResponse struct {
	MonthResponse
	Invoices int                     `json:"invoices"`
	Rws      int                     `json:"rws"`
	Docs     []ProductionDocResponse `json:"docs"`
}

type MonthListResponse struct {
	Items []MonthResponse `json:"items"`
}

type SyncRunResponse struct {
	ID            uint            `json:"id"`
	MonthId       int             `json:"monthId"`
	Step          string          `json:"step"`
	Status        string          `json:"status"`
	TriggeredBy   string          `json:"triggeredBy"`
	CorrelationId string          `json:"correlationId"`
	StartedAt     *string         `json:"startedAt"`
	FinishedAt    *string         `json:"finishedAt"`
	DurationMs    int64           `json:"durationMs"`
	RecordsSynced int             `json:"recordsSynced"`
	WarningCount  int             `json:"warningCount"`
	ErrorCount    int             `json:"errorCount"`
	ErrorMessage  *string         `json:"errorMessage"`
	Stats         json.RawMessage `json:"stats,omitempty"`
}

type SyncErrorResponse struct {
	ID         uint   `json:"id"`
	EntityType string `json:"entityType"`
	ExternalId string `json:"externalId"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

type SyncHistoryResponse struct {
	Items []SyncRunResponse `json:"items"`
}

type SyncRunDetailResponse struct {
	SyncRunResponse
	Errors []SyncErrorResponse `json:"errors"`
}

type QueuedStepResponse struct {
	MonthId   int    `json:"monthId"`
	Step      string `json:"step"`
	MessageId string `json:"messageId"`
}

// PubSubPushEnvelope is the body Pub/Sub push subscriptions POST.
type PubSubPushEnvelope struct {
	Message struct {
		Data       []byte            `json:"data"`
		MessageId  string            `json:"messageId"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func mapMonth(m *models.Month) MonthResponse {
	return MonthResponse{
		ID:     m.ID,
		Year:   m.Year,
		Month:  m.Month,
		Label:  m.String(),
		OdooId: m.OdooId,
	}
}

func mapMonthDetail(m *models.Month, invoicingBaseURL string, erpBaseURL string) MonthDetailResponse {
	resp := MonthDetailResponse{
		MonthResponse: mapMonth(m),
		Invoices:      len(m.Invoices),
		Rws:           len(m.Rws),
		Docs:          make([]ProductionDocResponse, 0, len(m.ProductionDocs)),
	}
	for _, doc := range m.ProductionDocsBySaleDate() {
		item := ProductionDocResponse{
			ID:                doc.ID,
			Number:            doc.Number,
			OrderNumber:       doc.OrderNumber,
			OrderName:         doc.OrderName,
			State:             doc.State().String(),
			DoNotProduce:      doc.DoNotProduce,
			FirstSaleDate:     formatDate(doc.FirstSaleDate()),
			RwDate:            formatDate(doc.RwDate),
			SaleValuePln:      doc.SaleValue().Round(2),
			RawMaterialsValue: doc.AllocatedRawMaterials(),
			ErpLink:           doc.OdooLink(erpBaseURL),
			Positions:         len(doc.ProductionPositions),
		}
		if doc.Rw != nil {
			number := doc.Rw.Number
			item.RwNumber = &number
			item.RwLink = doc.Rw.Link(invoicingBaseURL)
		}
		resp.Docs = append(resp.Docs, item)
	}
	return resp
}

func mapRunToResponse(run *models.SyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:            run.ID,
		MonthId:       run.MonthId,
		Step:          string(run.Step),
		Status:        run.Status,
		TriggeredBy:   run.TriggeredBy,
		CorrelationId: run.CorrelationId,
		StartedAt:     formatTime(run.StartedAt),
		FinishedAt:    formatTime(run.FinishedAt),
		DurationMs:    run.DurationMs,
		RecordsSynced: run.RecordsSynced,
		WarningCount:  run.WarningCount,
		ErrorCount:    run.ErrorCount,
		ErrorMessage:  run.ErrorMessage,
		Stats:         json.RawMessage(run.StatsJSON),
	}
}

func mapErrors(errorsList []*models.SyncError) []SyncErrorResponse {
	out := make([]SyncErrorResponse, 0, len(errorsList))
	for _, errItem := range errorsList {
		out = append(out, SyncErrorResponse{
			ID:         errItem.ID,
			EntityType: errItem.EntityType,
			ExternalId: errItem.ExternalId,
			ErrorCode:  errItem.ErrorCode,
			Message:    errItem.Message,
			Retryable:  errItem.Retryable,
		})
	}
	return out
}
