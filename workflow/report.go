package workflow

import (
	"encoding/json"

	"bitbucket.org/mmdatafocus/production_backend/models"
	"github.com/sirupsen/logrus"
)

// StepReport collects what a step touched and the conditions it recovered from.
// The runner persists it as the SyncRun counters and SyncError rows.
type StepReport struct {
	MonthId int
	Step    models.WorkflowStep
	Records int
	Stats   map[string]int
	Issues  []models.SyncError

	logger *logrus.Logger
}

func NewStepReport(monthId int, step models.WorkflowStep, logger *logrus.Logger) *StepReport {
	return &StepReport{
		MonthId: monthId,
		Step:    step,
		Stats:   map[string]int{},
		logger:  logger,
	}
}

func (r *StepReport) count(stat string) {
	r.Stats[stat]++
	r.Records++
}

// warn logs a recoverable condition and keeps it for the sync run.
func (r *StepReport) warn(entityType string, externalId string, code string, message string, payload any) {
	fields := logrus.Fields{
		"month_id":    r.MonthId,
		"step":        r.Step,
		"entity_type": entityType,
		"external_id": externalId,
		"code":        code,
	}
	if r.logger != nil {
		r.logger.WithFields(fields).Warn(message)
	}

	var payloadJSON []byte
	if payload != nil {
		payloadJSON, _ = json.Marshal(payload)
	}
	r.Issues = append(r.Issues, models.SyncError{
		MonthId:     r.MonthId,
		EntityType:  entityType,
		ExternalId:  externalId,
		ErrorCode:   code,
		Message:     message,
		PayloadJSON: payloadJSON,
	})
}

func (r *StepReport) WarningCount() int {
	return len(r.Issues)
}

// HasIssue reports whether a warning with the given code was recorded.
func (r *StepReport) HasIssue(code string) bool {
	for _, issue := range r.Issues {
		if issue.ErrorCode == code {
			return true
		}
	}
	return false
}

const (
	issueAmbiguousRwLink   = "ambiguous_rw_link"
	issueMissingProduct    = "missing_product"
	issueInvalidDate       = "invalid_date"
	issueMissingOrder      = "missing_order_number"
	issueMissingRate       = "missing_exchange_rate"
	issueMissingSaleDate   = "missing_sale_date"
	issueRwNotFound        = "rw_not_found"
	issueMissingErpId      = "missing_erp_id"
	issueMissingRw         = "missing_rw"
	issueNothingToDispatch = "nothing_to_dispatch"
	issueArchiveFailed     = "archive_failed"
	issueInvalidState      = "invalid_state"
)
