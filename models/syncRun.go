package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
)

type WorkflowStep string

const (
	StepImport           WorkflowStep = "import"
	StepDelete           WorkflowStep = "delete"
	StepRegisterErp      WorkflowStep = "register_erp"
	StepProductionStatus WorkflowStep = "production_status"
	StepRwValues         WorkflowStep = "rw_values"
	StepDispatchPw       WorkflowStep = "dispatch_pw"
)

// AllWorkflowSteps lists the steps in the order an operator runs them.
var AllWorkflowSteps = []WorkflowStep{
	StepImport, StepRegisterErp, StepProductionStatus, StepRwValues, StepDispatchPw, StepDelete,
}

func (s WorkflowStep) IsValid() bool {
	for _, step := range AllWorkflowSteps {
		if s == step {
			return true
		}
	}
	return false
}

const (
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
)

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredPubSub = "pubsub"
	SyncTriggeredCli    = "cli"
)

// SyncRun records one execution of a workflow step for a month.
type SyncRun struct {
	ID            uint         `gorm:"primary_key" json:"id"`
	MonthId       int          `gorm:"index;not null" json:"month_id"`
	Step          WorkflowStep `gorm:"size:50;index;not null" json:"step"`
	Status        string       `gorm:"size:20;not null" json:"status"`
	TriggeredBy   string       `gorm:"size:20" json:"triggered_by"`
	CorrelationId string       `gorm:"size:64;index" json:"correlation_id"`
	StatsJSON     []byte       `gorm:"type:json" json:"stats"`
	RecordsSynced int          `json:"records_synced"`
	WarningCount  int          `json:"warning_count"`
	ErrorCount    int          `json:"error_count"`
	ErrorMessage  *string      `gorm:"type:text" json:"error_message"`
	StartedAt     *time.Time   `json:"started_at"`
	FinishedAt    *time.Time   `json:"finished_at"`
	DurationMs    int64        `json:"duration_ms"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// SyncError is a problem met during a run. Retryable=false rows are warnings
// that the step recovered from (missing RW, ambiguous link, skipped doc).
type SyncError struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	SyncRunId   uint      `gorm:"index;not null" json:"sync_run_id"`
	MonthId     int       `gorm:"index;not null" json:"month_id"`
	EntityType  string    `gorm:"size:50" json:"entity_type"`
	ExternalId  string    `gorm:"size:128" json:"external_id"`
	ErrorCode   string    `gorm:"size:64" json:"error_code"`
	Message     string    `gorm:"type:text" json:"message"`
	PayloadJSON []byte    `gorm:"type:json" json:"payload"`
	Retryable   bool      `gorm:"default:false" json:"retryable"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func ListSyncRuns(ctx context.Context, monthId int, limit int) ([]*SyncRun, error) {
	db := config.GetDB()
	var runs []*SyncRun
	if err := db.WithContext(ctx).
		Where("month_id = ?", monthId).
		Order("id desc").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func GetSyncRun(ctx context.Context, id uint) (*SyncRun, error) {
	db := config.GetDB()
	var run SyncRun
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func ListSyncErrors(ctx context.Context, runId uint) ([]*SyncError, error) {
	db := config.GetDB()
	var errs []*SyncError
	if err := db.WithContext(ctx).Where("sync_run_id = ?", runId).Order("id").Find(&errs).Error; err != nil {
		return nil, err
	}
	return errs, nil
}
