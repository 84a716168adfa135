package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var (
	ErrMonthLocked = utils.ErrMonthLocked
	ErrUnknownStep = errors.New("unknown workflow step")
)

var tracer = otel.Tracer("bitbucket.org/mmdatafocus/production_backend/workflow")

// Options are the process-wide settings the steps read.
type Options struct {
	ProductWarehouseId int64
	InvoicingBaseURL   string
	ErpBaseURL         string
	UpdateInvoicingRw  bool
	ArchivePw          bool
	PublishStepEvents  bool
	StepEventTopic     string
}

func OptionsFromConfig(fakturowniaCfg config.FakturowniaConfig, odooCfg config.OdooConfig) Options {
	return Options{
		ProductWarehouseId: fakturowniaCfg.ProductWarehouseId,
		InvoicingBaseURL:   fakturowniaCfg.BaseURL,
		ErpBaseURL:         odooCfg.URL,
		UpdateInvoicingRw:  config.UpdateInvoicingRw(),
		ArchivePw:          config.PwArchiveEnabled(),
		PublishStepEvents:  config.PublishStepEvents(),
		StepEventTopic:     config.StepEventTopic(),
	}
}

// Runner executes workflow steps for one month at a time.
type Runner struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Invoicing InvoicingGateway
	Erp       ErpGateway
	Options   Options

	Lock    func(ctx context.Context, monthId int, moduleName string, functionName string) (func(), error)
	Archive func(ctx context.Context, objectName string, data []byte) error
	Publish func(ctx context.Context, topicName string, msg config.StepMessage) (string, error)
	Now     func() time.Time
}

func NewRunner(db *gorm.DB, logger *logrus.Logger, invoicing InvoicingGateway, erp ErpGateway, opts Options) *Runner {
	return &Runner{
		DB:        db,
		Logger:    logger,
		Invoicing: invoicing,
		Erp:       erp,
		Options:   opts,
		Lock:      utils.MonthLock,
		Archive:   utils.ArchiveJSONToGCS,
		Publish:   config.PublishStepMessage,
		Now:       time.Now,
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run executes one step under the month lock and records it as a SyncRun.
// The returned run is nil only when the month does not exist or the run row could not be written.
func (r *Runner) Run(ctx context.Context, monthId int, step models.WorkflowStep, triggeredBy string) (*models.SyncRun, error) {
	if !step.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	db := r.DB.WithContext(ctx)
	if _, err := loadMonth(db, monthId); err != nil {
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	if correlationId == "" {
		correlationId = uuid.NewString()
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
	}

	ctx, span := tracer.Start(ctx, "workflow."+string(step), trace.WithAttributes(
		attribute.Int("month_id", monthId),
		attribute.String("step", string(step)),
		attribute.String("correlation_id", correlationId),
	))
	defer span.End()

	startedAt := r.now()
	run := models.SyncRun{
		MonthId:       monthId,
		Step:          step,
		Status:        models.SyncRunStatusRunning,
		TriggeredBy:   triggeredBy,
		CorrelationId: correlationId,
		StartedAt:     &startedAt,
	}
	if err := r.DB.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}

	report := NewStepReport(monthId, step, r.Logger)
	stepErr := r.runLocked(ctx, monthId, step, report)

	if err := r.finish(ctx, &run, report, stepErr); err != nil {
		config.LogError(r.Logger, "workflow", "Run", "finish sync run", run.ID, err)
	}
	if stepErr != nil {
		span.RecordError(stepErr)
		span.SetStatus(codes.Error, stepErr.Error())
		config.LogError(r.Logger, "workflow", "Run", fmt.Sprintf("step %s failed", step), monthId, stepErr)
		return &run, stepErr
	}

	r.Logger.WithFields(logrus.Fields{
		"month_id":       monthId,
		"step":           step,
		"status":         run.Status,
		"records":        run.RecordsSynced,
		"warnings":       run.WarningCount,
		"duration_ms":    run.DurationMs,
		"correlation_id": correlationId,
	}).Info("workflow step finished")

	r.publishFinished(ctx, &run)
	return &run, nil
}

func (r *Runner) runLocked(ctx context.Context, monthId int, step models.WorkflowStep, report *StepReport) error {
	lock := r.Lock
	if lock == nil {
		lock = utils.MonthLock
	}
	release, err := lock(ctx, monthId, "workflow", "Run")
	if err != nil {
		return err
	}
	defer release()

	return r.dispatch(ctx, monthId, step, report)
}

func (r *Runner) dispatch(ctx context.Context, monthId int, step models.WorkflowStep, report *StepReport) error {
	switch step {
	case models.StepImport:
		return r.ImportMonth(ctx, monthId, report)
	case models.StepDelete:
		return r.DeleteMonthDocuments(ctx, monthId, report)
	case models.StepRegisterErp:
		return r.RegisterMonthInErp(ctx, monthId, report)
	case models.StepProductionStatus:
		return r.CheckProductionStatus(ctx, monthId, report)
	case models.StepRwValues:
		return r.UpdateRwValues(ctx, monthId, report)
	case models.StepDispatchPw:
		return r.DispatchGoodsReceived(ctx, monthId, report)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
}

// finish closes the run: failed when nothing was done, partial when the step
// broke off after writing something, success otherwise.
func (r *Runner) finish(ctx context.Context, run *models.SyncRun, report *StepReport, stepErr error) error {
	db := r.DB.WithContext(context.WithoutCancel(ctx))

	finishedAt := r.now()
	status := models.SyncRunStatusSuccess
	errorCount := 0
	var errorMessage *string
	if stepErr != nil {
		errorCount = 1
		msg := stepErr.Error()
		errorMessage = &msg
		status = models.SyncRunStatusFailed
		if report.Records > 0 {
			status = models.SyncRunStatusPartial
		}
	}

	issues := report.Issues
	if stepErr != nil {
		issues = append(issues, models.SyncError{
			MonthId:    run.MonthId,
			EntityType: "step",
			ExternalId: string(run.Step),
			ErrorCode:  stepErrorCode(stepErr),
			Message:    stepErr.Error(),
			Retryable:  true,
		})
	}
	for i := range issues {
		issues[i].SyncRunId = run.ID
	}
	if len(issues) > 0 {
		if err := db.Create(&issues).Error; err != nil {
			return err
		}
	}

	statsJSON, _ := json.Marshal(report.Stats)
	durationMs := finishedAt.Sub(*run.StartedAt).Milliseconds()
	updates := map[string]interface{}{
		"status":         status,
		"finished_at":    finishedAt,
		"duration_ms":    durationMs,
		"records_synced": report.Records,
		"warning_count":  report.WarningCount(),
		"error_count":    errorCount,
		"error_message":  errorMessage,
		"stats_json":     statsJSON,
	}
	run.Status = status
	run.FinishedAt = &finishedAt
	run.DurationMs = durationMs
	run.RecordsSynced = report.Records
	run.WarningCount = report.WarningCount()
	run.ErrorCount = errorCount
	run.ErrorMessage = errorMessage
	run.StatsJSON = statsJSON
	return db.Model(run).Updates(updates).Error
}

func stepErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMonthLocked):
		return "month_locked"
	case errors.Is(err, models.ErrInvalidTransition):
		return "invalid_state"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "step_failed"
	}
}

func (r *Runner) publishFinished(ctx context.Context, run *models.SyncRun) {
	if !r.Options.PublishStepEvents || r.Publish == nil {
		return
	}
	msg := config.StepMessage{
		MonthId:       run.MonthId,
		Step:          string(run.Step),
		RequestedAt:   r.now(),
		CorrelationId: run.CorrelationId,
	}
	if _, err := r.Publish(ctx, r.Options.StepEventTopic, msg); err != nil {
		config.LogError(r.Logger, "workflow", "publishFinished", "publish step event", msg, err)
	}
}

func loadMonth(db *gorm.DB, monthId int) (*models.Month, error) {
	var month models.Month
	if err := db.Where("id = ?", monthId).Take(&month).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("month %d: %w", monthId, utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	return &month, nil
}
