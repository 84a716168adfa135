package productionsync

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/reports"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"bitbucket.org/mmdatafocus/production_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StepRunner runs one workflow step for a month; *workflow.Runner implements it.
type StepRunner interface {
	Run(ctx context.Context, monthId int, step models.WorkflowStep, triggeredBy string) (*models.SyncRun, error)
}

var _ StepRunner = (*workflow.Runner)(nil)

// Service holds what the HTTP handlers share.
type Service struct {
	Runner           StepRunner
	Logger           *logrus.Logger
	InvoicingBaseURL string
	ErpBaseURL       string

	Publish func(ctx context.Context, topicName string, msg config.StepMessage) (string, error)
	Now     func() time.Time
}

func NewService(runner StepRunner, logger *logrus.Logger, invoicingBaseURL string, erpBaseURL string) *Service {
	return &Service{
		Runner:           runner,
		Logger:           logger,
		InvoicingBaseURL: invoicingBaseURL,
		ErpBaseURL:       erpBaseURL,
		Publish:          config.PublishStepMessage,
		Now:              time.Now,
	}
}

func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/months", s.ListMonthsHandler())
	r.POST("/api/months", s.CreateMonthHandler())
	r.GET("/api/months/:id", s.MonthDetailHandler())
	r.GET("/api/months/:id/report", s.MonthReportHandler())
	r.POST("/api/months/:id/steps/:step", s.TriggerStepHandler())
	r.GET("/api/months/:id/sync-runs", s.SyncHistoryHandler())
	r.GET("/api/sync-runs/:id", s.SyncRunDetailHandler())

	// Pub/Sub push endpoint for step workers.
	r.POST("/pubsub/production-step", s.PubSubPushHandler())
}

func (s *Service) CreateMonthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateMonthRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}

		input := models.DefaultNewMonth(s.now())
		if req.Year != 0 {
			input.Year = req.Year
		}
		if req.Month != 0 {
			input.Month = req.Month
		}

		month, err := models.CreateMonth(c.Request.Context(), &input)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrInvalidMonth):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, models.ErrDuplicate):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusCreated, mapMonth(month))
	}
}

func (s *Service) ListMonthsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		months, err := models.ListMonths(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		items := make([]MonthResponse, 0, len(months))
		for _, m := range months {
			items = append(items, mapMonth(m))
		}
		c.JSON(http.StatusOK, MonthListResponse{Items: items})
	}
}

func (s *Service) MonthDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		monthId, ok := paramId(c, "id")
		if !ok {
			return
		}
		month, ok := s.loadMonthGraph(c, monthId)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, mapMonthDetail(month, s.InvoicingBaseURL, s.ErpBaseURL))
	}
}

func (s *Service) MonthReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		monthId, ok := paramId(c, "id")
		if !ok {
			return
		}
		month, ok := s.loadMonthGraph(c, monthId)
		if !ok {
			return
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename="+reports.MonthReportFilename(month))
		if err := reports.WriteMonthReport(c.Writer, month, s.ErpBaseURL); err != nil {
			config.LogError(s.Logger, "productionsync", "MonthReportHandler", "WriteMonthReport", monthId, err)
			c.AbortWithStatus(http.StatusInternalServerError)
		}
	}
}

// TriggerStepHandler runs the step inline, or queues it on the step topic with ?async=true.
func (s *Service) TriggerStepHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		monthId, ok := paramId(c, "id")
		if !ok {
			return
		}
		step := models.WorkflowStep(c.Param("step"))
		if !step.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown step " + string(step)})
			return
		}

		ctx := c.Request.Context()
		if strings.EqualFold(c.Query("async"), "true") {
			messageId, err := s.PublishStep(ctx, monthId, step)
			if err != nil {
				config.LogError(s.Logger, "productionsync", "TriggerStepHandler", "PublishStep", monthId, err)
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, QueuedStepResponse{MonthId: monthId, Step: string(step), MessageId: messageId})
			return
		}

		run, err := s.Runner.Run(ctx, monthId, step, models.SyncTriggeredManual)
		if err != nil {
			status := stepErrorStatus(err)
			if run == nil {
				c.JSON(status, gin.H{"error": err.Error()})
				return
			}
			c.JSON(status, gin.H{"error": err.Error(), "run": mapRunToResponse(run)})
			return
		}
		c.JSON(http.StatusOK, mapRunToResponse(run))
	}
}

func (s *Service) SyncHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		monthId, ok := paramId(c, "id")
		if !ok {
			return
		}

		limit := 20
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		runs, err := models.ListSyncRuns(c.Request.Context(), monthId, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		items := make([]SyncRunResponse, 0, len(runs))
		for _, run := range runs {
			items = append(items, mapRunToResponse(run))
		}
		c.JSON(http.StatusOK, SyncHistoryResponse{Items: items})
	}
}

func (s *Service) SyncRunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		run, err := models.GetSyncRun(ctx, uint(id))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		errs, err := models.ListSyncErrors(ctx, run.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, SyncRunDetailResponse{
			SyncRunResponse: mapRunToResponse(run),
			Errors:          mapErrors(errs),
		})
	}
}

func (s *Service) loadMonthGraph(c *gin.Context, monthId int) (*models.Month, bool) {
	month, err := models.LoadMonthGraph(config.GetDB().WithContext(c.Request.Context()), monthId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "month not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return month, true
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func paramId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func stepErrorStatus(err error) int {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrUnknownStep):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrMonthLocked), errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
