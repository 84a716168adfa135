package productionsync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"bitbucket.org/mmdatafocus/production_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PublishStep queues a step for the push worker and returns the Pub/Sub message id.
func (s *Service) PublishStep(ctx context.Context, monthId int, step models.WorkflowStep) (string, error) {
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	if correlationId == "" {
		correlationId = uuid.NewString()
	}
	publish := s.Publish
	if publish == nil {
		publish = config.PublishStepMessage
	}
	return publish(ctx, config.StepTopic(), config.StepMessage{
		MonthId:       monthId,
		Step:          string(step),
		RequestedAt:   s.now().UTC(),
		CorrelationId: correlationId,
	})
}

// PubSubPushHandler runs a queued step once per message id.
// Malformed messages are acked; a locked month or a delivery still in progress
// answers 409 so Pub/Sub redelivers later.
func (s *Service) PubSubPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.PubSubPushEnabled() {
			c.Status(http.StatusNoContent)
			return
		}

		msg, messageId, ok := decodeStepMessage(c.Request.Body)
		if !ok {
			c.Status(http.StatusNoContent)
			return
		}
		step := models.WorkflowStep(msg.Step)

		ctx := c.Request.Context()
		if msg.CorrelationId != "" {
			ctx = utils.SetCorrelationIdInContext(ctx, msg.CorrelationId)
		}
		logger := s.Logger.WithFields(logrus.Fields{
			"month_id":   msg.MonthId,
			"step":       step,
			"message_id": messageId,
		})

		db := config.GetDB().WithContext(ctx)
		skip, err := workflow.BeginIdempotency(db, msg.MonthId, step, messageId)
		if err != nil {
			if errors.Is(err, workflow.ErrIdempotencyInProgress) {
				c.Status(http.StatusConflict)
				return
			}
			config.LogError(s.Logger, "productionsync", "PubSubPushHandler", "BeginIdempotency", messageId, err)
			c.Status(http.StatusInternalServerError)
			return
		}
		if skip {
			logger.Info("step message already processed")
			c.Status(http.StatusNoContent)
			return
		}

		_, runErr := s.Runner.Run(ctx, msg.MonthId, step, models.SyncTriggeredPubSub)
		if runErr != nil {
			if err := workflow.MarkIdempotencyFailed(db, msg.MonthId, step, messageId, runErr); err != nil {
				config.LogError(s.Logger, "productionsync", "PubSubPushHandler", "MarkIdempotencyFailed", messageId, err)
			}
			if errors.Is(runErr, workflow.ErrMonthLocked) {
				c.Status(http.StatusConflict)
				return
			}
			logger.WithError(runErr).Warn("queued step failed")
			c.Status(http.StatusNoContent)
			return
		}

		if err := workflow.MarkIdempotencySucceeded(db, msg.MonthId, step, messageId); err != nil {
			config.LogError(s.Logger, "productionsync", "PubSubPushHandler", "MarkIdempotencySucceeded", messageId, err)
		}
		c.Status(http.StatusNoContent)
	}
}

// decodeStepMessage unwraps the push envelope. The Pub/Sub message id keys
// idempotency; without it the correlation id is used.
func decodeStepMessage(r io.Reader) (config.StepMessage, string, bool) {
	var msg config.StepMessage
	body, err := io.ReadAll(r)
	if err != nil {
		return msg, "", false
	}

	var envelope PubSubPushEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return msg, "", false
	}
	if err := json.Unmarshal(envelope.Message.Data, &msg); err != nil {
		return msg, "", false
	}
	if msg.MonthId <= 0 || !models.WorkflowStep(msg.Step).IsValid() {
		return msg, "", false
	}

	messageId := envelope.Message.MessageId
	if messageId == "" {
		messageId = msg.CorrelationId
	}
	if messageId == "" {
		messageId = msg.Step + ":" + strconv.Itoa(msg.MonthId) + ":" + msg.RequestedAt.UTC().Format("20060102T150405")
	}
	return msg, messageId, true
}
