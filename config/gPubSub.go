package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// StepMessage asks a worker to run one workflow step for a month.
type StepMessage struct {
	MonthId       int       `json:"month_id"`
	Step          string    `json:"step"`
	RequestedAt   time.Time `json:"requested_at"`
	CorrelationId string    `json:"correlation_id"`
}

// OrderingKey keeps the steps queued for one month in publish order.
func (m StepMessage) OrderingKey() string {
	return "month-" + strconv.Itoa(m.MonthId)
}

var (
	stepPublisherMu sync.Mutex
	stepClient      *pubsub.Client
	stepTopics      = map[string]*pubsub.Topic{}
)

// pubsubProject prefers PUBSUB_PROJECT_ID over GOOGLE_CLOUD_PROJECT.
func pubsubProject() string {
	for _, key := range []string{"PUBSUB_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// stepTopic returns the cached topic handle, dialing the client on first use.
// PUBSUB_CREDENTIALS_JSON overrides Application Default Credentials.
func stepTopic(ctx context.Context, name string) (*pubsub.Topic, error) {
	stepPublisherMu.Lock()
	defer stepPublisherMu.Unlock()

	if t, ok := stepTopics[name]; ok {
		return t, nil
	}
	if stepClient == nil {
		c, err := dialPubSub(ctx)
		if err != nil {
			return nil, err
		}
		stepClient = c
	}

	t := stepClient.Topic(name)
	if CreatePubSubTopic() {
		exists, err := t.Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("check topic %q: %w", name, err)
		}
		if !exists {
			if t, err = stepClient.CreateTopic(ctx, name); err != nil {
				return nil, fmt.Errorf("create topic %q: %w", name, err)
			}
		}
	}
	t.EnableMessageOrdering = true
	stepTopics[name] = t
	return t, nil
}

func dialPubSub(ctx context.Context) (*pubsub.Client, error) {
	projectID := pubsubProject()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}
	var opts []option.ClientOption
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}

	for attempt := 1; ; attempt++ {
		c, err := pubsub.NewClient(ctx, projectID, opts...)
		if err == nil {
			log.Printf("pubsub client ready (project_id=%s attempt=%d)", projectID, attempt)
			return c, nil
		}
		if attempt >= 5 || ctx.Err() != nil {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		sleep := backoff(attempt)
		log.Printf("pubsub client init failed (project_id=%s attempt=%d): %v; retrying in %s", projectID, attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// PublishStepMessage publishes and returns the Pub/Sub server-assigned message ID.
func PublishStepMessage(ctx context.Context, topicName string, msg StepMessage) (string, error) {
	if topicName == "" {
		return "", errors.New("topic name is required")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	t, err := stepTopic(ctx, topicName)
	if err != nil {
		return "", err
	}

	result := t.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: msg.OrderingKey(),
		Attributes: map[string]string{
			"step":     msg.Step,
			"month_id": strconv.Itoa(msg.MonthId),
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		// A failed publish pauses its ordering key until resumed.
		t.ResumePublish(msg.OrderingKey())
		return "", fmt.Errorf("publish %s for month %d: %w", msg.Step, msg.MonthId, err)
	}
	return id, nil
}
