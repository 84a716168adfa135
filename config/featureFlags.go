package config

import (
	"os"
	"strings"
)

func envBool(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

// PwArchiveEnabled uploads goods-received payloads to GCS after dispatch.
//
// Set via env:
// - PW_ARCHIVE_ENABLED=true (requires GCS_BUCKET)
func PwArchiveEnabled() bool {
	return envBool("PW_ARCHIVE_ENABLED", false)
}

// UpdateInvoicingRw pushes renumbered RWs back to the invoicing service.
// Disable with FAKTUROWNIA_UPDATE_RW=false when RWs are renumbered there by hand.
func UpdateInvoicingRw() bool {
	return envBool("FAKTUROWNIA_UPDATE_RW", true)
}

// CreatePubSubTopic creates the step topic on first publish (local emulator setups).
func CreatePubSubTopic() bool {
	return envBool("PUBSUB_CREATE_TOPIC", false)
}

// PubSubPushEnabled toggles the /pubsub/production-step endpoint.
func PubSubPushEnabled() bool {
	return envBool("ENABLE_PUBSUB_PUSH_ENDPOINT", true)
}

// StepTopic is the Pub/Sub topic carrying StepMessage payloads.
func StepTopic() string {
	if v := strings.TrimSpace(os.Getenv("PRODUCTION_STEP_TOPIC")); v != "" {
		return v
	}
	return "production-step"
}

// PublishStepEvents announces every finished workflow step on StepTopic.
func PublishStepEvents() bool {
	return envBool("PUBLISH_STEP_EVENTS", false)
}

// StepEventTopic carries "step finished" notifications; kept apart from StepTopic
// so subscribers of the events never re-trigger a step.
func StepEventTopic() string {
	if v := strings.TrimSpace(os.Getenv("PRODUCTION_STEP_EVENT_TOPIC")); v != "" {
		return v
	}
	return "production-step-events"
}
