package config

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/pubsub"
)

var (
	pubsubClient *pubsub.Client
	eventTopic   *pubsub.Topic
)

// ConnectPubSub initializes the optional event fan-out topic. Downstream
// auditors (back-office, reporting) consume the same ledger events the
// engine commits; publishing is best-effort and never blocks a commit.
//
// Env:
// - PUBSUB_PROJECT_ID
// - UPL_EVENT_TOPIC (default "upl-events")
func ConnectPubSub() {
	projectID := strings.TrimSpace(os.Getenv("PUBSUB_PROJECT_ID"))
	if projectID == "" {
		log.Printf("PUBSUB_PROJECT_ID not set; running without event fan-out")
		return
	}
	topicID := strings.TrimSpace(os.Getenv("UPL_EVENT_TOPIC"))
	if topicID == "" {
		topicID = "upl-events"
	}

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		log.Printf("failed to create pubsub client: %v; running without event fan-out", err)
		return
	}
	pubsubClient = client
	eventTopic = client.Topic(topicID)
	log.Printf("pubsub event fan-out enabled (topic=%s)", topicID)
}

// PublishEvent publishes obj as JSON to the event topic, if configured.
// Errors are logged, never returned: the ledger row is the source of
// truth and fan-out is an optimization.
func PublishEvent(ctx context.Context, eventType string, obj any) {
	if eventTopic == nil {
		return
	}
	data, err := json.Marshal(obj)
	if err != nil {
		LogError(GetLogger(), "gPubSub.go", "PublishEvent", "json.Marshal", eventType, err)
		return
	}
	result := eventTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event_type": eventType},
	})
	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			LogError(GetLogger(), "gPubSub.go", "PublishEvent", "publish", eventType, err)
		}
	}()
}

// ClosePubSub flushes and closes the pubsub client on shutdown.
func ClosePubSub() {
	if eventTopic != nil {
		eventTopic.Stop()
	}
	if pubsubClient != nil {
		_ = pubsubClient.Close()
	}
}
