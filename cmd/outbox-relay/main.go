// Package main implements the scheduled Lambda that relays pending outbox
// events to the configured target.
package main

import (
	"context"
	"fmt"
	"log"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"evotree-backend/infrastructure/config"
	"evotree-backend/infrastructure/di"
)

var container *di.Container

func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, _, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}
	if container.Outbox == nil {
		log.Fatalf("outbox relay requires EVENTS_BACKEND=outbox, got %q", cfg.EventsBackend)
	}
}

// RelayResult reports one scheduled run
type RelayResult struct {
	Published int `json:"published"`
}

func handler(ctx context.Context, event awsevents.CloudWatchEvent) (RelayResult, error) {
	published, err := container.Outbox.ProcessBatch(ctx)
	if err != nil {
		return RelayResult{}, fmt.Errorf("relay events: %w", err)
	}

	container.Logger.Info("Outbox batch relayed",
		zap.String("trigger", event.DetailType),
		zap.Int("published", published))
	return RelayResult{Published: published}, nil
}

func main() {
	lambda.Start(handler)
}
