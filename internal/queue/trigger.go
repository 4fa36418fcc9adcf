// Package queue sends forecast refresh requests to the worker queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"surfcast/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// RefreshTrigger enqueues one RefreshMessage per location.
type RefreshTrigger struct {
	client   SQSSender
	queueURL string
	clock    types.Clock
	logger   *slog.Logger
}

// NewRefreshTrigger creates a RefreshTrigger sending to queueURL.
func NewRefreshTrigger(client SQSSender, queueURL string, clock types.Clock, logger *slog.Logger) *RefreshTrigger {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshTrigger{client: client, queueURL: queueURL, clock: clock, logger: logger}
}

// NewBatchID returns an identifier grouping the messages of one refresh run.
func NewBatchID() string {
	return "refresh_" + uuid.New().String()
}

// Enqueue asks the worker to rebuild the forecast for locationID. Each
// message carries a fresh trace ID.
func (t *RefreshTrigger) Enqueue(ctx context.Context, batchID, locationID, reason string) error {
	msg := types.RefreshMessage{
		BatchID:     batchID,
		TraceID:     uuid.New().String(),
		LocationID:  locationID,
		RequestedAt: t.clock.Now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal RefreshMessage: %w", err)
	}

	_, err = t.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(t.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"reason": {
				DataType:    aws.String("String"),
				StringValue: aws.String(reason),
			},
		},
	})
	if err != nil {
		return types.NewAppErrorWithDetails(types.ErrCodeInternalQueue,
			fmt.Sprintf("failed to enqueue refresh for %s", locationID), err,
			map[string]any{"queue_url": t.queueURL, "batch_id": batchID})
	}

	t.logger.InfoContext(ctx, "refresh message sent",
		"batch_id", batchID,
		"trace_id", msg.TraceID,
		"location_id", locationID,
		"reason", reason,
	)
	return nil
}

// DecodeRefreshMessage parses a queue body.
func DecodeRefreshMessage(body string) (types.RefreshMessage, error) {
	var msg types.RefreshMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return msg, fmt.Errorf("queue: malformed refresh message: %w", err)
	}
	if msg.LocationID == "" {
		return msg, fmt.Errorf("queue: refresh message has no location_id")
	}
	return msg, nil
}

// Since reports how long ago msg was requested.
func Since(msg types.RefreshMessage, now time.Time) time.Duration {
	return now.Sub(msg.RequestedAt)
}
