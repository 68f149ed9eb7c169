package app

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/vignesh-goutham/artemis-capture/pkg/capture"
	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
	"github.com/vignesh-goutham/artemis-capture/pkg/schedule"
)

// ScheduledHandler is the shape of an EventBridge-triggered Lambda
type ScheduledHandler func(ctx context.Context, event events.CloudWatchEvent) (map[string]interface{}, error)

// AutoQueueJob runs one auto-queue pass
type AutoQueueJob interface {
	Run(ctx context.Context, runID string) (*capture.AutoQueueResult, error)
}

// QueueCheckJob runs one queue check
type QueueCheckJob interface {
	Run(ctx context.Context, runID string) *capture.QueueCheckResult
}

// InstanceStartJob runs one scheduled instance start
type InstanceStartJob interface {
	Run(ctx context.Context) *schedule.Result
}

// AutoQueueHandler returns the auto-queue Lambda handler. A failed run is
// returned as an error so the invocation itself fails.
func AutoQueueHandler(job AutoQueueJob, newRunID func() string) ScheduledHandler {
	return func(ctx context.Context, _ events.CloudWatchEvent) (map[string]interface{}, error) {
		defer logger.Sync()

		result, err := job.Run(ctx, newRunID())
		if err != nil {
			logger.Errorw("Auto-queue failed", logger.FieldError, err)
			return nil, err
		}
		return Response(http.StatusOK, result)
	}
}

// QueueCheckHandler returns the queue-checker Lambda handler. A failed launch
// answers 502 without failing the invocation; the next tick retries.
func QueueCheckHandler(job QueueCheckJob, newRunID func() string) ScheduledHandler {
	return func(ctx context.Context, _ events.CloudWatchEvent) (map[string]interface{}, error) {
		defer logger.Sync()

		result := job.Run(ctx, newRunID())
		if result.Failed() {
			return Response(http.StatusBadGateway, result)
		}
		return Response(http.StatusOK, result)
	}
}

// InstanceStartHandler returns the scheduled instance start Lambda handler
func InstanceStartHandler(job InstanceStartJob) ScheduledHandler {
	return func(ctx context.Context, _ events.CloudWatchEvent) (map[string]interface{}, error) {
		defer logger.Sync()

		result := job.Run(ctx)
		if result.Failed() {
			return Response(http.StatusBadGateway, result)
		}
		return Response(http.StatusOK, result)
	}
}
