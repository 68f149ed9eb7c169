package app

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vignesh-goutham/artemis-capture/pkg/capture"
	"github.com/vignesh-goutham/artemis-capture/pkg/schedule"
)

type autoQueueFunc func(ctx context.Context, runID string) (*capture.AutoQueueResult, error)

func (f autoQueueFunc) Run(ctx context.Context, runID string) (*capture.AutoQueueResult, error) {
	return f(ctx, runID)
}

type queueCheckFunc func(ctx context.Context, runID string) *capture.QueueCheckResult

func (f queueCheckFunc) Run(ctx context.Context, runID string) *capture.QueueCheckResult {
	return f(ctx, runID)
}

type instanceStartFunc func(ctx context.Context) *schedule.Result

func (f instanceStartFunc) Run(ctx context.Context) *schedule.Result {
	return f(ctx)
}

func fixedRunID() string { return "run-1" }

func decodeBody(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resp["body"].(string)), &body))
	return body
}

func TestAutoQueueHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := AutoQueueHandler(autoQueueFunc(func(_ context.Context, runID string) (*capture.AutoQueueResult, error) {
			return &capture.AutoQueueResult{RunID: runID, Queued: 2}, nil
		}), fixedRunID)

		resp, err := h(context.Background(), events.CloudWatchEvent{})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp["statusCode"])
		body := decodeBody(t, resp)
		assert.Equal(t, "run-1", body["run_id"])
		assert.Equal(t, 2.0, body["queued"])
	})

	t.Run("event source failure fails the invocation", func(t *testing.T) {
		sourceErr := errors.New("ProvisionedThroughputExceededException")
		h := AutoQueueHandler(autoQueueFunc(func(context.Context, string) (*capture.AutoQueueResult, error) {
			return nil, errors.Wrap(sourceErr, "failed to list events for category C")
		}), fixedRunID)

		resp, err := h(context.Background(), events.CloudWatchEvent{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, sourceErr))
		assert.Nil(t, resp)
	})
}

func TestQueueCheckHandler(t *testing.T) {
	tests := []struct {
		action string
		status int
	}{
		{capture.ActionNothingToDo, http.StatusOK},
		{capture.ActionNotDue, http.StatusOK},
		{capture.ActionAlreadyRunning, http.StatusOK},
		{capture.ActionLaunched, http.StatusOK},
		{capture.ActionLaunchFailed, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			h := QueueCheckHandler(queueCheckFunc(func(_ context.Context, runID string) *capture.QueueCheckResult {
				return &capture.QueueCheckResult{RunID: runID, Action: tt.action}
			}), fixedRunID)

			resp, err := h(context.Background(), events.CloudWatchEvent{})
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp["statusCode"])
			assert.Equal(t, tt.action, decodeBody(t, resp)["action"])
		})
	}
}

func TestInstanceStartHandler(t *testing.T) {
	tests := []struct {
		action string
		status int
	}{
		{schedule.ActionStarted, http.StatusOK},
		{schedule.ActionAlreadyRunning, http.StatusOK},
		{schedule.ActionMarketClosed, http.StatusOK},
		{schedule.ActionNotScheduled, http.StatusOK},
		{schedule.ActionSkipped, http.StatusOK},
		{schedule.ActionFailed, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			h := InstanceStartHandler(instanceStartFunc(func(context.Context) *schedule.Result {
				return &schedule.Result{InstanceID: "i-1", Action: tt.action}
			}))

			resp, err := h(context.Background(), events.CloudWatchEvent{})
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp["statusCode"])
		})
	}
}
