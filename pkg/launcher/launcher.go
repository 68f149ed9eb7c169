// Package launcher sends one-way start requests to the capture worker.
//
// A trigger is an asynchronous Lambda invocation. The only thing the caller
// learns is whether Lambda accepted the event; the worker's own startup is
// never awaited or verified. Two overlapping triggers can both be accepted,
// and the worker is expected to treat the second as a no-op.
package launcher

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/cockroachdb/errors"
)

// InvokeAPI is the subset of the Lambda client the launcher uses
type InvokeAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Ack is the acknowledgment returned by the invoke API. It says nothing about
// whether the worker came up.
type Ack struct {
	StatusCode int32  `json:"status_code"`
	RequestID  string `json:"request_id,omitempty"`
}

// Accepted reports whether Lambda queued the event
func (a Ack) Accepted() bool {
	return a.StatusCode == http.StatusAccepted
}

// Payload is sent to the capture worker on launch
type Payload struct {
	Source    string   `json:"source"`
	RunID     string   `json:"run_id"`
	EventIDs  []string `json:"event_ids"`
	Triggered string   `json:"triggered_at"`
}

// Launcher triggers the capture worker function
type Launcher struct {
	api      InvokeAPI
	function string
	timeout  time.Duration
}

// New returns a Launcher for the named function. Each trigger call is bounded by timeout.
func New(api InvokeAPI, function string, timeout time.Duration) *Launcher {
	return &Launcher{api: api, function: function, timeout: timeout}
}

// NewFromConfig builds a Launcher on a Lambda client from cfg
func NewFromConfig(cfg aws.Config, function string, timeout time.Duration) *Launcher {
	return New(lambda.NewFromConfig(cfg), function, timeout)
}

// Function returns the target function name
func (l *Launcher) Function() string {
	return l.function
}

// Trigger invokes the worker asynchronously. An error is returned when the
// call fails, times out, or Lambda answers with anything other than 202.
// There is no retry; the next scheduled tick tries again.
func (l *Launcher) Trigger(ctx context.Context, payload Payload) (Ack, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Ack{}, errors.Wrap(err, "failed to marshal launch payload")
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	out, err := l.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(l.function),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        body,
	})
	if err != nil {
		return Ack{}, errors.Wrapf(err, "failed to invoke %s", l.function)
	}

	ack := Ack{StatusCode: out.StatusCode}
	if id, ok := requestID(out); ok {
		ack.RequestID = id
	}
	if !ack.Accepted() {
		return ack, errors.Newf("invoke %s returned status %d", l.function, out.StatusCode)
	}
	return ack, nil
}

func requestID(out *lambda.InvokeOutput) (string, bool) {
	return awsmiddleware.GetRequestIDMetadata(out.ResultMetadata)
}
