package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/cockroachdb/errors"

	"github.com/vignesh-goutham/artemis-capture/pkg/alpaca"
	"github.com/vignesh-goutham/artemis-capture/pkg/dynamo"
	"github.com/vignesh-goutham/artemis-capture/pkg/export"
	"github.com/vignesh-goutham/artemis-capture/pkg/types"
)

const maxTradeLimit = 500

func (h *Handler) listTrades(_ context.Context, req events.APIGatewayProxyRequest, _ []string) (int, interface{}, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.QueryStringParameters["symbol"]))
	if symbol == "" {
		return 0, nil, errors.Wrap(ErrMissingParam, "symbol")
	}

	q := alpaca.OrderQuery{Symbol: symbol, Status: req.QueryStringParameters["status"]}
	switch q.Status {
	case "", "open", "closed", "all":
	default:
		return 0, nil, errors.Wrapf(ErrBadRequest, "status must be open, closed or all, got %q", q.Status)
	}
	if raw := req.QueryStringParameters["limit"]; raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxTradeLimit {
			return 0, nil, errors.Wrapf(ErrBadRequest, "limit must be between 1 and %d", maxTradeLimit)
		}
		q.Limit = limit
	}

	if h.deps.Trades == nil {
		return 0, nil, errors.Wrap(ErrUnavailable, "trades")
	}
	records, err := h.deps.Trades.LookupTrades(q)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]interface{}{"symbol": symbol, "trades": records}, nil
}

func (h *Handler) getTrade(_ context.Context, _ events.APIGatewayProxyRequest, params []string) (int, interface{}, error) {
	if params[0] == "" {
		return 0, nil, errors.Wrap(ErrMissingParam, "order id")
	}
	if h.deps.Trades == nil {
		return 0, nil, errors.Wrap(ErrUnavailable, "trades")
	}
	record, err := h.deps.Trades.LookupTrade(params[0])
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, record, nil
}

func (h *Handler) getSetting(ctx context.Context, _ events.APIGatewayProxyRequest, params []string) (int, interface{}, error) {
	name := params[0]
	if name == "" {
		return 0, nil, errors.Wrap(ErrMissingParam, "setting name")
	}
	if h.deps.Settings == nil {
		return 0, nil, errors.Wrap(ErrUnavailable, "settings")
	}
	setting, err := h.deps.Settings.GetSetting(ctx, name)
	if errors.Is(err, dynamo.ErrNotFound) {
		// unset toggles read as disabled
		return http.StatusOK, types.Setting{Name: name}, nil
	}
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, setting, nil
}

type settingBody struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) putSetting(ctx context.Context, req events.APIGatewayProxyRequest, params []string) (int, interface{}, error) {
	name := params[0]
	if name == "" {
		return 0, nil, errors.Wrap(ErrMissingParam, "setting name")
	}
	var body settingBody
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return 0, nil, errors.Wrap(ErrBadRequest, "body must be JSON")
	}
	if body.Enabled == nil {
		return 0, nil, errors.Wrap(ErrMissingParam, "enabled")
	}
	if h.deps.Settings == nil {
		return 0, nil, errors.Wrap(ErrUnavailable, "settings")
	}

	setting := types.Setting{
		Name:      name,
		Enabled:   *body.Enabled,
		UpdatedAt: h.now().UTC().Format(time.RFC3339),
		UpdatedBy: caller(req),
	}
	if err := h.deps.Settings.PutSetting(ctx, setting); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, setting, nil
}

// caller names whoever made the request, most specific identity first
func caller(req events.APIGatewayProxyRequest) string {
	if claims, ok := req.RequestContext.Authorizer["claims"].(map[string]interface{}); ok {
		for _, key := range []string{"email", "cognito:username", "sub"} {
			if v, ok := claims[key].(string); ok && v != "" {
				return v
			}
		}
	}
	id := req.RequestContext.Identity
	switch {
	case id.UserArn != "":
		return id.UserArn
	case id.User != "":
		return id.User
	case id.SourceIP != "":
		return id.SourceIP
	}
	return "dashboard"
}

type workerView struct {
	Found         bool     `json:"found"`
	Status        string   `json:"status,omitempty"`
	LastHeartbeat string   `json:"last_heartbeat,omitempty"`
	AgeSeconds    *float64 `json:"heartbeat_age_seconds,omitempty"`
	Live          bool     `json:"live"`
	Error         string   `json:"error,omitempty"`
}

type queueView struct {
	Entries []types.QueueEntry `json:"entries"`
	Counts  map[string]int     `json:"counts"`
	Worker  workerView         `json:"worker"`
}

func (h *Handler) listQueue(ctx context.Context, _ events.APIGatewayProxyRequest, _ []string) (int, interface{}, error) {
	if h.deps.Queue == nil {
		return 0, nil, errors.Wrap(ErrUnavailable, "queue")
	}
	entries, err := h.deps.Queue.ListQueueEntries(ctx)
	if err != nil {
		return 0, nil, err
	}

	view := queueView{Entries: entries, Counts: map[string]int{}}
	if view.Entries == nil {
		view.Entries = []types.QueueEntry{}
	}
	for _, e := range entries {
		view.Counts[e.Status]++
	}

	snap := h.windows.At(h.now())
	rec, err := h.deps.Queue.GetLiveness(ctx)
	switch {
	case err != nil:
		view.Worker.Error = err.Error()
	case rec != nil:
		view.Worker.Found = true
		view.Worker.Status = rec.Status
		view.Worker.LastHeartbeat = rec.LastHeartbeat
		view.Worker.Live = snap.IsLive(rec)
		if age, ok := snap.HeartbeatAge(rec); ok {
			secs := age.Seconds()
			view.Worker.AgeSeconds = &secs
		}
	}
	return http.StatusOK, view, nil
}

func (h *Handler) runExport(ctx context.Context, req events.APIGatewayProxyRequest, _ []string) (int, interface{}, error) {
	var body export.Request
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return 0, nil, errors.Wrap(ErrBadRequest, "body must be JSON with RFC3339 from and to")
	}
	if err := body.Validate(); err != nil {
		return 0, nil, err
	}
	if h.deps.Export == nil {
		return 0, nil, errors.Wrap(ErrUnavailable, "export")
	}
	result, err := h.deps.Export.Run(ctx, body)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, result, nil
}
