// Package api serves the dashboard's API Gateway proxy routes: trade lookup,
// settings toggles, the capture queue view and time-series export.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/vignesh-goutham/artemis-capture/pkg/alpaca"
	"github.com/vignesh-goutham/artemis-capture/pkg/export"
	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
	"github.com/vignesh-goutham/artemis-capture/pkg/timewindow"
	"github.com/vignesh-goutham/artemis-capture/pkg/types"
)

// TradeLookup reads broker orders
type TradeLookup interface {
	LookupTrades(q alpaca.OrderQuery) ([]types.TradeRecord, error)
	LookupTrade(orderID string) (*types.TradeRecord, error)
}

// SettingsStore reads and writes dashboard toggles
type SettingsStore interface {
	GetSetting(ctx context.Context, name string) (*types.Setting, error)
	PutSetting(ctx context.Context, setting types.Setting) error
}

// QueueView lists queue entries and the worker heartbeat
type QueueView interface {
	ListQueueEntries(ctx context.Context) ([]types.QueueEntry, error)
	GetLiveness(ctx context.Context) (*types.Liveness, error)
}

// Exporter runs a time-series export
type Exporter interface {
	Run(ctx context.Context, req export.Request) (*export.Result, error)
}

// Deps are the backends behind the routes. A nil backend makes its routes
// answer 503.
type Deps struct {
	Trades   TradeLookup
	Settings SettingsStore
	Queue    QueueView
	Export   Exporter
}

// Handler routes API Gateway proxy requests
type Handler struct {
	deps       Deps
	windows    timewindow.Windows
	corsOrigin string
	now        func() time.Time
}

// NewHandler returns a Handler
func NewHandler(deps Deps, windows timewindow.Windows, corsOrigin string) *Handler {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	return &Handler{
		deps:       deps,
		windows:    windows,
		corsOrigin: corsOrigin,
		now:        time.Now,
	}
}

type route func(ctx context.Context, req events.APIGatewayProxyRequest, params []string) (int, interface{}, error)

// Handle is the Lambda entry point
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	log := logger.With(logger.FieldRequestID, req.RequestContext.RequestID, logger.FieldRoute, req.HTTPMethod+" "+req.Path)

	if req.HTTPMethod == http.MethodOptions {
		return h.respond(http.StatusNoContent, nil), nil
	}

	fn, params, ok := h.match(req.HTTPMethod, req.Path)
	if !ok {
		return h.respond(http.StatusNotFound, errorBody{Error: "not found"}), nil
	}

	status, body, err := fn(ctx, req, params)
	if err != nil {
		resp := h.fail(err)
		if resp.StatusCode >= http.StatusInternalServerError {
			log.Errorw("Request failed", logger.FieldError, err)
		} else {
			log.Infow("Request rejected", logger.FieldStatus, resp.StatusCode, logger.FieldError, err)
		}
		return resp, nil
	}
	log.Debugw("Request served", logger.FieldStatus, status)
	return h.respond(status, body), nil
}

// match resolves method and path to a route, returning the path parameters
func (h *Handler) match(method, path string) (route, []string, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(segments) == 1 && segments[0] == "trades" && method == http.MethodGet:
		return h.listTrades, nil, true
	case len(segments) == 2 && segments[0] == "trades" && method == http.MethodGet:
		return h.getTrade, segments[1:], true
	case len(segments) == 2 && segments[0] == "settings" && method == http.MethodGet:
		return h.getSetting, segments[1:], true
	case len(segments) == 2 && segments[0] == "settings" && method == http.MethodPut:
		return h.putSetting, segments[1:], true
	case len(segments) == 1 && segments[0] == "queue" && method == http.MethodGet:
		return h.listQueue, nil, true
	case len(segments) == 1 && segments[0] == "export" && method == http.MethodPost:
		return h.runExport, nil, true
	}
	return nil, nil, false
}
