package api

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/cockroachdb/errors"

	"github.com/vignesh-goutham/artemis-capture/pkg/alpaca"
	"github.com/vignesh-goutham/artemis-capture/pkg/dynamo"
	"github.com/vignesh-goutham/artemis-capture/pkg/export"
	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
)

var (
	// ErrMissingParam is returned when a required parameter is absent
	ErrMissingParam = errors.New("missing required parameter")
	// ErrBadRequest is returned for malformed parameters or bodies
	ErrBadRequest = errors.New("bad request")
	// ErrUnavailable is returned when a route's backend is not configured
	ErrUnavailable = errors.New("backend not configured")
)

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) headers() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  h.corsOrigin,
		"Access-Control-Allow-Methods": "GET,PUT,POST,OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type,Authorization",
	}
}

func (h *Handler) respond(status int, body interface{}) events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    h.headers(),
	}
	if body == nil {
		return resp
	}
	data, err := json.Marshal(body)
	if err != nil {
		logger.Errorw("Failed to encode response", logger.FieldError, err)
		resp.StatusCode = http.StatusInternalServerError
		data, _ = json.Marshal(errorBody{Error: "failed to encode response"})
	}
	resp.Body = string(data)
	return resp
}

func (h *Handler) fail(err error) events.APIGatewayProxyResponse {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return h.respond(status, errorBody{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingParam), errors.Is(err, ErrBadRequest), errors.Is(err, export.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, dynamo.ErrNotFound), alpaca.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
