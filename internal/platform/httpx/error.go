package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/webcitydotdev/woodwork-site-example/internal/platform/requestctx"
)

// Code is the machine-readable reason carried in the "error" field of API
// responses.
type Code string

const (
	CodeRouteNotFound    Code = "route_not_found"
	CodeMethodNotAllowed Code = "method_not_allowed"
	CodeUnauthenticated  Code = "unauthenticated"
	CodeInvalidModel     Code = "invalid_model"
	CodeInvalidQuery     Code = "invalid_query"
	CodeInvalidBody      Code = "invalid_body"
	CodeInvalidLocale    Code = "invalid_locale"
	CodeCMSUnavailable   Code = "cms_unavailable"
	CodeInternal         Code = "internal"
)

var codeStatus = map[Code]int{
	CodeRouteNotFound:    http.StatusNotFound,
	CodeMethodNotAllowed: http.StatusMethodNotAllowed,
	CodeUnauthenticated:  http.StatusUnauthorized,
	CodeInvalidModel:     http.StatusBadRequest,
	CodeInvalidQuery:     http.StatusBadRequest,
	CodeInvalidBody:      http.StatusBadRequest,
	CodeInvalidLocale:    http.StatusBadRequest,
	CodeCMSUnavailable:   http.StatusBadGateway,
}

// Status maps the code to its HTTP status. Unknown codes are server errors.
func (c Code) Status() int {
	if status, ok := codeStatus[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is a client-facing API failure.
type Error struct {
	Code    Code
	Message string
	// Field names the offending query or body field, if any.
	Field string
}

// Errorf builds an Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// OnField returns a copy of e pointing at field.
func (e *Error) OnField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type envelope struct {
	Error     Code   `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// WriteError renders err as the API error envelope. Errors that are not an
// *Error are logged and reported as an opaque internal failure.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		requestctx.Logger(ctx).Error("api: unhandled error", zap.Error(err))
		apiErr = &Error{Code: CodeInternal, Message: "internal error"}
	}
	status := apiErr.Code.Status()
	WriteJSON(w, status, envelope{
		Error:     apiErr.Code,
		Message:   clip(apiErr.Message, 512),
		Status:    status,
		Field:     clip(apiErr.Field, 128),
		RequestID: clip(middleware.GetReqID(ctx), 80),
		TraceID:   clip(requestctx.TraceID(ctx), 64),
	})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clip flattens value onto one line and truncates it to limit bytes.
func clip(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
