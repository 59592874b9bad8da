package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xueqianLu/dappdash/internal/chain"
	"github.com/xueqianLu/dappdash/internal/chain/eth"
	"github.com/xueqianLu/dappdash/internal/dapp"
	"github.com/xueqianLu/dappdash/internal/format"
	"github.com/xueqianLu/dappdash/internal/metrics"
	"github.com/xueqianLu/dappdash/internal/signer"
)

// ActionRunner runs a named dashboard action.
type ActionRunner interface {
	Run(ctx context.Context, name string, data dapp.ActionData) (*dapp.Envelope, error)
}

// ListActionsHandler lists the available actions.
type ListActionsHandler struct{}

// NewListActionsHandler creates a new ListActionsHandler.
func NewListActionsHandler() *ListActionsHandler {
	return &ListActionsHandler{}
}

// ServeHTTP implements the http.Handler interface.
func (h *ListActionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actions := dapp.Actions()
	out := make([]ActionInfo, len(actions))
	for i, a := range actions {
		out[i] = ActionInfo{Name: a.Name, Method: a.Method}
	}
	_ = writeJSON(w, http.StatusOK, out)
}

// ActionHandler runs the action named by the {action} path segment. The
// request body is the JSON encoded dapp.ActionData. The "return" query
// parameter selects the rendered field: "result" (default) or "unitResult".
type ActionHandler struct {
	runner    ActionRunner
	formatter *format.Formatter
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewActionHandler creates a new ActionHandler. m may be nil.
func NewActionHandler(runner ActionRunner, formatter *format.Formatter, logger *zap.Logger, m *metrics.Metrics) *ActionHandler {
	return &ActionHandler{
		runner:    runner,
		formatter: formatter,
		logger:    logger,
		metrics:   m,
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("action")
	if _, ok := dapp.LookupAction(name); !ok {
		writeError(w, http.StatusNotFound, "Unknown action: "+name)
		return
	}

	field := r.URL.Query().Get("return")
	switch field {
	case "":
		field = dapp.FieldResult
	case dapp.FieldResult, dapp.FieldUnitResult:
	default:
		writeError(w, http.StatusBadRequest, "Invalid return field: "+field)
		return
	}

	var data dapp.ActionData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	start := time.Now()
	env, err := h.runner.Run(r.Context(), name, data)
	h.metrics.TrackAction(name, start, err)
	if err != nil {
		h.logger.Warn("action failed", zap.String("action", name), zap.String("from", data.From), zap.Error(err))
		env = &dapp.Envelope{Type: dapp.ResultError, Label: "Error", Result: err.Error()}
		h.respond(w, errorStatus(err), env, dapp.FieldResult)
		return
	}

	h.logger.Debug("action completed", zap.String("action", name), zap.Duration("took", time.Since(start)))
	h.respond(w, http.StatusOK, env, field)
}

func (h *ActionHandler) respond(w http.ResponseWriter, status int, env *dapp.Envelope, field string) {
	html, err := dapp.Render(h.formatter, env, field)
	if err != nil {
		h.logger.Error("failed to render result", zap.String("type", string(env.Type)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to render result: "+err.Error())
		return
	}
	if err := writeJSON(w, status, ActionResponse{Envelope: env, HTML: html}); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, dapp.ErrInvalidAmount),
		errors.Is(err, signer.ErrAccountNotFound),
		errors.Is(err, signer.ErrNoAccount):
		return http.StatusBadRequest
	case errors.Is(err, chain.ErrUnknownContract),
		errors.Is(err, dapp.ErrInvalidDecimals):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, eth.ErrTransactionReverted):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}
