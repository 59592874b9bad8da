package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xueqianLu/dappdash/internal/dapp"
)

// HealthResponse is the body of the health check.
type HealthResponse struct {
	Status string `json:"status"`
}

// CreateAccountResponse represents the response for a new account creation.
type CreateAccountResponse struct {
	Address string `json:"address"`
}

// ActionInfo describes one entry of the action table.
type ActionInfo struct {
	Name   string      `json:"name"`
	Method dapp.Method `json:"method"`
}

// ActionResponse carries the result envelope of an action and the HTML
// rendered for the requested field.
type ActionResponse struct {
	Envelope *dapp.Envelope `json:"envelope"`
	HTML     string         `json:"html"`
}

// ErrorResponse represents a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, ErrorResponse{Error: msg})
}
