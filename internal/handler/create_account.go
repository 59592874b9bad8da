package handler

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// KeyCreator creates new signing accounts.
type KeyCreator interface {
	CreateKey(ctx context.Context) (common.Address, error)
}

// CreateAccountHandler handles requests to create a new account.
type CreateAccountHandler struct {
	keys   KeyCreator
	logger *zap.Logger
}

// NewCreateAccountHandler creates a new CreateAccountHandler.
func NewCreateAccountHandler(keys KeyCreator, logger *zap.Logger) *CreateAccountHandler {
	return &CreateAccountHandler{keys: keys, logger: logger}
}

// ServeHTTP implements the http.Handler interface.
func (h *CreateAccountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	address, err := h.keys.CreateKey(r.Context())
	if err != nil {
		h.logger.Error("failed to create account", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create new account: "+err.Error())
		return
	}

	h.logger.Info("account created", zap.String("address", address.Hex()))
	if err := writeJSON(w, http.StatusCreated, CreateAccountResponse{Address: address.Hex()}); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
