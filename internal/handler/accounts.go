package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// AccountSource lists the accounts that can sign dashboard transactions.
type AccountSource interface {
	Accounts() []common.Address
}

// AccountsHandler handles requests for the list of accounts.
type AccountsHandler struct {
	accounts AccountSource
	logger   *zap.Logger
}

// NewAccountsHandler creates a new AccountsHandler.
func NewAccountsHandler(accounts AccountSource, logger *zap.Logger) *AccountsHandler {
	return &AccountsHandler{accounts: accounts, logger: logger}
}

// ServeHTTP implements the http.Handler interface.
func (h *AccountsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	accounts := h.accounts.Accounts()
	accStrs := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		accStrs = append(accStrs, acc.Hex())
	}

	if err := writeJSON(w, http.StatusOK, accStrs); err != nil {
		h.logger.Error("failed to encode accounts", zap.Error(err))
	}
}
