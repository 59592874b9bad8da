// Package chain defines the blockchain collaborator the dapp actions call into.
package chain

import (
	"context"
	"errors"

	"github.com/xueqianLu/dappdash/internal/config"
)

// ContractName is the logical name of a deployed contract. Addresses are
// resolved from configuration by the Blockchain implementation.
type ContractName string

const (
	DappStateContract ContractName = "dappStateContract"
	DappContract      ContractName = "dappContract"
)

func (c ContractName) String() string {
	return string(c)
}

// ErrUnknownContract is returned when a contract name has no configured address.
var ErrUnknownContract = errors.New("unknown contract")

// CallContext describes who calls which contract.
type CallContext struct {
	// Config resolves contract addresses for this call.
	Config   *config.Config
	Contract ContractName
	// From is the caller address. Empty means the configured default account.
	From string
}

// CallResult is what a contract call produced.
type CallResult struct {
	// CallData is the decoded return value for reads and the transaction
	// receipt for writes.
	CallData any
	// CallAccount is the account the call was made from.
	CallAccount string
}

// Blockchain performs contract calls. Get is read-only, Post submits a
// state-changing transaction.
type Blockchain interface {
	Get(ctx context.Context, call CallContext, method string, args ...any) (*CallResult, error)
	Post(ctx context.Context, call CallContext, method string, args ...any) (*CallResult, error)
}
