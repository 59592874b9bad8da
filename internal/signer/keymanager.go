package signer

import (
	"context"
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrAccountNotFound is returned when no key is held for an address.
var ErrAccountNotFound = errors.New("account not found")

// KeyManager defines the interface for managing the keys that sign dashboard transactions.
// It abstracts the underlying key storage, which can be a local keystore or a remote service like Vault.
type KeyManager interface {
	// Accounts returns the Ethereum addresses managed by the KeyManager, sorted.
	Accounts() []common.Address

	// CreateKey generates a new key pair and returns the corresponding Ethereum address.
	// The key is stored in the underlying storage backend.
	CreateKey(ctx context.Context) (common.Address, error)

	// SignTx signs a transaction with the key corresponding to the specified address.
	// It requires the chain ID for EIP-155 replay protection.
	SignTx(ctx context.Context, address common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

func sortAddresses(addrs []common.Address) []common.Address {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Cmp(addrs[j]) < 0 })
	return addrs
}
