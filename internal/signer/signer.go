package signer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/xueqianLu/dappdash/internal/config"
)

// ErrNoAccount is returned when a call has no from address and no account
// is configured or managed.
var ErrNoAccount = errors.New("no account available")

// Signer resolves calling accounts and signs their transactions.
type Signer struct {
	keyManager KeyManager
}

// NewSigner creates a new Signer with a given KeyManager.
func NewSigner(keyManager KeyManager) *Signer {
	return &Signer{
		keyManager: keyManager,
	}
}

// NewKeyManager builds the key manager selected by cfg.Type.
func NewKeyManager(ctx context.Context, cfg config.KeyManagerConfig, logger *zap.Logger) (KeyManager, error) {
	switch cfg.Type {
	case config.KeyManagerLocal:
		return NewLocalKeyManager(cfg.Local, logger)
	case config.KeyManagerVault:
		vaultConfig := api.DefaultConfig()
		if err := vaultConfig.ReadEnvironment(); err != nil {
			logger.Warn("could not read vault environment variables", zap.Error(err))
		}
		if cfg.Vault.Address != "" {
			vaultConfig.Address = cfg.Vault.Address
		}
		client, err := api.NewClient(vaultConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create vault client: %w", err)
		}
		if cfg.Vault.Token != "" {
			client.SetToken(cfg.Vault.Token)
		}
		return NewVaultKeyManager(ctx, client, cfg.Vault.TransitPath, logger)
	}
	return nil, fmt.Errorf("unknown key manager type %q", cfg.Type)
}

// Accounts returns the list of accounts managed by the underlying KeyManager.
func (s *Signer) Accounts() []common.Address {
	return s.keyManager.Accounts()
}

// CreateKey creates a new account in the KeyManager and returns its address.
func (s *Signer) CreateKey(ctx context.Context) (common.Address, error) {
	return s.keyManager.CreateKey(ctx)
}

// ResolveAccount returns the address a call is made from. An empty from
// falls back to the configured default account, then the first configured
// admin, then the first managed key.
func (s *Signer) ResolveAccount(accounts config.AccountsConfig, from string) (common.Address, error) {
	if from == "" {
		from = accounts.Default
	}
	if from == "" && len(accounts.Admins) > 0 {
		from = accounts.Admins[0]
	}
	if from == "" {
		managed := s.keyManager.Accounts()
		if len(managed) == 0 {
			return common.Address{}, ErrNoAccount
		}
		return managed[0], nil
	}
	if !common.IsHexAddress(from) {
		return common.Address{}, fmt.Errorf("invalid account address %q", from)
	}
	return common.HexToAddress(from), nil
}

// SignTx signs a transaction with the specified account.
func (s *Signer) SignTx(ctx context.Context, address common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return s.keyManager.SignTx(ctx, address, tx, chainID)
}
