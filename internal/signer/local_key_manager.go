package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/xueqianLu/dappdash/internal/config"
)

// LocalKeyManager manages keys stored locally on disk.
type LocalKeyManager struct {
	keyDir   string
	password string
	scryptN  int
	scryptP  int
	logger   *zap.Logger
	keys     map[common.Address]*ecdsa.PrivateKey
	mu       sync.RWMutex
}

// NewLocalKeyManager creates a new LocalKeyManager and loads existing keys from disk.
func NewLocalKeyManager(cfg config.LocalConfig, logger *zap.Logger) (*LocalKeyManager, error) {
	if err := os.MkdirAll(cfg.KeyDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	km := &LocalKeyManager{
		keyDir:   cfg.KeyDir,
		password: cfg.Password,
		scryptN:  keystore.StandardScryptN,
		scryptP:  keystore.StandardScryptP,
		logger:   logger,
		keys:     make(map[common.Address]*ecdsa.PrivateKey),
	}
	if cfg.LightScrypt {
		km.scryptN = keystore.LightScryptN
		km.scryptP = keystore.LightScryptP
	}

	files, err := os.ReadDir(cfg.KeyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read key directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		keyJSON, err := os.ReadFile(filepath.Join(cfg.KeyDir, file.Name()))
		if err != nil {
			logger.Warn("failed to read key file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}
		key, err := keystore.DecryptKey(keyJSON, cfg.Password)
		if err != nil {
			logger.Warn("failed to decrypt key file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}
		km.keys[key.Address] = key.PrivateKey
		logger.Info("loaded local key", zap.String("address", key.Address.Hex()))
	}

	return km, nil
}

// CreateKey generates a new key pair and saves it to disk (encrypted).
func (km *LocalKeyManager) CreateKey(_ context.Context) (common.Address, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to generate private key: %w", err)
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	keyJSON, err := keystore.EncryptKey(&keystore.Key{
		Address:    address,
		PrivateKey: privateKey,
	}, km.password, km.scryptN, km.scryptP)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encrypt private key: %w", err)
	}
	filePath := filepath.Join(km.keyDir, address.Hex()+".json")
	if err := os.WriteFile(filePath, keyJSON, 0600); err != nil {
		return common.Address{}, fmt.Errorf("failed to save encrypted key: %w", err)
	}

	km.mu.Lock()
	km.keys[address] = privateKey
	km.mu.Unlock()

	km.logger.Info("created local key", zap.String("address", address.Hex()))
	return address, nil
}

// Accounts returns all managed account addresses.
func (km *LocalKeyManager) Accounts() []common.Address {
	km.mu.RLock()
	defer km.mu.RUnlock()

	addresses := make([]common.Address, 0, len(km.keys))
	for addr := range km.keys {
		addresses = append(addresses, addr)
	}
	return sortAddresses(addresses)
}

// SignTx signs a transaction using a locally stored private key.
func (km *LocalKeyManager) SignTx(_ context.Context, address common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	km.mu.RLock()
	privateKey, ok := km.keys[address]
	km.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address.Hex())
	}

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signedTx, nil
}
