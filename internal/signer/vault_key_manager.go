package signer

import (
	"context"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

const keyNamePrefix = "dapp-key-"

// VaultKeyManager manages keys stored in the HashiCorp Vault transit engine.
type VaultKeyManager struct {
	vaultClient  *api.Client
	transitPath  string
	logger       *zap.Logger
	addressToKey map[common.Address]string // ETH address to Vault key name
	mu           sync.RWMutex
}

// NewVaultKeyManager creates a new VaultKeyManager and initializes it with keys from Vault.
func NewVaultKeyManager(ctx context.Context, vaultClient *api.Client, transitPath string, logger *zap.Logger) (*VaultKeyManager, error) {
	km := &VaultKeyManager{
		vaultClient:  vaultClient,
		transitPath:  transitPath,
		logger:       logger,
		addressToKey: make(map[common.Address]string),
	}

	if err := km.enableTransitEngine(ctx); err != nil {
		return nil, fmt.Errorf("failed to enable transit secrets engine: %w", err)
	}
	if err := km.loadExistingKeys(ctx); err != nil {
		return nil, fmt.Errorf("failed to load existing keys from vault: %w", err)
	}
	return km, nil
}

func (km *VaultKeyManager) enableTransitEngine(ctx context.Context) error {
	mounts, err := km.vaultClient.Sys().ListMountsWithContext(ctx)
	if err != nil {
		return err
	}

	if _, ok := mounts[km.transitPath+"/"]; ok {
		km.logger.Debug("transit secrets engine already enabled", zap.String("path", km.transitPath))
		return nil
	}
	km.logger.Info("enabling transit secrets engine", zap.String("path", km.transitPath))
	return km.vaultClient.Sys().MountWithContext(ctx, km.transitPath, &api.MountInput{
		Type: "transit",
	})
}

func (km *VaultKeyManager) loadExistingKeys(ctx context.Context) error {
	secret, err := km.vaultClient.Logical().ListWithContext(ctx, km.transitPath+"/keys")
	if err != nil {
		return err
	}
	if secret == nil || secret.Data["keys"] == nil {
		km.logger.Info("no existing keys in vault transit engine")
		return nil
	}

	keys, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return errors.New("unexpected format for keys from vault")
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	for _, k := range keys {
		keyName, ok := k.(string)
		if !ok || !strings.HasPrefix(keyName, keyNamePrefix) {
			continue
		}
		address, err := km.addressForKey(ctx, keyName)
		if err != nil {
			km.logger.Warn("could not get address for key", zap.String("key", keyName), zap.Error(err))
			continue
		}
		km.addressToKey[address] = keyName
		km.logger.Info("loaded vault key", zap.String("key", keyName), zap.String("address", address.Hex()))
	}
	return nil
}

// CreateKey creates a new key in Vault and returns its Ethereum address.
func (km *VaultKeyManager) CreateKey(ctx context.Context) (common.Address, error) {
	keyName := keyNamePrefix + uuid.NewString()
	path := fmt.Sprintf("%s/keys/%s", km.transitPath, keyName)

	if _, err := km.vaultClient.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"type": "secp256k1",
	}); err != nil {
		return common.Address{}, fmt.Errorf("failed to create key in vault: %w", err)
	}

	address, err := km.addressForKey(ctx, keyName)
	if err != nil {
		km.deleteKey(ctx, keyName)
		return common.Address{}, fmt.Errorf("failed to get address for new key: %w", err)
	}

	km.mu.Lock()
	km.addressToKey[address] = keyName
	km.mu.Unlock()

	km.logger.Info("created vault key", zap.String("key", keyName), zap.String("address", address.Hex()))
	return address, nil
}

func (km *VaultKeyManager) deleteKey(ctx context.Context, keyName string) {
	path := fmt.Sprintf("%s/keys/%s", km.transitPath, keyName)
	if _, err := km.vaultClient.Logical().WriteWithContext(ctx, path+"/config", map[string]interface{}{
		"deletion_allowed": true,
	}); err != nil {
		km.logger.Warn("failed to allow key deletion", zap.String("key", keyName), zap.Error(err))
		return
	}
	if _, err := km.vaultClient.Logical().DeleteWithContext(ctx, path); err != nil {
		km.logger.Warn("failed to delete key", zap.String("key", keyName), zap.Error(err))
	}
}

// Accounts returns all managed account addresses.
func (km *VaultKeyManager) Accounts() []common.Address {
	km.mu.RLock()
	defer km.mu.RUnlock()

	addresses := make([]common.Address, 0, len(km.addressToKey))
	for addr := range km.addressToKey {
		addresses = append(addresses, addr)
	}
	return sortAddresses(addresses)
}

// subjectPublicKeyInfo is the PKIX envelope of the PEM public key Vault
// returns. x509 does not know the secp256k1 curve, so it is unpacked by hand.
type subjectPublicKeyInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

func (km *VaultKeyManager) addressForKey(ctx context.Context, keyName string) (common.Address, error) {
	secret, err := km.vaultClient.Logical().ReadWithContext(ctx, fmt.Sprintf("%s/keys/%s", km.transitPath, keyName))
	if err != nil {
		return common.Address{}, err
	}
	if secret == nil || secret.Data["keys"] == nil {
		return common.Address{}, fmt.Errorf("key '%s' not found in vault", keyName)
	}

	keysData, ok := secret.Data["keys"].(map[string]interface{})
	if !ok {
		return common.Address{}, errors.New("unexpected format for key data")
	}

	versions := make([]int, 0, len(keysData))
	for v := range keysData {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		versions = append(versions, n)
	}
	if len(versions) == 0 {
		return common.Address{}, errors.New("key has no versions")
	}
	sort.Ints(versions)
	latest := strconv.Itoa(versions[len(versions)-1])

	keyData, ok := keysData[latest].(map[string]interface{})
	if !ok {
		return common.Address{}, errors.New("unexpected format for key version data")
	}
	pubKeyPEM, ok := keyData["public_key"].(string)
	if !ok {
		return common.Address{}, errors.New("public key not found in key data")
	}
	return addressFromPEM(pubKeyPEM)
}

func addressFromPEM(pubKeyPEM string) (common.Address, error) {
	block, _ := pem.Decode([]byte(pubKeyPEM))
	if block == nil {
		return common.Address{}, errors.New("failed to parse PEM block containing the public key")
	}

	var spki subjectPublicKeyInfo
	if _, err := asn1.Unmarshal(block.Bytes, &spki); err != nil {
		return common.Address{}, fmt.Errorf("failed to parse DER encoded public key: %w", err)
	}
	pub, err := crypto.UnmarshalPubkey(spki.PublicKey.RightAlign())
	if err != nil {
		return common.Address{}, fmt.Errorf("key is not a secp256k1 public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

type ecdsaSignature struct {
	R, S *big.Int
}

var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// signWithVault signs a 32 byte digest and returns r || s with s in the
// lower half of the curve order.
func (km *VaultKeyManager) signWithVault(ctx context.Context, keyName string, digest []byte) ([]byte, error) {
	path := fmt.Sprintf("%s/sign/%s", km.transitPath, keyName)
	resp, err := km.vaultClient.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"input":                base64.StdEncoding.EncodeToString(digest),
		"prehashed":            true,
		"marshaling_algorithm": "asn1",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign with vault: %w", err)
	}
	if resp == nil {
		return nil, errors.New("empty response from vault")
	}

	signature, ok := resp.Data["signature"].(string)
	if !ok {
		return nil, errors.New("signature not found in vault response")
	}
	return parseVaultSignature(signature)
}

// parseVaultSignature decodes "vault:v<N>:<base64 DER>".
func parseVaultSignature(signature string) ([]byte, error) {
	parts := strings.SplitN(signature, ":", 3)
	if len(parts) != 3 || parts[0] != "vault" {
		return nil, fmt.Errorf("invalid signature format from vault: %s", signature)
	}
	der, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature: %w", err)
	}

	var sig ecdsaSignature
	if _, err := asn1.Unmarshal(der, &sig); err != nil {
		return nil, fmt.Errorf("failed to parse DER signature: %w", err)
	}
	if sig.R == nil || sig.S == nil || sig.R.BitLen() > 256 || sig.S.BitLen() > 256 {
		return nil, errors.New("signature values out of range")
	}
	if sig.S.Cmp(secp256k1HalfN) > 0 {
		sig.S = new(big.Int).Sub(secp256k1N, sig.S)
	}

	out := make([]byte, 64)
	sig.R.FillBytes(out[:32])
	sig.S.FillBytes(out[32:])
	return out, nil
}

// SignTx signs a transaction using a key stored in Vault.
func (km *VaultKeyManager) SignTx(ctx context.Context, address common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	keyName, err := km.keyName(address)
	if err != nil {
		return nil, err
	}

	signer := types.LatestSignerForChainID(chainID)
	txHash := signer.Hash(tx)

	signature, err := km.signWithVault(ctx, keyName, txHash.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction with vault: %w", err)
	}

	// Vault only returns r and s, the recovery id is found by trying both.
	v, err := recoverV(signature, txHash.Bytes(), address)
	if err != nil {
		return nil, err
	}
	return tx.WithSignature(signer, append(signature, v))
}

func (km *VaultKeyManager) keyName(address common.Address) (string, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	keyName, ok := km.addressToKey[address]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrAccountNotFound, address.Hex())
	}
	return keyName, nil
}

// recoverV finds the recovery id that makes signature resolve to expected.
func recoverV(signature, hash []byte, expected common.Address) (byte, error) {
	for i := byte(0); i < 2; i++ {
		sigWithV := append(append([]byte{}, signature...), i)
		pub, err := crypto.SigToPub(hash, sigWithV)
		if err != nil {
			continue
		}
		if crypto.PubkeyToAddress(*pub) == expected {
			return i, nil
		}
	}
	return 0, errors.New("could not recover public key for the given signature")
}
