package signer

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	oidECPublicKey = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidSecp256k1   = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
)

// fakeVault serves the subset of the transit API the key manager uses.
type fakeVault struct {
	mu      sync.Mutex
	mounted bool
	keys    map[string]*ecdsa.PrivateKey
	highS   bool
}

func newFakeVault(mounted bool) *fakeVault {
	return &fakeVault{mounted: mounted, keys: map[string]*ecdsa.PrivateKey{}}
}

func (f *fakeVault) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v1/")
	isList := r.Method == "LIST" || r.URL.Query().Get("list") == "true"

	switch {
	case path == "sys/mounts" && r.Method == http.MethodGet:
		data := map[string]any{"sys/": map[string]any{"type": "system"}}
		if f.mounted {
			data["transit/"] = map[string]any{"type": "transit"}
		}
		respond(w, data)
	case path == "sys/mounts/transit":
		f.mounted = true
		respond(w, map[string]any{})
	case path == "transit/keys" && isList:
		names := []any{"unrelated"}
		for name := range f.keys {
			names = append(names, name)
		}
		respond(w, map[string]any{"keys": names})
	case strings.HasPrefix(path, "transit/keys/") && r.Method == http.MethodGet:
		key, ok := f.keys[strings.TrimPrefix(path, "transit/keys/")]
		if !ok {
			http.Error(w, `{"errors":[]}`, http.StatusNotFound)
			return
		}
		respond(w, map[string]any{"keys": map[string]any{
			"1": map[string]any{"public_key": "stale"},
			"2": map[string]any{"public_key": publicKeyPEM(&key.PublicKey)},
		}})
	case strings.HasPrefix(path, "transit/keys/"):
		key, _ := crypto.GenerateKey()
		f.keys[strings.TrimPrefix(path, "transit/keys/")] = key
		respond(w, map[string]any{})
	case strings.HasPrefix(path, "transit/sign/"):
		key := f.keys[strings.TrimPrefix(path, "transit/sign/")]
		var body struct {
			Input     string `json:"input"`
			Prehashed bool   `json:"prehashed"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		digest, _ := base64.StdEncoding.DecodeString(body.Input)
		if key == nil || !body.Prehashed || len(digest) != 32 {
			http.Error(w, `{"errors":["bad sign request"]}`, http.StatusBadRequest)
			return
		}
		respond(w, map[string]any{"signature": f.sign(key, digest)})
	default:
		http.Error(w, `{"errors":["unsupported"]}`, http.StatusNotFound)
	}
}

func (f *fakeVault) sign(key *ecdsa.PrivateKey, digest []byte) string {
	sig, _ := crypto.Sign(digest, key)
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if f.highS {
		s = new(big.Int).Sub(secp256k1N, s)
	}
	der, _ := asn1.Marshal(ecdsaSignature{R: r, S: s})
	return "vault:v1:" + base64.StdEncoding.EncodeToString(der)
}

func publicKeyPEM(pub *ecdsa.PublicKey) string {
	param, _ := asn1.Marshal(oidSecp256k1)
	der, _ := asn1.Marshal(subjectPublicKeyInfo{
		Algorithm: pkix.AlgorithmIdentifier{Algorithm: oidECPublicKey, Parameters: asn1.RawValue{FullBytes: param}},
		PublicKey: asn1.BitString{Bytes: crypto.FromECDSAPub(pub), BitLength: 65 * 8},
	})
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func respond(w http.ResponseWriter, data map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func newVaultClient(t *testing.T, h http.Handler) *api.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := api.DefaultConfig()
	cfg.Address = srv.URL
	cfg.MaxRetries = 0
	client, err := api.NewClient(cfg)
	require.NoError(t, err)
	client.SetToken("test-token")
	return client
}

func TestVaultKeyManager_MountsTransit(t *testing.T) {
	fv := newFakeVault(false)
	_, err := NewVaultKeyManager(context.Background(), newVaultClient(t, fv), "transit", zap.NewNop())
	require.NoError(t, err)
	assert.True(t, fv.mounted)
}

func TestVaultKeyManager_CreateLoadSign(t *testing.T) {
	ctx := context.Background()
	fv := newFakeVault(true)
	client := newVaultClient(t, fv)

	km, err := NewVaultKeyManager(ctx, client, "transit", zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, km.Accounts(), "keys without the dapp prefix are ignored")

	addr, err := km.CreateKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, km.Accounts())

	reloaded, err := NewVaultKeyManager(ctx, client, "transit", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, reloaded.Accounts())

	chainID := big.NewInt(31337)
	to := common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	tx := types.NewTx(&types.LegacyTx{Nonce: 3, GasPrice: big.NewInt(2), Gas: 50000, To: &to})

	for _, highS := range []bool{false, true} {
		fv.mu.Lock()
		fv.highS = highS
		fv.mu.Unlock()

		signed, err := reloaded.SignTx(ctx, addr, tx, chainID)
		require.NoError(t, err, "highS=%v", highS)
		sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
		require.NoError(t, err)
		assert.Equal(t, addr, sender)
	}

	_, err = reloaded.SignTx(ctx, to, tx, chainID)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestParseVaultSignature(t *testing.T) {
	der, err := asn1.Marshal(ecdsaSignature{R: big.NewInt(7), S: new(big.Int).Sub(secp256k1N, big.NewInt(9))})
	require.NoError(t, err)

	sig, err := parseVaultSignature("vault:v1:" + base64.StdEncoding.EncodeToString(der))
	require.NoError(t, err)
	require.Len(t, sig, 64)
	assert.Equal(t, int64(7), new(big.Int).SetBytes(sig[:32]).Int64())
	assert.Equal(t, int64(9), new(big.Int).SetBytes(sig[32:]).Int64())

	_, err = parseVaultSignature("v1:abc")
	assert.Error(t, err)
	_, err = parseVaultSignature("vault:v1:!!!")
	assert.Error(t, err)
	_, err = parseVaultSignature("vault:v1:" + base64.StdEncoding.EncodeToString([]byte("not der")))
	assert.Error(t, err)
}

func TestAddressFromPEM(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr, err := addressFromPEM(publicKeyPEM(&key.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)

	_, err = addressFromPEM("garbage")
	assert.Error(t, err)
}
