package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xueqianLu/dappdash/internal/chain"
	"github.com/xueqianLu/dappdash/internal/config"
	"github.com/xueqianLu/dappdash/internal/dapp"
	"github.com/xueqianLu/dappdash/internal/metrics"
	"github.com/xueqianLu/dappdash/internal/signer"
)

var (
	stateAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	dappAddr  = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	outsider  = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// fakeNode executes the dashboard contracts in memory.
type fakeNode struct {
	mu       sync.Mutex
	abis     map[common.Address]abi.ABI
	chainID  *big.Int
	running  bool
	admins   map[common.Address]bool
	balances map[common.Address]*big.Int
	counter  *big.Int
	owner    common.Address
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	polls    map[common.Hash]int
	// missingPolls is how many receipt queries report NotFound first.
	missingPolls int
	revert       bool
	sent         []*types.Transaction
}

func newFakeNode(t *testing.T, owner common.Address) *fakeNode {
	abis, err := ContractABIs()
	require.NoError(t, err)
	supply, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	return &fakeNode{
		abis:     map[common.Address]abi.ABI{stateAddr: abis[chain.DappStateContract], dappAddr: abis[chain.DappContract]},
		chainID:  big.NewInt(1337),
		running:  true,
		admins:   map[common.Address]bool{owner: true},
		balances: map[common.Address]*big.Int{owner: supply},
		counter:  big.NewInt(0),
		owner:    owner,
		nonces:   map[common.Address]uint64{},
		receipts: map[common.Hash]*types.Receipt{},
		polls:    map[common.Hash]int{},
	}
}

func (n *fakeNode) balanceOf(a common.Address) *big.Int {
	if b, ok := n.balances[a]; ok {
		return b
	}
	return new(big.Int)
}

func (n *fakeNode) execute(from common.Address, to *common.Address, data []byte, write bool) ([]byte, error) {
	contract, ok := n.abis[*to]
	if !ok {
		return nil, fmt.Errorf("no contract at %s", to.Hex())
	}
	m, err := contract.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	in, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}

	var out []any
	switch m.Name {
	case "isContractRunStateActive":
		out = []any{n.running}
	case "setContractRunState":
		if write {
			n.running = in[0].(bool)
		}
	case "isContractAdmin":
		out = []any{n.admins[in[0].(common.Address)]}
	case "addContractAdmin":
		if write {
			n.admins[in[0].(common.Address)] = true
		}
	case "removeContractAdmin", "removeLastContractAdmin":
		if write {
			delete(n.admins, in[0].(common.Address))
		}
	case "decimals":
		out = []any{uint8(18)}
	case "totalSupply":
		total := new(big.Int)
		for _, b := range n.balances {
			total.Add(total, b)
		}
		out = []any{total}
	case "balance":
		out = []any{n.balanceOf(from)}
	case "balanceOf":
		out = []any{n.balanceOf(in[0].(common.Address))}
	case "transfer":
		amount := in[1].(*big.Int)
		if n.balanceOf(from).Cmp(amount) < 0 {
			return nil, errors.New("execution reverted: insufficient balance")
		}
		if write {
			recipient := in[0].(common.Address)
			n.balances[from] = new(big.Int).Sub(n.balanceOf(from), amount)
			n.balances[recipient] = new(big.Int).Add(n.balanceOf(recipient), amount)
		}
		out = []any{true}
	case "getStateContractOwner":
		out = []any{n.owner}
	case "getStateCounter":
		out = []any{n.counter}
	case "incrementStateCounter":
		if write {
			n.counter = new(big.Int).Add(n.counter, in[0].(*big.Int))
		}
	}
	return m.Outputs.Pack(out...)
}

func (n *fakeNode) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute(msg.From, msg.To, msg.Data, false)
}

func (n *fakeNode) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nonces[account], nil
}

func (n *fakeNode) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (n *fakeNode) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := n.execute(msg.From, msg.To, msg.Data, false); err != nil {
		return 0, err
	}
	return 60000, nil
}

func (n *fakeNode) SendTransaction(_ context.Context, tx *types.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	from, err := types.Sender(types.LatestSignerForChainID(n.chainID), tx)
	if err != nil {
		return err
	}
	if tx.Nonce() != n.nonces[from] {
		return fmt.Errorf("nonce too low: have %d want %d", tx.Nonce(), n.nonces[from])
	}
	n.nonces[from]++
	n.sent = append(n.sent, tx)

	status := types.ReceiptStatusSuccessful
	if n.revert {
		status = types.ReceiptStatusFailed
	} else if _, err := n.execute(from, tx.To(), tx.Data(), true); err != nil {
		status = types.ReceiptStatusFailed
	}
	n.receipts[tx.Hash()] = &types.Receipt{Status: status, TxHash: tx.Hash(), GasUsed: tx.Gas()}
	return nil
}

func (n *fakeNode) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.polls[hash] < n.missingPolls {
		n.polls[hash]++
		return nil, ethereum.NotFound
	}
	r, ok := n.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

type fixture struct {
	cfg    *config.Config
	node   *fakeNode
	client *Client
	owner  common.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	km, err := signer.NewLocalKeyManager(config.LocalConfig{
		KeyDir:      t.TempDir(),
		Password:    "pw",
		LightScrypt: true,
	}, zap.NewNop())
	require.NoError(t, err)
	owner, err := km.CreateKey(context.Background())
	require.NoError(t, err)

	cfg := &config.Config{
		Network: config.NetworkConfig{
			ChainID:             1337,
			ReceiptPollInterval: time.Millisecond,
			CallTimeout:         5 * time.Second,
		},
		Contracts: config.ContractsConfig{
			DappStateContract: stateAddr.Hex(),
			DappContract:      dappAddr.Hex(),
		},
		Accounts: config.AccountsConfig{Default: owner.Hex()},
	}

	node := newFakeNode(t, owner)
	client, err := NewClient(node, signer.NewSigner(km), zap.NewNop(), metrics.New())
	require.NoError(t, err)
	return &fixture{cfg: cfg, node: node, client: client, owner: owner}
}

func (f *fixture) call(contract chain.ContractName, from string) chain.CallContext {
	return chain.CallContext{Config: f.cfg, Contract: contract, From: from}
}

func TestGet_DecodesOutputs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.client.Get(ctx, f.call(chain.DappStateContract, ""), "decimals")
	require.NoError(t, err)
	assert.Equal(t, uint8(18), res.CallData)
	assert.Equal(t, f.owner.Hex(), res.CallAccount, "empty from resolves to the default account")

	res, err = f.client.Get(ctx, f.call(chain.DappStateContract, outsider.Hex()), "balanceOf", f.owner.Hex())
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000000000", res.CallData.(*big.Int).String())
	assert.Equal(t, outsider.Hex(), res.CallAccount)

	res, err = f.client.Get(ctx, f.call(chain.DappContract, ""), "getStateContractOwner")
	require.NoError(t, err)
	assert.Equal(t, f.owner.Hex(), res.CallData)
}

func TestGet_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.Get(ctx, f.call("tokenContract", ""), "decimals")
	assert.ErrorIs(t, err, chain.ErrUnknownContract)

	f.cfg.Contracts.DappContract = ""
	_, err = f.client.Get(ctx, f.call(chain.DappContract, ""), "getStateCounter")
	assert.ErrorIs(t, err, chain.ErrUnknownContract)

	_, err = f.client.Get(ctx, f.call(chain.DappStateContract, ""), "mint")
	assert.ErrorContains(t, err, `no method "mint"`)

	_, err = f.client.Get(ctx, f.call(chain.DappStateContract, ""), "balanceOf", "bob")
	assert.ErrorContains(t, err, "invalid address")

	_, err = f.client.Get(ctx, chain.CallContext{Contract: chain.DappStateContract}, "decimals")
	assert.Error(t, err)
}

func TestGet_NoAccount(t *testing.T) {
	km, err := signer.NewLocalKeyManager(config.LocalConfig{KeyDir: t.TempDir(), LightScrypt: true}, zap.NewNop())
	require.NoError(t, err)
	client, err := NewClient(newFakeNode(t, outsider), signer.NewSigner(km), zap.NewNop(), nil)
	require.NoError(t, err)

	cfg := &config.Config{
		Network: config.NetworkConfig{ChainID: 1337},
		Contracts: config.ContractsConfig{
			DappStateContract: stateAddr.Hex(),
			DappContract:      dappAddr.Hex(),
		},
	}
	ctx := context.Background()

	res, err := client.Get(ctx, chain.CallContext{Config: cfg, Contract: chain.DappStateContract}, "isContractRunStateActive")
	require.NoError(t, err)
	assert.Equal(t, true, res.CallData)
	assert.Empty(t, res.CallAccount)

	res, err = client.Get(ctx, chain.CallContext{Config: cfg, Contract: chain.DappContract}, "getStateCounter")
	require.NoError(t, err)
	assert.Equal(t, "0", res.CallData.(*big.Int).String())

	_, err = client.Post(ctx, chain.CallContext{Config: cfg, Contract: chain.DappContract}, "incrementStateCounter", "1")
	assert.ErrorIs(t, err, signer.ErrNoAccount)
}

func TestPost_WaitsForReceipt(t *testing.T) {
	f := newFixture(t)
	f.node.missingPolls = 3

	res, err := f.client.Post(context.Background(), f.call(chain.DappStateContract, ""), "transfer",
		outsider.Hex(), big.NewInt(250))
	require.NoError(t, err)

	receipt, ok := res.CallData.(*types.Receipt)
	require.True(t, ok)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, 3, f.node.polls[receipt.TxHash])
	assert.Equal(t, "250", f.node.balanceOf(outsider).String())

	require.Len(t, f.node.sent, 1)
	assert.Equal(t, stateAddr, *f.node.sent[0].To())
	assert.Equal(t, uint64(60000), f.node.sent[0].Gas())
}

func TestPost_NoncesAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := f.client.Post(ctx, f.call(chain.DappContract, ""), "incrementStateCounter", "2")
		require.NoError(t, err)
	}
	assert.Equal(t, "6", f.node.counter.String())
	assert.Equal(t, uint64(3), f.node.nonces[f.owner])
}

func TestPost_UnmanagedAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.client.Post(context.Background(), f.call(chain.DappStateContract, outsider.Hex()),
		"setContractRunState", false)
	assert.ErrorIs(t, err, signer.ErrAccountNotFound)
	assert.Empty(t, f.node.sent)
}

func TestPost_Reverted(t *testing.T) {
	f := newFixture(t)
	f.node.revert = true

	res, err := f.client.Post(context.Background(), f.call(chain.DappStateContract, ""), "addContractAdmin", outsider.Hex())
	assert.ErrorIs(t, err, ErrTransactionReverted)
	require.NotNil(t, res)
	assert.Equal(t, types.ReceiptStatusFailed, res.CallData.(*types.Receipt).Status)
}

func TestPost_ReceiptTimeout(t *testing.T) {
	f := newFixture(t)
	f.node.missingPolls = 1 << 30
	f.cfg.Network.CallTimeout = 30 * time.Millisecond

	_, err := f.client.Post(context.Background(), f.call(chain.DappContract, ""), "incrementStateCounter", "1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDappLibOnNode(t *testing.T) {
	f := newFixture(t)
	lib := dapp.NewLib(f.cfg, f.client)
	ctx := context.Background()

	env, err := lib.Transfer(ctx, dapp.ActionData{To: outsider.Hex(), Amount: "12"})
	require.NoError(t, err)
	assert.Equal(t, dapp.ResultTxHash, env.Type)
	assert.Equal(t, f.node.sent[0].Hash().Hex(), env.Result)

	env, err = lib.BalanceOf(ctx, dapp.ActionData{Account: outsider.Hex()})
	require.NoError(t, err)
	assert.Equal(t, "12000000000000000000", env.Result.(*big.Int).String())
	assert.Equal(t, "12", env.UnitResult.(*big.Int).String())

	env, err = lib.IsContractRunStateActive(ctx, dapp.ActionData{})
	require.NoError(t, err)
	assert.Equal(t, true, env.Result)

	_, err = lib.SetContractRunState(ctx, dapp.ActionData{Mode: false})
	require.NoError(t, err)
	assert.False(t, f.node.running)
}
