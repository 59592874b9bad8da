// Package eth implements the blockchain collaborator on an Ethereum JSON-RPC
// node. Reads go through eth_call, writes are signed locally or in Vault,
// broadcast, and awaited until their receipt is mined.
package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/xueqianLu/dappdash/internal/chain"
	"github.com/xueqianLu/dappdash/internal/metrics"
	"github.com/xueqianLu/dappdash/internal/signer"
)

// ErrTransactionReverted is returned by Post when the mined receipt has a
// failed status. The receipt is still returned in the CallResult.
var ErrTransactionReverted = errors.New("transaction reverted")

const defaultPollInterval = time.Second

// Backend is the subset of ethclient.Client used for contract calls.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Client calls the dashboard contracts.
type Client struct {
	backend Backend
	signer  *signer.Signer
	abis    map[chain.ContractName]abi.ABI
	logger  *zap.Logger
	metrics *metrics.Metrics
}

var _ chain.Blockchain = (*Client)(nil)

// NewClient creates a Client. m may be nil.
func NewClient(backend Backend, s *signer.Signer, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	abis, err := ContractABIs()
	if err != nil {
		return nil, err
	}
	return &Client{
		backend: backend,
		signer:  s,
		abis:    abis,
		logger:  logger,
		metrics: m,
	}, nil
}

type preparedCall struct {
	from common.Address
	// anonymous is set for reads made without any resolvable account.
	anonymous bool
	to        common.Address
	input     []byte
	abi       abi.ABI
}

// prepare resolves the contract, method and sender of a call. Reads may go
// out from the zero address when no account is configured; writes may not.
func (c *Client) prepare(call chain.CallContext, method string, args []any, write bool) (*preparedCall, error) {
	if call.Config == nil {
		return nil, errors.New("call has no config")
	}
	contractABI, ok := c.abis[call.Contract]
	if !ok {
		return nil, fmt.Errorf("%w: %s", chain.ErrUnknownContract, call.Contract)
	}
	addr, ok := call.Config.ContractAddress(call.Contract.String())
	if !ok || !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("%w: no address configured for %s", chain.ErrUnknownContract, call.Contract)
	}
	m, ok := contractABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("contract %s has no method %q", call.Contract, method)
	}

	from, err := c.signer.ResolveAccount(call.Config.Accounts, call.From)
	anonymous := false
	if err != nil {
		if write || !errors.Is(err, signer.ErrNoAccount) {
			return nil, err
		}
		anonymous = true
	}
	packed, err := packArgs(m.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", call.Contract, method, err)
	}
	input, err := contractABI.Pack(method, packed...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s.%s: %w", call.Contract, method, err)
	}
	return &preparedCall{
		from:      from,
		anonymous: anonymous,
		to:        common.HexToAddress(addr),
		input:     input,
		abi:       contractABI,
	}, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Get performs a read-only call and returns the decoded outputs.
func (c *Client) Get(ctx context.Context, call chain.CallContext, method string, args ...any) (res *chain.CallResult, err error) {
	defer func() { c.metrics.TrackChainCall("get", method, err) }()

	p, err := c.prepare(call, method, args, false)
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, call.Config.Network.CallTimeout)
	defer cancel()

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		From: p.from,
		To:   &p.to,
		Data: p.input,
	}, nil)
	if err != nil {
		return nil, err
	}
	values, err := p.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s.%s: %w", call.Contract, method, err)
	}

	c.logger.Debug("contract call",
		zap.Stringer("contract", call.Contract),
		zap.String("method", method),
		zap.String("from", p.from.Hex()))
	res = &chain.CallResult{CallData: normalize(values)}
	if !p.anonymous {
		res.CallAccount = p.from.Hex()
	}
	return res, nil
}

// Post signs and sends a transaction, then waits for its receipt. CallData
// of the result is the *types.Receipt.
func (c *Client) Post(ctx context.Context, call chain.CallContext, method string, args ...any) (res *chain.CallResult, err error) {
	defer func() { c.metrics.TrackChainCall("post", method, err) }()

	p, err := c.prepare(call, method, args, true)
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, call.Config.Network.CallTimeout)
	defer cancel()

	nonce, err := c.backend.PendingNonceAt(ctx, p.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: p.from,
		To:   &p.to,
		Data: p.input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &p.to,
		Data:     p.input,
	})
	signed, err := c.signer.SignTx(ctx, p.from, tx, big.NewInt(call.Config.Network.ChainID))
	if err != nil {
		return nil, err
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	c.logger.Info("transaction sent",
		zap.Stringer("contract", call.Contract),
		zap.String("method", method),
		zap.String("from", p.from.Hex()),
		zap.String("tx", signed.Hash().Hex()))

	receipt, err := c.waitReceipt(ctx, signed.Hash(), call.Config.Network.ReceiptPollInterval)
	if err != nil {
		return nil, err
	}
	res = &chain.CallResult{CallData: receipt, CallAccount: p.from.Hex()}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return res, fmt.Errorf("%w: %s", ErrTransactionReverted, signed.Hash().Hex())
	}
	return res, nil
}

func (c *Client) waitReceipt(ctx context.Context, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	start := time.Now()

	receipt, err := backoff.Retry(ctx, func() (*types.Receipt, error) {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, backoff.Permanent(fmt.Errorf("failed to get receipt: %w", err))
		}
		return receipt, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		return nil, fmt.Errorf("waiting for receipt of %s: %w", hash.Hex(), err)
	}

	c.metrics.TrackReceiptWait(start)
	c.logger.Debug("receipt received",
		zap.String("tx", hash.Hex()),
		zap.Uint64("status", receipt.Status),
		zap.Duration("waited", time.Since(start)))
	return receipt, nil
}
