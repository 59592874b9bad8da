// Package dapp implements the dashboard actions: each one calls a contract
// through the blockchain collaborator and wraps the outcome in an Envelope.
// Collaborator errors are returned to the caller as they are.
package dapp

import (
	"context"
	"fmt"
	"math/big"

	"github.com/xueqianLu/dappdash/internal/chain"
	"github.com/xueqianLu/dappdash/internal/config"
	"github.com/xueqianLu/dappdash/internal/format"
)

const txHashLabel = "Transaction Hash"

// Lib runs dashboard actions against the configured contracts.
type Lib struct {
	cfg   *config.Config
	chain chain.Blockchain
}

// NewLib creates a Lib. cfg is handed to the collaborator with every call.
func NewLib(cfg *config.Config, bc chain.Blockchain) *Lib {
	return &Lib{cfg: cfg, chain: bc}
}

func (l *Lib) call(contract chain.ContractName, from string) chain.CallContext {
	return chain.CallContext{Config: l.cfg, Contract: contract, From: from}
}

func (l *Lib) get(ctx context.Context, contract chain.ContractName, from, method string, args ...any) (*chain.CallResult, error) {
	return l.chain.Get(ctx, l.call(contract, from), method, args...)
}

func (l *Lib) post(ctx context.Context, contract chain.ContractName, from, method string, args ...any) (*chain.CallResult, error) {
	return l.chain.Post(ctx, l.call(contract, from), method, args...)
}

func txEnvelope(res *chain.CallResult, hint string) *Envelope {
	return &Envelope{
		Type:   ResultTxHash,
		Label:  txHashLabel,
		Result: format.TransactionHash(res.CallData),
		Hint:   hint,
	}
}

// Access control: contract run state

// IsContractRunStateActive reports whether the state contract is running.
func (l *Lib) IsContractRunStateActive(ctx context.Context, _ ActionData) (*Envelope, error) {
	res, err := l.get(ctx, chain.DappStateContract, "", "isContractRunStateActive")
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Type:   ResultBoolean,
		Label:  "Is Contract Run State Active",
		Result: res.CallData,
	}, nil
}

// SetContractRunState activates or deactivates the state contract.
func (l *Lib) SetContractRunState(ctx context.Context, data ActionData) (*Envelope, error) {
	res, err := l.post(ctx, chain.DappStateContract, "", "setContractRunState", data.Mode)
	if err != nil {
		return nil, err
	}
	state := "inactive"
	if data.Mode {
		state = "active"
	}
	return txEnvelope(res, fmt.Sprintf(
		"Verify contract run state is %s by calling contract functions that use requireContractRunStateActive().", state)), nil
}

// Access control: administrator role

// IsContractAdmin reports whether data.Account is an administrator.
func (l *Lib) IsContractAdmin(ctx context.Context, data ActionData) (*Envelope, error) {
	res, err := l.get(ctx, chain.DappStateContract, "", "isContractAdmin", data.Account)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Type:   ResultBoolean,
		Label:  "Is Contract Admin",
		Result: res.CallData,
	}, nil
}

// AddContractAdmin grants the administrator role to data.Account.
func (l *Lib) AddContractAdmin(ctx context.Context, data ActionData) (*Envelope, error) {
	res, err := l.post(ctx, chain.DappStateContract, "", "addContractAdmin", data.Account)
	if err != nil {
		return nil, err
	}
	return txEnvelope(res, fmt.Sprintf(
		`Verify %s is an administrator by using "Is Contract Admin."`, format.FormatAccount(data.Account))), nil
}

// RemoveContractAdmin revokes the administrator role of data.Account.
func (l *Lib) RemoveContractAdmin(ctx context.Context, data ActionData) (*Envelope, error) {
	res, err := l.post(ctx, chain.DappStateContract, "", "removeContractAdmin", data.Account)
	if err != nil {
		return nil, err
	}
	return txEnvelope(res, fmt.Sprintf(
		`Verify %s is no longer an administrator by using "Is Contract Admin."`, format.FormatAccount(data.Account))), nil
}

// RemoveLastContractAdmin removes the final administrator.
func (l *Lib) RemoveLastContractAdmin(ctx context.Context, data ActionData) (*Envelope, error) {
	res, err := l.post(ctx, chain.DappStateContract, "", "removeLastContractAdmin", data.Account)
	if err != nil {
		return nil, err
	}
	return txEnvelope(res, "Verify that all functions that require an administrator no longer work."), nil
}

// Asset value tracking: token

// decimals is read from the contract on every conversion, never cached.
func (l *Lib) decimals(ctx context.Context, data ActionData) (int, error) {
	res, err := l.get(ctx, chain.DappStateContract, data.From, "decimals")
	if err != nil {
		return 0, err
	}
	return DecimalsFrom(res.CallData)
}

func (l *Lib) toSmallestUnit(ctx context.Context, amount string, data ActionData) (*big.Int, error) {
	decimals, err := l.decimals(ctx, data)
	if err != nil {
		return nil, err
	}
	return ToSmallestUnit(amount, decimals)
}

func (l *Lib) fromSmallestUnit(ctx context.Context, n *big.Int, data ActionData) (*big.Int, error) {
	decimals, err := l.decimals(ctx, data)
	if err != nil {
		return nil, err
	}
	return FromSmallestUnit(n, decimals), nil
}

func (l *Lib) unitRead(ctx context.Context, data ActionData, label func(*chain.CallResult) string, method string, args ...any) (*Envelope, error) {
	res, err := l.get(ctx, chain.DappStateContract, data.From, method, args...)
	if err != nil {
		return nil, err
	}
	raw, err := BigIntFrom(res.CallData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	units, err := l.fromSmallestUnit(ctx, raw, data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Type:       ResultBigNumber,
		Label:      label(res),
		Result:     raw,
		UnitResult: units,
	}, nil
}

// TotalSupply returns the token supply in smallest and display units.
func (l *Lib) TotalSupply(ctx context.Context, data ActionData) (*Envelope, error) {
	return l.unitRead(ctx, data, func(*chain.CallResult) string {
		return "Total Supply"
	}, "totalSupply")
}

// Balance returns the token balance of the calling account.
func (l *Lib) Balance(ctx context.Context, data ActionData) (*Envelope, error) {
	return l.unitRead(ctx, data, func(res *chain.CallResult) string {
		return "Account Balance for " + format.FormatAccount(res.CallAccount)
	}, "balance")
}

// BalanceOf returns the token balance of data.Account. The label names the
// account the call was made from, as reported by the collaborator.
func (l *Lib) BalanceOf(ctx context.Context, data ActionData) (*Envelope, error) {
	return l.unitRead(ctx, data, func(res *chain.CallResult) string {
		return format.FormatAccount(res.CallAccount) + " Account Balance"
	}, "balanceOf", data.Account)
}

// Transfer sends data.Amount display units to data.To.
func (l *Lib) Transfer(ctx context.Context, data ActionData) (*Envelope, error) {
	amount, err := l.toSmallestUnit(ctx, data.Amount, data)
	if err != nil {
		return nil, err
	}
	res, err := l.post(ctx, chain.DappStateContract, data.From, "transfer", data.To, amount)
	if err != nil {
		return nil, err
	}
	return txEnvelope(res, fmt.Sprintf(
		`Verify transfer by using "Balance for Account" to check the balance of %s.`, format.FormatAccount(data.To))), nil
}

// Cross-contract examples

// GetStateContractOwner returns the owner of the state contract as seen by
// the dapp contract.
func (l *Lib) GetStateContractOwner(ctx context.Context, _ ActionData) (*Envelope, error) {
	res, err := l.get(ctx, chain.DappContract, "", "getStateContractOwner")
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Type:   ResultAccount,
		Label:  "Contract Owner",
		Result: res.CallData,
	}, nil
}

// GetStateCounter reads the counter kept in the state contract.
func (l *Lib) GetStateCounter(ctx context.Context, _ ActionData) (*Envelope, error) {
	res, err := l.get(ctx, chain.DappContract, "", "getStateCounter")
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Type:   ResultBigNumber,
		Label:  "State Counter",
		Result: res.CallData,
	}, nil
}

// IncrementStateCounter adds data.Increment to the counter.
func (l *Lib) IncrementStateCounter(ctx context.Context, data ActionData) (*Envelope, error) {
	res, err := l.post(ctx, chain.DappContract, "", "incrementStateCounter", data.Increment)
	if err != nil {
		return nil, err
	}
	return txEnvelope(res, ""), nil
}
