package dapp

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownAction is returned by Run for names outside the action table.
var ErrUnknownAction = errors.New("unknown action")

// Method says whether an action only reads or submits a transaction.
type Method string

const (
	MethodGet  Method = "get"
	MethodPost Method = "post"
)

// ActionFunc is the signature shared by every Lib action.
type ActionFunc func(l *Lib, ctx context.Context, data ActionData) (*Envelope, error)

// Action is an entry of the action table.
type Action struct {
	Name   string
	Method Method
	Run    ActionFunc
}

var actions = map[string]Action{
	"isContractRunStateActive": {Method: MethodGet, Run: (*Lib).IsContractRunStateActive},
	"setContractRunState":      {Method: MethodPost, Run: (*Lib).SetContractRunState},
	"isContractAdmin":          {Method: MethodGet, Run: (*Lib).IsContractAdmin},
	"addContractAdmin":         {Method: MethodPost, Run: (*Lib).AddContractAdmin},
	"removeContractAdmin":      {Method: MethodPost, Run: (*Lib).RemoveContractAdmin},
	"removeLastContractAdmin":  {Method: MethodPost, Run: (*Lib).RemoveLastContractAdmin},
	"totalSupply":              {Method: MethodGet, Run: (*Lib).TotalSupply},
	"balance":                  {Method: MethodGet, Run: (*Lib).Balance},
	"balanceOf":                {Method: MethodGet, Run: (*Lib).BalanceOf},
	"transfer":                 {Method: MethodPost, Run: (*Lib).Transfer},
	"getStateContractOwner":    {Method: MethodGet, Run: (*Lib).GetStateContractOwner},
	"getStateCounter":          {Method: MethodGet, Run: (*Lib).GetStateCounter},
	"incrementStateCounter":    {Method: MethodPost, Run: (*Lib).IncrementStateCounter},
}

// LookupAction returns the action registered under name.
func LookupAction(name string) (Action, bool) {
	a, ok := actions[name]
	if !ok {
		return Action{}, false
	}
	a.Name = name
	return a, true
}

// Actions lists the registered actions sorted by name.
func Actions() []Action {
	out := make([]Action, 0, len(actions))
	for name := range actions {
		a, _ := LookupAction(name)
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run executes the named action.
func (l *Lib) Run(ctx context.Context, name string, data ActionData) (*Envelope, error) {
	a, ok := LookupAction(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return a.Run(l, ctx, data)
}
