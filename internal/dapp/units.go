package dapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	// ErrInvalidAmount is returned for amounts that are not decimal numbers.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidDecimals is returned when a contract reports unusable decimals.
	ErrInvalidDecimals = errors.New("invalid decimals")
)

// maxDecimals bounds 10^decimals to keep a bad contract from exhausting memory.
const maxDecimals = 77

var ten = big.NewInt(10)

func unitScale(decimals int) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(decimals)), nil)
}

// ToSmallestUnit converts a display amount to the token's smallest unit,
// amount * 10^decimals. A fractional part in amount is dropped before the
// multiplication.
func ToSmallestUnit(amount string, decimals int) (*big.Int, error) {
	n, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	return n.Mul(n, unitScale(decimals)), nil
}

// FromSmallestUnit converts a smallest-unit amount to display units,
// amount / 10^decimals. The remainder is discarded.
func FromSmallestUnit(amount *big.Int, decimals int) *big.Int {
	return new(big.Int).Quo(amount, unitScale(decimals))
}

func parseAmount(amount string) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	whole, _, _ := strings.Cut(s, ".")
	if whole == "" || whole == "+" || whole == "-" {
		// ".5" has no whole units
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return n, nil
}

func parseInteger(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}

// BigIntFrom coerces a call result to a big integer.
func BigIntFrom(v any) (*big.Int, error) {
	switch t := v.(type) {
	case *big.Int:
		if t == nil {
			return nil, fmt.Errorf("%w: nil", ErrInvalidAmount)
		}
		return new(big.Int).Set(t), nil
	case string:
		n, ok := parseInteger(t)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, t)
		}
		return n, nil
	case json.Number:
		return BigIntFrom(t.String())
	case int:
		return big.NewInt(int64(t)), nil
	case int8:
		return big.NewInt(int64(t)), nil
	case int16:
		return big.NewInt(int64(t)), nil
	case int32:
		return big.NewInt(int64(t)), nil
	case int64:
		return big.NewInt(t), nil
	case uint:
		return new(big.Int).SetUint64(uint64(t)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(t)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(t)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(t)), nil
	case uint64:
		return new(big.Int).SetUint64(t), nil
	case float64:
		if t != float64(int64(t)) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, t)
		}
		return big.NewInt(int64(t)), nil
	}
	return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
}

// DecimalsFrom coerces the result of a decimals() call.
func DecimalsFrom(v any) (int, error) {
	n, err := BigIntFrom(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDecimals, err)
	}
	if n.Sign() < 0 || n.Cmp(big.NewInt(maxDecimals)) > 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDecimals, n)
	}
	return int(n.Int64()), nil
}
