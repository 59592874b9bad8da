package eth

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// packArgs converts dashboard values (mostly strings from form fields) into
// the Go types the abi encoder expects for each input.
func packArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(inputs), len(args))
	}
	out := make([]any, len(args))
	for i, input := range inputs {
		v, err := coerce(input.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", input.Name, err)
		}
		out[i] = v
	}
	return out, nil
}

func coerce(t abi.Type, v any) (any, error) {
	isInt := t.T == abi.UintTy || t.T == abi.IntTy
	if !isInt && v != nil && reflect.TypeOf(v) == t.GetType() {
		return v, nil
	}

	switch t.T {
	case abi.AddressTy:
		s, ok := v.(string)
		if !ok || !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %v", v)
		}
		return common.HexToAddress(s), nil

	case abi.BoolTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("invalid bool %v", v)
		}
		return strconv.ParseBool(s)

	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("invalid string %v", v)
		}
		return s, nil

	case abi.UintTy, abi.IntTy:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		if t.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for %s", n, t)
		}
		bits := t.Size
		if t.T == abi.IntTy {
			bits--
		}
		if n.BitLen() > bits {
			return nil, fmt.Errorf("value %s overflows %s", n, t)
		}
		if t.Size > 64 {
			return n, nil
		}
		rv := reflect.New(t.GetType()).Elem()
		if t.T == abi.UintTy {
			rv.SetUint(n.Uint64())
		} else {
			rv.SetInt(n.Int64())
		}
		return rv.Interface(), nil
	}
	return nil, fmt.Errorf("unsupported abi type %s", t)
}

func toBigInt(v any) (*big.Int, error) {
	switch t := v.(type) {
	case *big.Int:
		if t == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return t, nil
	case string:
		return parseInt(t)
	case json.Number:
		return parseInt(t.String())
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
		return big.NewInt(int64(t)), nil
	case uint16:
		return big.NewInt(int64(t)), nil
	case uint32:
		return big.NewInt(int64(t)), nil
	case uint64:
		return new(big.Int).SetUint64(t), nil
	}
	return nil, fmt.Errorf("invalid integer %v (%T)", v, v)
}

func parseInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

// normalize turns decoded outputs into plain values: addresses become hex
// strings, a single output is returned without its slice.
func normalize(values []any) any {
	out := make([]any, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case common.Address:
			out[i] = t.Hex()
		case []common.Address:
			hexes := make([]any, len(t))
			for j, a := range t {
				hexes[j] = a.Hex()
			}
			out[i] = hexes
		case [32]byte:
			out[i] = common.Hash(t).Hex()
		default:
			out[i] = v
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}
