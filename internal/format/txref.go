package format

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/ethereum/go-ethereum/core/types"
)

// TransactionHash normalizes the transaction reference returned by a write
// call. Chains disagree on its shape:
//
//   - a bare hash string
//   - an object with a transactionHash field (Ethereum receipts)
//   - an object with a nested transaction.id field (Harmony)
//
// Any other object or array is returned as its JSON encoding. Falsy values
// and other scalars yield the empty string.
func TransactionHash(t any) string {
	if isFalsy(t) {
		return ""
	}
	switch v := t.(type) {
	case string:
		return v
	case *types.Receipt:
		return v.TxHash.Hex()
	case map[string]any:
		return hashFromObject(v)
	}

	raw, err := encodeJSON(t)
	if err != nil || len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '[':
		return string(raw)
	case '{':
	default:
		// numbers and true are not transaction references
		return ""
	}
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return string(raw)
	}
	return hashFromObject(obj)
}

func hashFromObject(obj map[string]any) string {
	if h, ok := obj["transactionHash"]; ok {
		return Stringify(h)
	}
	if tx, ok := obj["transaction"]; ok {
		if nested, ok := tx.(map[string]any); ok && !isFalsy(nested["id"]) {
			return Stringify(nested["id"])
		}
		return ""
	}
	raw, err := encodeJSON(obj)
	if err != nil {
		return ""
	}
	return string(raw)
}

// encodeJSON encodes v without HTML escaping and without the trailing newline.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isFalsy(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
