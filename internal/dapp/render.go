package dapp

import (
	"fmt"

	"github.com/xueqianLu/dappdash/internal/format"
)

// Envelope fields a caller may ask Render to display.
const (
	FieldResult     = "result"
	FieldUnitResult = "unitResult"
)

// Render turns an envelope into the HTML shown in the result panel: the
// label, the selected field formatted by result type, and the hint.
func Render(f *format.Formatter, env *Envelope, field string) (string, error) {
	value := env.Result
	if field == FieldUnitResult && env.UnitResult != nil {
		value = env.UnitResult
	}

	body, err := renderValue(f, env.Type, value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`<div class="result"><h6>%s</h6>%s%s</div>`,
		env.Label, body, format.FormatHint(env.Hint)), nil
}

func renderValue(f *format.Formatter, typ ResultType, value any) (string, error) {
	switch typ {
	case ResultBoolean:
		b, _ := value.(bool)
		return format.FormatBoolean(b), nil
	case ResultBigNumber:
		return format.FormatNumber(value), nil
	case ResultAccount:
		return format.FormatAccount(format.Stringify(value)), nil
	case ResultTxHash:
		return format.FormatTxHash(value), nil
	case ResultHashArray:
		return f.FormatList(stringSlice(value), []string{"TxHash"}, nil)
	case ResultArray:
		return f.FormatList(stringSlice(value), []string{"Text-20-5"}, nil)
	case ResultObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return "", fmt.Errorf("object result has type %T", value)
		}
		return f.FormatObject(obj)
	case ResultError:
		return fmt.Sprintf(`<span class="red-text">%s</span>`, format.Stringify(value)), nil
	}
	return "", fmt.Errorf("unknown result type %q", typ)
}

func stringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = format.Stringify(item)
		}
		return out
	}
	return nil
}
