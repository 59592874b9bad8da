package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownFormatter is returned for formatter names outside the registry.
var ErrUnknownFormatter = errors.New("unknown formatter")

// FormatterID identifies a cell formatter used by table rendering.
type FormatterID int

const (
	Plain FormatterID = iota
	Strong
	Text
	Number
	Account
	TxHash
	IpfsHash
	Boolean
)

var formatterNames = map[string]FormatterID{
	"Plain":    Plain,
	"Strong":   Strong,
	"Text":     Text,
	"Number":   Number,
	"Account":  Account,
	"TxHash":   TxHash,
	"IpfsHash": IpfsHash,
	"Boolean":  Boolean,
}

func (id FormatterID) String() string {
	for name, v := range formatterNames {
		if v == id {
			return name
		}
	}
	return "FormatterID(" + strconv.Itoa(int(id)) + ")"
}

// cellFunc renders one table cell from its (possibly condensed) text and the
// raw value to copy.
type cellFunc func(f *Formatter, text, copyText string) string

var cellFormatters = map[FormatterID]cellFunc{
	Plain:    func(_ *Formatter, text, _ string) string { return FormatPlain(text) },
	Strong:   func(_ *Formatter, text, _ string) string { return FormatStrong(text) },
	Text:     func(_ *Formatter, text, copyText string) string { return FormatText(text, copyText) },
	Number:   func(_ *Formatter, text, _ string) string { return FormatNumber(text) },
	Account:  func(_ *Formatter, text, _ string) string { return FormatAccount(text) },
	TxHash:   func(_ *Formatter, text, _ string) string { return FormatTxHash(text) },
	IpfsHash: func(f *Formatter, text, _ string) string { return f.FormatIpfsHash(text) },
	Boolean: func(_ *Formatter, text, _ string) string {
		b, _ := strconv.ParseBool(text)
		return FormatBoolean(b)
	},
}

// Spec is a parsed formatter name. Names of the form "Text-B-E" or "Text-B"
// condense the cell text to B leading and E trailing characters before the
// Text formatter runs.
type Spec struct {
	ID       FormatterID
	Condense bool
	Begin    int
	End      int
}

// ParseFormatter resolves a formatter name such as "Strong" or "Text-20-5".
func ParseFormatter(name string) (Spec, error) {
	frags := strings.Split(name, "-")
	id, ok := formatterNames[frags[0]]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownFormatter, name)
	}
	spec := Spec{ID: id}
	if id != Text || len(frags) == 1 {
		if len(frags) > 1 {
			return Spec{}, fmt.Errorf("%w: %q takes no parameters", ErrUnknownFormatter, name)
		}
		return spec, nil
	}
	if len(frags) > 3 {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownFormatter, name)
	}
	begin, err := strconv.Atoi(frags[1])
	if err != nil {
		return Spec{}, fmt.Errorf("invalid formatter %q: %w", name, err)
	}
	spec.Condense = true
	spec.Begin = begin
	if len(frags) == 3 {
		if spec.End, err = strconv.Atoi(frags[2]); err != nil {
			return Spec{}, fmt.Errorf("invalid formatter %q: %w", name, err)
		}
	}
	return spec, nil
}

// Cell renders text with the formatter described by spec.
func (f *Formatter) Cell(spec Spec, text, copyText string) string {
	if spec.Condense {
		text = Condense(text, spec.Begin, spec.End)
	}
	return cellFormatters[spec.ID](f, text, copyText)
}

// Format renders a single value with a named formatter.
func (f *Formatter) Format(name, text string) (string, error) {
	spec, err := ParseFormatter(name)
	if err != nil {
		return "", err
	}
	return f.Cell(spec, text, text), nil
}
