// Package format renders contract call results as HTML fragments for the
// dashboard result panel.
package format

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/xueqianLu/dappdash/internal/config"
)

// Formatter renders values that depend on configuration. Formatters that do
// not need configuration are also exposed as package functions.
type Formatter struct {
	ipfs config.IPFSConfig
}

// NewFormatter creates a Formatter using the given IPFS gateway for hash links.
func NewFormatter(ipfs config.IPFSConfig) *Formatter {
	return &Formatter{ipfs: ipfs}
}

// Condense keeps the first begin and last end characters of s and replaces
// the middle with "...". Strings of at most begin+end characters are
// returned unchanged. With end == 0 only the prefix is kept.
func Condense(s string, begin, end int) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= begin+end {
		return s
	}
	if begin > len(runes) {
		begin = len(runes)
	}
	if end > 0 {
		return string(runes[:begin]) + "..." + string(runes[len(runes)-end:])
	}
	return string(runes[:begin]) + "..."
}

// FormatHint renders an optional hint paragraph.
func FormatHint(hint string) string {
	if hint == "" {
		return ""
	}
	return fmt.Sprintf(`<p class="mt-3 grey-text"><strong>Hint:</strong> %s</p>`, hint)
}

// FormatNumber renders n with thousands separators in its integer part. The
// raw value is kept in the title attribute.
func FormatNumber(n any) string {
	raw := Stringify(n)
	parts := strings.SplitN(raw, ".", 2)
	parts[0] = groupThousands(parts[0])
	return fmt.Sprintf(`<strong class="p-1 blue-grey-text number copy-target" style="font-size:1.1rem;" title="%s">%s</strong>`,
		raw, strings.Join(parts, "."))
}

// groupThousands inserts a comma before every digit that follows a word
// character and starts a run of digits whose length is a multiple of three,
// so "a123" becomes "a,123" like the dashboard script does.
func groupThousands(s string) string {
	var b strings.Builder
	run := 0 // digits from i to the end of the current digit run
	for i := 0; i < len(s); i++ {
		if run == 0 {
			for run < len(s)-i && isDigit(s[i+run]) {
				run++
			}
		}
		if run > 0 && run%3 == 0 && i > 0 && isWordByte(s[i-1]) {
			b.WriteByte(',')
		}
		b.WriteByte(s[i])
		if run > 0 {
			run--
		}
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordByte(c byte) bool {
	return isDigit(c) || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// FormatAccount renders an address condensed to 6+4 characters with a copy icon.
func FormatAccount(a string) string {
	return fmt.Sprintf(`<strong class="green accent-1 p-1 blue-grey-text number copy-target" title="%s">%s</strong>%s`,
		a, Condense(a, 6, 4), AddClippy(a))
}

// FormatTxHash renders any transaction reference, see TransactionHash.
func FormatTxHash(t any) string {
	value := TransactionHash(t)
	return fmt.Sprintf(`<strong class="teal lighten-5 p-1 blue-grey-text number copy-target" title="%s">%s</strong>%s`,
		value, Condense(value, 6, 4), AddClippy(value))
}

// FormatIpfsHash renders a link to the hash on the configured gateway.
func (f *Formatter) FormatIpfsHash(a string) string {
	url := f.IpfsURL(a)
	return fmt.Sprintf(`<strong class="teal lighten-5 p-1 black-text number copy-target" title="%s"><a href="%s" target="_new">%s...%s</a></strong>%s`,
		url, url, head(a, 6), tail(a, 4), AddClippy(a))
}

// IpfsURL is the gateway URL of an IPFS hash.
func (f *Formatter) IpfsURL(hash string) string {
	return fmt.Sprintf("%s://%s/ipfs/%s", f.ipfs.Protocol, f.ipfs.Host, hash)
}

// FormatBoolean renders YES or NO.
func FormatBoolean(a bool) string {
	if a {
		return "YES"
	}
	return "NO"
}

// FormatText renders text with a copy icon carrying copyText, or text itself
// when copyText is empty. Markup (text starting with "<") is returned as is.
func FormatText(text, copyText string) string {
	if text == "" {
		return ""
	}
	if strings.HasPrefix(text, "<") {
		return text
	}
	if copyText == "" {
		copyText = text
	}
	return fmt.Sprintf(`<span title="%s">%s</span>%s`, copyText, text, AddClippy(copyText))
}

// FormatStrong wraps a in a strong tag.
func FormatStrong(a string) string {
	return "<strong>" + a + "</strong>"
}

// FormatPlain returns a unchanged.
func FormatPlain(a string) string {
	return a
}

// AddClippy returns the clipboard icon annotated with the value to copy.
func AddClippy(data string) string {
	return strings.Replace(clippyIcon, "<svg ", fmt.Sprintf(`<svg data-copy="%s" `, data), 1)
}

// Stringify converts a call result value to its display string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *big.Int:
		if t == nil {
			return ""
		}
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func head(s string, n int) string {
	r := []rune(s)
	if n > len(r) {
		n = len(r)
	}
	return string(r[:n])
}

func tail(s string, n int) string {
	r := []rune(s)
	if n > len(r) {
		n = len(r)
	}
	return string(r[len(r)-n:])
}
