package format

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// FromASCII encodes str as a 0x-prefixed hex string right-padded with zeros
// to padding bytes, truncating longer input. Values that already start with
// 0x, or a zero padding, are returned unchanged.
func FromASCII(str string, padding int) string {
	if strings.HasPrefix(str, "0x") || padding == 0 {
		return str
	}
	if len(str) > padding {
		str = str[:padding]
	}
	hex := hexutil.Encode([]byte(str))
	return hex + strings.Repeat("0", padding*2-len(hex)+2)
}

// ToASCII decodes a hex string, dropping zero bytes.
func ToASCII(hex string) string {
	var b strings.Builder
	for _, c := range common.FromHex(hex) {
		if c == 0 {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
