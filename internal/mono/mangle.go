package mono

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Mangle builds a symbol name for an instance: the readable base name
// followed by a hash of the key, so distinct keys never share a symbol.
func Mangle(base string, key Key) string {
	var b strings.Builder
	b.Grow(len(base) + 20)
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	b.WriteString("::h")
	sum := xxhash.Sum64String(key.String())
	hex := strconv.FormatUint(sum, 16)
	for i := len(hex); i < 16; i++ {
		b.WriteByte('0')
	}
	b.WriteString(hex)
	return b.String()
}
