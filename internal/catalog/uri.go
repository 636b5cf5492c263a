package catalog

import (
	"fmt"
	"strings"
)

// safePunctuation lists the punctuation bytes Strawberry stores literally in
// song URLs. Everything outside this set, the unreserved characters
// (alphanumerics, '_', '-', '.', '~') included below, is percent-encoded.
const safePunctuation = `:/?[]@!$&'()*+,;=`

// FileURI encodes an absolute filesystem path as a file:// URI whose
// percent-encoding matches byte-for-byte what Strawberry writes into the
// songs table. Matching exactly matters: song lookup is a string equality
// test against the stored URL, so encoding even one character differently
// makes every track unresolvable.
func FileURI(absPath string) string {
	var b strings.Builder
	b.WriteString("file://")

	for i := 0; i < len(absPath); i++ {
		c := absPath[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '_' || c == '-' || c == '.' || c == '~':
			b.WriteByte(c)
		case strings.IndexByte(safePunctuation, c) >= 0:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}

	return b.String()
}
