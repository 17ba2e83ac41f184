package catalog

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"
	"unicode"
)

// GenerateSKU builds PREFIX-XXXX where PREFIX is the first three letters or
// digits of name upper-cased (padded with X) and XXXX is random hex.
func GenerateSKU(name string, random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	prefix := make([]rune, 0, 3)
	for _, r := range name {
		if len(prefix) == 3 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			prefix = append(prefix, unicode.ToUpper(r))
		}
	}
	for len(prefix) < 3 {
		prefix = append(prefix, 'X')
	}
	buf := make([]byte, 2)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", err
	}
	return string(prefix) + "-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}
