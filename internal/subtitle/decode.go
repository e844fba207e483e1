package subtitle

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw file bytes to text. UTF-8 is tried first; anything that
// is not valid UTF-8 is decoded as ISO-8859-1, which accepts every byte.
// Line endings are normalized to "\n".
func Decode(data []byte) (string, Encoding, error) {
	if utf8.Valid(data) {
		return normalizeNewlines(string(bytes.TrimPrefix(data, utf8BOM))), EncodingUTF8, nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("decode as %s: %w", EncodingLatin1, err)
	}
	return normalizeNewlines(string(decoded)), EncodingLatin1, nil
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
