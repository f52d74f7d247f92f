package jam

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// EncodeText converts LF and CRLF line endings to the bare CR that JAM
// stores. WriteMessage does not call it; text is stored verbatim.
func EncodeText(s string) []byte {
	s = strings.ReplaceAll(s, "\r\n", "\r")
	return []byte(strings.ReplaceAll(s, "\n", "\r"))
}

// decodeText maps every byte to the character with the same code point and
// inserts a LF after every CR.
func decodeText(raw []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(string(out), "\r", "\r\n"), nil
}
