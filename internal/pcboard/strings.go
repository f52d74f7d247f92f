package pcboard

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// decodeField maps a fixed-width field byte-to-char up to the first NUL
// and trims trailing spaces.
func decodeField(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimRight(latin1(b), " ")
}

// decodeText converts message body bytes: CR and the PCBoard line
// separator 0xE3 become LF, NULs are dropped.
func decodeText(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case 0:
		case 0x0D, 0xE3:
			out = append(out, '\n')
		default:
			out = append(out, c)
		}
	}
	return latin1(out)
}

func latin1(b []byte) string {
	// ISO 8859-1 decoding cannot fail.
	s, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(s)
}
