package jam

import "strings"

// MsgIDCRC returns the thread checksum for a MSGID or REPLY value as stored
// in MSGIDcrc/REPLYcrc. A leading ^A kludge marker, the "MSGID:"/"REPLY:"
// tag and surrounding whitespace are stripped; case is preserved.
func MsgIDCRC(s string) uint32 {
	return CRC32([]byte(normalizeMsgID(s)))
}

func normalizeMsgID(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\x01")
	s = strings.TrimPrefix(s, "^A")
	for _, tag := range []string{"MSGID:", "REPLY:"} {
		if strings.HasPrefix(s, tag) {
			s = s[len(tag):]
			break
		}
	}
	return strings.TrimSpace(s)
}
