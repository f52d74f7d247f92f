package jam

import (
	"fmt"
	"runtime"
	"strings"
)

// Version is the program version used in PID kludges and tearlines. Set via
// build flags:
//
//	-ldflags "-X github.com/stlalpha/msgbase/internal/jam.Version=1.0.0"
var Version = "0.1.0"

// MessageType represents the type of message being created.
type MessageType int

const (
	MsgTypeLocalMsg    MessageType = iota // Local BBS-only message
	MsgTypeEchomailMsg                    // FTN conference/echo message
	MsgTypeNetmailMsg                     // FTN direct network mail
)

// IsEchomail reports whether this is an echomail message.
func (mt MessageType) IsEchomail() bool { return mt == MsgTypeEchomailMsg }

// IsNetmail reports whether this is a netmail message.
func (mt MessageType) IsNetmail() bool { return mt == MsgTypeNetmailMsg }

// Attribute returns the JAM attribute flags for this message type.
func (mt MessageType) Attribute() uint32 {
	switch mt {
	case MsgTypeEchomailMsg:
		return MsgLocal | MsgTypeEcho
	case MsgTypeNetmailMsg:
		return MsgLocal | MsgTypeNet
	default:
		return MsgLocal | MsgTypeLocal
	}
}

// ParseMessageType maps a type name such as "echo" or "netmail" to a
// MessageType. Unknown names are local.
func ParseMessageType(name string) MessageType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "echo", "echomail":
		return MsgTypeEchomailMsg
	case "netmail", "direct":
		return MsgTypeNetmailMsg
	default:
		return MsgTypeLocalMsg
	}
}

// Post describes a message to be composed into a header.
type Post struct {
	Type     MessageType
	From     string
	To       string
	Subject  string
	OrigAddr string
	DestAddr string
	MsgID    string
	ReplyID  string
	Area     string // echo tag, written as an AREA: kludge for echomail
	Private  bool
	Kludges  []string
}

// Header builds a header carrying the post's subfields, attributes and
// thread checksums. Empty values produce no subfield; a missing recipient
// leaves the index record without a recipient checksum.
func (p *Post) Header() *MessageHeader {
	var sfs []Subfield
	add := func(id uint32, v string) {
		if v != "" {
			sfs = append(sfs, CreateSubfield(id, v))
		}
	}
	add(SfldOAddress, p.OrigAddr)
	if p.Type.IsNetmail() {
		add(SfldDAddress, p.DestAddr)
	}
	add(SfldSenderName, p.From)
	add(SfldReceiverName, p.To)
	add(SfldSubject, p.Subject)
	add(SfldMsgID, p.MsgID)
	add(SfldReplyID, p.ReplyID)
	if p.Type.IsEchomail() {
		if p.Area != "" {
			add(SfldFTSKludge, "AREA:"+p.Area)
		}
		add(SfldPID, FormatPID())
	}
	for _, k := range p.Kludges {
		add(SfldFTSKludge, k)
	}

	hdr := NewMessageHeader(sfs...)
	hdr.Attribute = p.Type.Attribute()
	if p.Private {
		hdr.Attribute |= MsgPrivate
	}
	if p.MsgID != "" {
		hdr.MSGIDcrc = MsgIDCRC(p.MsgID)
	}
	if p.ReplyID != "" {
		hdr.REPLYcrc = MsgIDCRC(p.ReplyID)
	}
	return hdr
}

// AddCustomTearline appends a tearline to the message text.
// If tearline is empty, the default program tearline is used.
// If tearline already starts with "---", it is used as-is.
func AddCustomTearline(text, tearline string) string {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	trimmed := strings.TrimSpace(tearline)
	if trimmed == "" {
		trimmed = FormatPID()
	}
	if strings.HasPrefix(trimmed, "---") {
		return text + trimmed + "\n"
	}
	return text + fmt.Sprintf("--- %s\n", trimmed)
}

// AddOriginLine appends an origin line to the message text.
// Format: " * Origin: BBS Name (1:103/705)"
func AddOriginLine(text, systemName, address string) string {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text + fmt.Sprintf(" * Origin: %s (%s)\n", systemName, address)
}

// OriginAddress returns the address in parentheses on the last origin
// line of text, or "".
func OriginAddress(text string) string {
	normalized := strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
	addr := ""
	for _, line := range strings.Split(normalized, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "* Origin:") {
			continue
		}
		start := strings.LastIndex(line, "(")
		end := strings.LastIndex(line, ")")
		if start != -1 && end > start {
			addr = strings.TrimSpace(line[start+1 : end])
		}
	}
	return addr
}

// FormatPID returns the PID kludge value.
func FormatPID() string {
	return fmt.Sprintf("msgbase %s/%s", Version, runtime.GOOS)
}
