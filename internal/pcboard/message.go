package pcboard

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Active flag values.
const (
	FlagActive   = 0xE1
	FlagInactive = 0xE2
)

// MessageHeader is the 128-byte block that starts every message.
type MessageHeader struct {
	Status         byte
	MsgNumber      uint32
	RefNumber      uint32
	NumBlocks      byte // header block included
	Date           string
	Time           string
	To             string
	ReplyDate      uint32 // YYMMDD
	ReplyTime      string
	ReplyStatus    byte
	From           string
	Subject        string
	Password       string
	ActiveFlag     byte
	EchoFlag       byte
	Reserved       uint32
	ExtendedStatus byte
	NetTag         byte
}

// IsActive reports whether the message is not deleted.
func (h *MessageHeader) IsActive() bool { return h.ActiveFlag == FlagActive }

// IsEcho reports whether the message is echoed to other systems.
func (h *MessageHeader) IsEcho() bool { return h.EchoFlag == 'E' }

// Posted parses the MM-DD-YY date and HH:MM time fields.
func (h *MessageHeader) Posted() (time.Time, error) {
	return time.Parse("01-02-06 15:04", h.Date+" "+h.Time)
}

func decodeMessageHeader(buf []byte) MessageHeader {
	le := binary.LittleEndian
	return MessageHeader{
		Status:         buf[0],
		MsgNumber:      MBFToUint32(le.Uint32(buf[1:5])),
		RefNumber:      MBFToUint32(le.Uint32(buf[5:9])),
		NumBlocks:      buf[9],
		Date:           decodeField(buf[10:18]),
		Time:           decodeField(buf[18:23]),
		To:             decodeField(buf[23:48]),
		ReplyDate:      MBFToUint32(le.Uint32(buf[48:52])),
		ReplyTime:      decodeField(buf[52:57]),
		ReplyStatus:    buf[57],
		From:           decodeField(buf[58:83]),
		Subject:        decodeField(buf[83:108]),
		Password:       decodeField(buf[108:120]),
		ActiveFlag:     buf[120],
		EchoFlag:       buf[121],
		Reserved:       le.Uint32(buf[122:126]),
		ExtendedStatus: buf[126],
		NetTag:         buf[127],
	}
}

// ExtendedFunction names the field an extended header carries.
type ExtendedFunction string

const (
	ExtTo      ExtendedFunction = "TO"
	ExtFrom    ExtendedFunction = "FROM"
	ExtSubject ExtendedFunction = "SUBJECT"
	ExtAttach  ExtendedFunction = "ATTACH"
	ExtList    ExtendedFunction = "LIST"
	ExtRoute   ExtendedFunction = "ROUTE"
	ExtOrigin  ExtendedFunction = "ORIGIN"
	ExtReqRR   ExtendedFunction = "REQRR"
	ExtAckRR   ExtendedFunction = "ACKRR"
	ExtAckName ExtendedFunction = "ACKNAME"
	ExtPackOut ExtendedFunction = "PACKOUT"
	ExtTo2     ExtendedFunction = "TO2"
	ExtFrom2   ExtendedFunction = "FROM2"
	ExtForward ExtendedFunction = "FORWARD"
	ExtUFollow ExtendedFunction = "UFOLLOW"
	ExtUNewsgr ExtendedFunction = "UNEWSGR"
)

var extendedFunctions = map[ExtendedFunction]bool{
	ExtTo: true, ExtFrom: true, ExtSubject: true, ExtAttach: true,
	ExtList: true, ExtRoute: true, ExtOrigin: true, ExtReqRR: true,
	ExtAckRR: true, ExtAckName: true, ExtPackOut: true, ExtTo2: true,
	ExtFrom2: true, ExtForward: true, ExtUFollow: true, ExtUNewsgr: true,
}

// ExtendedHeader carries a field too long for the fixed header.
type ExtendedHeader struct {
	Function ExtendedFunction
	Content  string
	Status   byte
}

// Extended header layout: 0xFF 0x40 id, 7-byte function, ':', 60-byte
// content, status byte, one reserved byte.
const (
	extFuncLen    = 7
	extContentLen = 60
)

func decodeExtendedHeader(buf []byte) (ExtendedHeader, error) {
	fn := ExtendedFunction(decodeField(buf[2 : 2+extFuncLen]))
	if !extendedFunctions[fn] {
		return ExtendedHeader{}, fmt.Errorf("%w: %q", ErrUnknownExtendedHeader, string(fn))
	}
	i := 2 + extFuncLen + 1
	return ExtendedHeader{
		Function: fn,
		Content:  decodeField(buf[i : i+extContentLen]),
		Status:   buf[i+extContentLen],
	}, nil
}

func isExtendedHeader(buf []byte) bool {
	return len(buf) >= ExtendedHeaderSize && buf[0] == 0xFF && buf[1] == 0x40
}

// Message is a decoded PCBoard message.
type Message struct {
	Header   MessageHeader
	Extended []ExtendedHeader
	Text     string
}

// Field returns the content of the first extended header with the given
// function.
func (m *Message) Field(fn ExtendedFunction) (string, bool) {
	for _, e := range m.Extended {
		if e.Function == fn {
			return e.Content, true
		}
	}
	return "", false
}

// ReadMessage decodes one message, header block first, from r.
func ReadMessage(r io.Reader) (*Message, error) {
	var hbuf [BlockSize]byte
	if _, err := io.ReadFull(r, hbuf[:]); err != nil {
		return nil, err
	}
	msg := &Message{Header: decodeMessageHeader(hbuf[:])}

	n := int(msg.Header.NumBlocks)
	if n <= 1 {
		return msg, nil
	}
	body := make([]byte, (n-1)*BlockSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	for isExtendedHeader(body) {
		ext, err := decodeExtendedHeader(body)
		if err != nil {
			return nil, err
		}
		msg.Extended = append(msg.Extended, ext)
		body = body[ExtendedHeaderSize:]
	}
	msg.Text = decodeText(body)
	return msg, nil
}
