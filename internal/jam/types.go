package jam

// BaseHeader is the JAM base header (1024 bytes on disk).
// The first 24 bytes carry structured data; bytes 24-1023 are reserved and
// never interpreted.
type BaseHeader struct {
	Signature   [4]byte
	DateCreated uint32
	ModCounter  uint32
	ActiveMsgs  uint32
	PasswordCRC uint32
	BaseMsgNum  uint32
}

// NextMessageNumber is the number the next written message receives.
func (h *BaseHeader) NextMessageNumber() uint32 {
	return h.BaseMsgNum + h.ActiveMsgs
}

// headerFixed is the 76-byte on-disk prefix of a message header.
type headerFixed struct {
	Signature     [4]byte
	Revision      uint16
	ReservedWord  uint16
	SubfieldLen   uint32
	TimesRead     uint32
	MSGIDcrc      uint32
	REPLYcrc      uint32
	ReplyTo       uint32
	Reply1st      uint32
	ReplyNext     uint32
	DateWritten   uint32
	DateReceived  uint32
	DateProcessed uint32
	MessageNumber uint32
	Attribute     uint32
	Attribute2    uint32
	Offset        uint32
	TxtLen        uint32
	PasswordCRC   uint32
	Cost          uint32
}

// MessageHeader represents a JAM message header stored in the .jhr file.
// A header returned by a read is a snapshot; changing it does not touch disk.
type MessageHeader struct {
	Signature     [4]byte
	Revision      uint16
	ReservedWord  uint16
	SubfieldLen   uint32
	TimesRead     uint32
	MSGIDcrc      uint32
	REPLYcrc      uint32
	ReplyTo       uint32
	Reply1st      uint32
	ReplyNext     uint32
	DateWritten   uint32
	DateReceived  uint32
	DateProcessed uint32
	MessageNumber uint32
	Attribute     uint32
	Attribute2    uint32
	Offset        uint32 // Offset into .jdt file
	TxtLen        uint32 // Length of text in .jdt
	PasswordCRC   uint32
	Cost          uint32
	Subfields     []Subfield
}

// Subfield represents a variable-length field attached to a message header.
type Subfield struct {
	LoID   uint16
	HiID   uint16
	DatLen uint32
	Buffer []byte
}

// IndexRecord represents an entry in the .jdx index file (8 bytes).
type IndexRecord struct {
	ToCRC     uint32 // CRC32 of lowercase recipient name, or CRCSentinel
	HdrOffset uint32 // Byte offset of header in .jhr
}

// IndexHit is one index search match. Position is the 0-based record
// position in the .jdx, MessageNumber is BaseMsgNum+Position and HdrOffset
// is the raw byte offset of the header in the .jhr.
type IndexHit struct {
	Position      uint32
	MessageNumber uint32
	HdrOffset     uint32
}

// LastReadRecord represents a per-user lastread entry in the .jlr file (16 bytes).
type LastReadRecord struct {
	UserCRC     uint32 // CRC32 of lowercase username
	UserID      uint32
	LastReadMsg uint32
	HighReadMsg uint32
}

// IsDeleted reports whether the message has been marked as deleted.
func (h *MessageHeader) IsDeleted() bool {
	return h.Attribute&MsgDeleted != 0
}

// IsPrivate reports whether the message is private.
func (h *MessageHeader) IsPrivate() bool {
	return h.Attribute&MsgPrivate != 0
}
