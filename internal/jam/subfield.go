package jam

import (
	"golang.org/x/text/encoding/unicode"
)

// SubfieldKind is the semantic type of a subfield, derived from its id.
type SubfieldKind int

const (
	KindUnknown SubfieldKind = iota
	KindOAddress
	KindDAddress
	KindSenderName
	KindReceiverName
	KindMsgID
	KindReplyID
	KindSubject
	KindPID
	KindTrace
	KindEnclosedFile
	KindEnclosedFileWAlias
	KindEnclosedFreq
	KindEnclosedFileWCard
	KindEnclosedIndirectFile
	KindEmbInDat
	KindFTSKludge
	KindSeenBy2D
	KindPath2D
	KindFlags
	KindTZUTCInfo
)

var kindByID = map[uint32]SubfieldKind{
	SfldOAddress:             KindOAddress,
	SfldDAddress:             KindDAddress,
	SfldSenderName:           KindSenderName,
	SfldReceiverName:         KindReceiverName,
	SfldMsgID:                KindMsgID,
	SfldReplyID:              KindReplyID,
	SfldSubject:              KindSubject,
	SfldPID:                  KindPID,
	SfldTrace:                KindTrace,
	SfldEnclosedFile:         KindEnclosedFile,
	SfldEnclosedFileWAlias:   KindEnclosedFileWAlias,
	SfldEnclosedFreq:         KindEnclosedFreq,
	SfldEnclosedFileWCard:    KindEnclosedFileWCard,
	SfldEnclosedIndirectFile: KindEnclosedIndirectFile,
	SfldEmbInDat:             KindEmbInDat,
	SfldFTSKludge:            KindFTSKludge,
	SfldSeenBy2D:             KindSeenBy2D,
	SfldPath2D:               KindPath2D,
	SfldFlags:                KindFlags,
	SfldTZUTCInfo:            KindTZUTCInfo,
}

var kindNames = [...]string{
	KindUnknown:              "Unknown",
	KindOAddress:             "OAddress",
	KindDAddress:             "DAddress",
	KindSenderName:           "SenderName",
	KindReceiverName:         "ReceiverName",
	KindMsgID:                "MsgID",
	KindReplyID:              "ReplyID",
	KindSubject:              "Subject",
	KindPID:                  "PID",
	KindTrace:                "Trace",
	KindEnclosedFile:         "EnclosedFile",
	KindEnclosedFileWAlias:   "EnclosedFileWAlias",
	KindEnclosedFreq:         "EnclosedFreq",
	KindEnclosedFileWCard:    "EnclosedFileWCard",
	KindEnclosedIndirectFile: "EnclosedIndirectFile",
	KindEmbInDat:             "EmbInDat",
	KindFTSKludge:            "FTSKludge",
	KindSeenBy2D:             "SeenBy2D",
	KindPath2D:               "Path2D",
	KindFlags:                "Flags",
	KindTZUTCInfo:            "TZUTCInfo",
}

func (k SubfieldKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// KindOf maps a raw subfield id to its kind. Ids outside the catalog are
// KindUnknown.
func KindOf(id uint32) SubfieldKind {
	if k, ok := kindByID[id]; ok {
		return k
	}
	return KindUnknown
}

// ID returns the full 32-bit subfield id.
func (sf Subfield) ID() uint32 {
	return uint32(sf.HiID)<<16 | uint32(sf.LoID)
}

// Kind returns the semantic type of the subfield.
func (sf Subfield) Kind() SubfieldKind {
	return KindOf(sf.ID())
}

// Text decodes the payload as UTF-8, replacing invalid sequences with U+FFFD.
func (sf Subfield) Text() string {
	out, err := unicode.UTF8.NewDecoder().Bytes(sf.Buffer)
	if err != nil {
		return string(sf.Buffer)
	}
	return string(out)
}

// NewSubfield creates a Subfield from a raw id and payload.
func NewSubfield(id uint32, data []byte) Subfield {
	return Subfield{
		LoID:   uint16(id),
		HiID:   uint16(id >> 16),
		DatLen: uint32(len(data)),
		Buffer: data,
	}
}

// CreateSubfield creates a Subfield from a type identifier and string data.
func CreateSubfield(fieldType uint32, data string) Subfield {
	return NewSubfield(fieldType, []byte(data))
}

// GetSubfieldByType returns the first subfield matching the given id,
// or nil if none is found.
func (h *MessageHeader) GetSubfieldByType(fieldType uint32) *Subfield {
	for i := range h.Subfields {
		if h.Subfields[i].ID() == fieldType {
			return &h.Subfields[i]
		}
	}
	return nil
}

// GetAllSubfieldsByType returns all subfields matching the given id.
func (h *MessageHeader) GetAllSubfieldsByType(fieldType uint32) []Subfield {
	var fields []Subfield
	for _, sf := range h.Subfields {
		if sf.ID() == fieldType {
			fields = append(fields, sf)
		}
	}
	return fields
}

func (h *MessageHeader) text(fieldType uint32) (string, bool) {
	sf := h.GetSubfieldByType(fieldType)
	if sf == nil {
		return "", false
	}
	return sf.Text(), true
}

// Subject returns the first subject subfield.
func (h *MessageHeader) Subject() (string, bool) { return h.text(SfldSubject) }

// From returns the first sender name subfield.
func (h *MessageHeader) From() (string, bool) { return h.text(SfldSenderName) }

// To returns the first receiver name subfield.
func (h *MessageHeader) To() (string, bool) { return h.text(SfldReceiverName) }

// MsgID returns the first MSGID subfield.
func (h *MessageHeader) MsgID() (string, bool) { return h.text(SfldMsgID) }

// ReplyID returns the first REPLY subfield.
func (h *MessageHeader) ReplyID() (string, bool) { return h.text(SfldReplyID) }

// OrigAddr returns the first origin address subfield.
func (h *MessageHeader) OrigAddr() (string, bool) { return h.text(SfldOAddress) }

// DestAddr returns the first destination address subfield.
func (h *MessageHeader) DestAddr() (string, bool) { return h.text(SfldDAddress) }
