package pcboard

import "encoding/binary"

// IndexRecord is one 64-byte .idx record.
type IndexRecord struct {
	Offset int32 // header offset in the message file, negated when killed
	Num    int32
	To     string
	From   string
	Status byte
	Date   uint16 // days since 1900-01-01
}

// Killed reports whether the message was deleted.
func (r IndexRecord) Killed() bool { return r.Offset < 0 }

// HeaderOffset returns the header's byte offset in the message file.
func (r IndexRecord) HeaderOffset() int64 {
	if r.Offset < 0 {
		return -int64(r.Offset)
	}
	return int64(r.Offset)
}

func decodeIndexRecord(buf []byte) IndexRecord {
	le := binary.LittleEndian
	return IndexRecord{
		Offset: int32(le.Uint32(buf[0:4])),
		Num:    int32(le.Uint32(buf[4:8])),
		To:     decodeField(buf[8:33]),
		From:   decodeField(buf[33:58]),
		Status: buf[58],
		Date:   le.Uint16(buf[59:61]),
	}
}
