package jam

import (
	"bytes"
	"encoding/binary"
	"io"
)

// ReadMessageHeader decodes one message header from r: the 76-byte fixed
// part followed by exactly SubfieldLen bytes of subfields.
//
// A clean end of stream before the first byte is reported as io.EOF, a
// partial fixed part as io.ErrUnexpectedEOF. Format failures are
// ErrInvalidSignature, *RevisionError and *SubfieldLengthError.
func ReadMessageHeader(r io.Reader) (*MessageHeader, error) {
	buf := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if string(buf[:4]) != Signature {
		return nil, ErrInvalidSignature
	}

	var fx headerFixed
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &fx); err != nil {
		return nil, err
	}
	if fx.Revision != Revision {
		return nil, &RevisionError{Revision: fx.Revision}
	}

	// SubfieldLen is untrusted; let the buffer grow with the data actually
	// present instead of allocating the declared size up front.
	var sub bytes.Buffer
	if _, err := io.CopyN(&sub, r, int64(fx.SubfieldLen)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	subfields, err := parseSubfields(sub.Bytes())
	if err != nil {
		return nil, err
	}

	hdr := fromFixed(&fx)
	hdr.Subfields = subfields
	return hdr, nil
}

// parseSubfields splits a subfield block into (id, length, payload)
// triples. The block must be consumed exactly.
func parseSubfields(data []byte) ([]Subfield, error) {
	var out []Subfield
	for i := 0; len(data) > 0; i++ {
		if len(data) < SubfieldHdrSize {
			return nil, &SubfieldLengthError{Length: uint32(len(data)), Index: i}
		}
		sf := Subfield{
			LoID:   binary.LittleEndian.Uint16(data[0:2]),
			HiID:   binary.LittleEndian.Uint16(data[2:4]),
			DatLen: binary.LittleEndian.Uint32(data[4:8]),
		}
		data = data[SubfieldHdrSize:]
		if uint64(sf.DatLen) > uint64(len(data)) {
			return nil, &SubfieldLengthError{Length: sf.DatLen, Index: i}
		}
		sf.Buffer = data[:sf.DatLen:sf.DatLen]
		data = data[sf.DatLen:]
		out = append(out, sf)
	}
	return out, nil
}

// WriteMessageHeader encodes hdr to w in a single write. SubfieldLen and
// each subfield's DatLen are recomputed from the buffers and stored back
// into hdr. MSGIDcrc and REPLYcrc are written as given.
func WriteMessageHeader(w io.Writer, hdr *MessageHeader) error {
	hdr.SubfieldLen = 0
	for i := range hdr.Subfields {
		hdr.Subfields[i].DatLen = uint32(len(hdr.Subfields[i].Buffer))
		hdr.SubfieldLen += SubfieldHdrSize + hdr.Subfields[i].DatLen
	}

	var buf bytes.Buffer
	buf.Grow(FixedHeaderSize + int(hdr.SubfieldLen))
	if err := binary.Write(&buf, binary.LittleEndian, toFixed(hdr)); err != nil {
		return err
	}
	var sfh [SubfieldHdrSize]byte
	for _, sf := range hdr.Subfields {
		binary.LittleEndian.PutUint16(sfh[0:2], sf.LoID)
		binary.LittleEndian.PutUint16(sfh[2:4], sf.HiID)
		binary.LittleEndian.PutUint32(sfh[4:8], sf.DatLen)
		buf.Write(sfh[:])
		buf.Write(sf.Buffer)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func toFixed(h *MessageHeader) *headerFixed {
	return &headerFixed{
		Signature:     h.Signature,
		Revision:      h.Revision,
		ReservedWord:  h.ReservedWord,
		SubfieldLen:   h.SubfieldLen,
		TimesRead:     h.TimesRead,
		MSGIDcrc:      h.MSGIDcrc,
		REPLYcrc:      h.REPLYcrc,
		ReplyTo:       h.ReplyTo,
		Reply1st:      h.Reply1st,
		ReplyNext:     h.ReplyNext,
		DateWritten:   h.DateWritten,
		DateReceived:  h.DateReceived,
		DateProcessed: h.DateProcessed,
		MessageNumber: h.MessageNumber,
		Attribute:     h.Attribute,
		Attribute2:    h.Attribute2,
		Offset:        h.Offset,
		TxtLen:        h.TxtLen,
		PasswordCRC:   h.PasswordCRC,
		Cost:          h.Cost,
	}
}

func fromFixed(fx *headerFixed) *MessageHeader {
	return &MessageHeader{
		Signature:     fx.Signature,
		Revision:      fx.Revision,
		ReservedWord:  fx.ReservedWord,
		SubfieldLen:   fx.SubfieldLen,
		TimesRead:     fx.TimesRead,
		MSGIDcrc:      fx.MSGIDcrc,
		REPLYcrc:      fx.REPLYcrc,
		ReplyTo:       fx.ReplyTo,
		Reply1st:      fx.Reply1st,
		ReplyNext:     fx.ReplyNext,
		DateWritten:   fx.DateWritten,
		DateReceived:  fx.DateReceived,
		DateProcessed: fx.DateProcessed,
		MessageNumber: fx.MessageNumber,
		Attribute:     fx.Attribute,
		Attribute2:    fx.Attribute2,
		Offset:        fx.Offset,
		TxtLen:        fx.TxtLen,
		PasswordCRC:   fx.PasswordCRC,
		Cost:          fx.Cost,
	}
}

// NewMessageHeader returns a revision-1 header with the JAM signature set
// and the given subfields attached.
func NewMessageHeader(subfields ...Subfield) *MessageHeader {
	hdr := &MessageHeader{
		Revision:  Revision,
		Subfields: subfields,
	}
	copy(hdr.Signature[:], Signature)
	return hdr
}
