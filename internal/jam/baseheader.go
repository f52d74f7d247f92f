package jam

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"time"
)

// LoadBaseHeader reads the 1024-byte fixed header from r. The reserved
// region is consumed but not interpreted.
func LoadBaseHeader(r io.Reader) (*BaseHeader, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if string(buf[:4]) != Signature {
		return nil, ErrInvalidSignature
	}
	h := &BaseHeader{}
	if err := binary.Read(bytes.NewReader(buf[:BaseInfoSize]), binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return h, nil
}

// CreateBaseHeader writes a fresh fixed header to path, replacing any
// existing file. BaseMsgNum starts at 1 and all counters at zero.
func CreateBaseHeader(path string, passwordCRC uint32, now time.Time) (*BaseHeader, error) {
	h := &BaseHeader{
		DateCreated: uint32(now.Unix()),
		PasswordCRC: passwordCRC,
		BaseMsgNum:  1,
	}
	copy(h.Signature[:], Signature)

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(encodeBaseHeader(h)); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return h, nil
}

// CommitBaseHeader persists the mutable counters of h: ModCounter is bumped
// by one (wrapping) and written together with ActiveMsgs at their fixed
// offset. Signature, DateCreated and the rest of the header are left alone.
func CommitBaseHeader(w io.WriterAt, h *BaseHeader) error {
	next := h.ModCounter + 1
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], next)
	binary.LittleEndian.PutUint32(buf[4:8], h.ActiveMsgs)
	if _, err := w.WriteAt(buf[:], counterOffset); err != nil {
		return err
	}
	h.ModCounter = next
	return nil
}

// encodeBaseHeader returns the full 1024-byte on-disk form of h with a
// zeroed reserved region.
func encodeBaseHeader(h *BaseHeader) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Signature[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.DateCreated)
	binary.LittleEndian.PutUint32(buf[8:12], h.ModCounter)
	binary.LittleEndian.PutUint32(buf[12:16], h.ActiveMsgs)
	binary.LittleEndian.PutUint32(buf[16:20], h.PasswordCRC)
	binary.LittleEndian.PutUint32(buf[20:24], h.BaseMsgNum)
	return buf
}
