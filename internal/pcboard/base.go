// Package pcboard reads PCBoard message bases: the message file with its
// 22-byte base header, the 64-byte record .idx index and the legacy .ndx
// block index. Access is read-only.
package pcboard

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// File extensions, replacing the message file's own extension.
const (
	ExtIndex    = ".idx"
	ExtOldIndex = ".ndx"
)

// Record sizes.
const (
	BaseHeaderSize     = 4*4 + 6
	IndexRecordSize    = 64
	BlockSize          = 128
	ExtendedHeaderSize = 72
)

// BaseHeader is the header at the start of the message file.
type BaseHeader struct {
	HighMsgNum uint32
	LowMsgNum  uint32
	ActiveMsgs uint32
	Callers    uint32 // callers in the conference owning the base
	LockStatus string
}

// Base is an open PCBoard message base.
type Base struct {
	path   string
	header BaseHeader
}

// Open reads the base header of the message file at path.
func Open(path string) (*Base, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf [BaseHeaderSize]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return nil, fmt.Errorf("pcboard: read base header: %w", err)
	}
	return &Base{path: path, header: decodeBaseHeader(buf[:])}, nil
}

func decodeBaseHeader(buf []byte) BaseHeader {
	le := binary.LittleEndian
	return BaseHeader{
		HighMsgNum: MBFToUint32(le.Uint32(buf[0:4])),
		LowMsgNum:  MBFToUint32(le.Uint32(buf[4:8])),
		ActiveMsgs: MBFToUint32(le.Uint32(buf[8:12])),
		Callers:    MBFToUint32(le.Uint32(buf[12:16])),
		LockStatus: decodeField(buf[16:22]),
	}
}

// Path returns the message file path.
func (b *Base) Path() string { return b.path }

// Info returns the base header.
func (b *Base) Info() BaseHeader { return b.header }

// ActiveMessages returns the number of messages that are not deleted.
func (b *Base) ActiveMessages() uint32 { return b.header.ActiveMsgs }

// HighestMessageNumber returns the highest message number in the index.
func (b *Base) HighestMessageNumber() uint32 { return b.header.HighMsgNum }

// LowestMessageNumber returns the lowest message number in the index.
func (b *Base) LowestMessageNumber() uint32 { return b.header.LowMsgNum }

// Callers returns the caller count of the owning conference.
func (b *Base) Callers() uint32 { return b.header.Callers }

func (b *Base) siblingPath(ext string) string {
	return strings.TrimSuffix(b.path, filepath.Ext(b.path)) + ext
}

// ReadMessage reads message n, located through its .idx record.
func (b *Base) ReadMessage(n uint32) (*Message, error) {
	if n < b.header.LowMsgNum || n > b.header.HighMsgNum || n == 0 {
		return nil, &RangeError{Number: n, Low: b.header.LowMsgNum, High: b.header.HighMsgNum}
	}

	idx, err := os.Open(b.siblingPath(ExtIndex))
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	var rec [IndexRecordSize]byte
	if _, err := idx.ReadAt(rec[:], int64(n-1)*IndexRecordSize); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	entry := decodeIndexRecord(rec[:])

	f, err := os.Open(b.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(entry.HeaderOffset(), io.SeekStart); err != nil {
		return nil, err
	}
	return ReadMessage(bufio.NewReader(f))
}

// ReadIndex returns every .idx record, stopping silently at the first
// record that cannot be read whole.
func (b *Base) ReadIndex() ([]IndexRecord, error) {
	f, err := os.Open(b.siblingPath(ExtIndex))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var recs []IndexRecord
	r := bufio.NewReader(f)
	var buf [IndexRecordSize]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return recs, nil
		}
		recs = append(recs, decodeIndexRecord(buf[:]))
	}
}

// ReadOldIndex returns the message header byte offsets listed in the .ndx
// file. The list ends at the first zero entry.
func (b *Base) ReadOldIndex() ([]int64, error) {
	data, err := os.ReadFile(b.siblingPath(ExtOldIndex))
	if err != nil {
		return nil, err
	}

	var offsets []int64
	for len(data) >= 4 {
		v := binary.LittleEndian.Uint32(data)
		data = data[4:]
		if v == 0 {
			break
		}
		block := MBFToUint32(v)
		if block == 0 {
			break
		}
		offsets = append(offsets, int64(block-1)*BlockSize)
	}
	return offsets, nil
}
