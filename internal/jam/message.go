package jam

import (
	"bufio"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
)

// WriteMessage appends a message to the base and returns its number.
//
// The text is appended to .jdt verbatim, then the header to .jhr, then the
// index record to .jdx. The caller's header is not modified; a staged copy
// receives Signature, Revision, MessageNumber, DateWritten, Offset and
// TxtLen. The in-memory ActiveMsgs moves past the new message but nothing
// is persisted to the base header until Commit.
func (b *Base) WriteMessage(hdr *MessageHeader, text []byte) (uint32, error) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	var num uint32
	err := b.withFileLock(func() error {
		var err error
		num, err = b.appendMessage(hdr, text)
		return err
	})
	if err != nil {
		return 0, err
	}
	return num, nil
}

func (b *Base) appendMessage(hdr *MessageHeader, text []byte) (uint32, error) {
	pos, err := b.nextPosition()
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	num := b.header.BaseMsgNum + pos
	b.mu.Unlock()

	stage := *hdr
	stage.Subfields = append([]Subfield(nil), hdr.Subfields...)
	copy(stage.Signature[:], Signature)
	stage.Revision = Revision
	stage.MessageNumber = num
	stage.DateWritten = uint32(b.now().Unix())

	txtOffset, err := appendFile(b.BasePath+ExtText, func(w io.Writer) error {
		_, err := w.Write(text)
		return err
	})
	if err != nil {
		return 0, err
	}
	stage.Offset = uint32(txtOffset)
	stage.TxtLen = uint32(len(text))

	hdrOffset, err := appendFile(b.BasePath+ExtHeader, func(w io.Writer) error {
		return WriteMessageHeader(w, &stage)
	})
	if err != nil {
		return 0, err
	}

	toCRC := uint32(CRCSentinel)
	if sf := stage.GetSubfieldByType(SfldReceiverName); sf != nil {
		toCRC = crcLower(append([]byte(nil), sf.Buffer...))
	}
	if _, err := appendFile(b.BasePath+ExtIndex, func(w io.Writer) error {
		return AppendIndexRecord(w, toCRC, uint32(hdrOffset))
	}); err != nil {
		return 0, err
	}

	b.mu.Lock()
	b.header.ActiveMsgs = pos + 1
	b.pending++
	b.mu.Unlock()

	b.logger.Debug("jam: message written",
		slog.String("base", b.BasePath),
		slog.Uint64("number", uint64(num)),
		slog.Int64("hdr_offset", hdrOffset),
		slog.Int("txt_len", len(text)))
	return num, nil
}

// nextPosition returns the index position the next message takes. It must
// be called with the file lock held. A handle with no uncommitted writes
// reloads the base header first, so numbers committed by other writers are
// not handed out again. Records beyond ActiveMsgs belong to writers that
// have not committed yet and are skipped as well.
func (b *Base) nextPosition() (uint32, error) {
	b.mu.Lock()
	pending := b.pending
	b.mu.Unlock()
	if pending == 0 {
		if err := b.Refresh(); err != nil {
			return 0, err
		}
	}
	fi, err := os.Stat(b.BasePath + ExtIndex)
	if err != nil {
		return 0, err
	}
	records := uint32(fi.Size() / IndexRecordSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	return max(b.header.ActiveMsgs, records), nil
}

// appendFile opens the existing file at path for writing, calls fn
// positioned at the end of the file and returns the offset fn started
// writing at.
func appendFile(path string, fn func(w io.Writer) error) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return 0, err
	}
	off, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return 0, err
	}
	if err := fn(f); err != nil {
		f.Close()
		return 0, err
	}
	return off, f.Close()
}

// checkRange returns a *RangeError unless n is within
// [BaseMsgNum, BaseMsgNum+ActiveMsgs].
func (b *Base) checkRange(n uint32) (uint32, error) {
	h := b.Info()
	low := h.BaseMsgNum
	high := h.BaseMsgNum + h.ActiveMsgs
	if n < low || n > high {
		return 0, &RangeError{Number: n, Low: low, High: high}
	}
	return n - low, nil
}

// HeaderOffset returns the .jhr offset of message n from its index record.
func (b *Base) HeaderOffset(n uint32) (uint32, error) {
	pos, err := b.checkRange(n)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(b.BasePath + ExtIndex)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var buf [4]byte
	if _, err := f.ReadAt(buf[:], int64(pos)*IndexRecordSize+4); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadHeader reads the header of message n. The index record at position
// n-BaseMsgNum gives the header offset, so the lookup does not scan.
func (b *Base) ReadHeader(n uint32) (*MessageHeader, error) {
	off, err := b.HeaderOffset(n)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(b.BasePath + ExtHeader)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := f.Seek(int64(off), io.SeekStart); err != nil {
		return nil, err
	}
	hdr, err := ReadMessageHeader(bufio.NewReader(f))
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return hdr, err
}

// ReadHeaders returns every header in .jhr order, stopping silently at the
// first header that cannot be decoded.
func (b *Base) ReadHeaders() ([]*MessageHeader, error) {
	var hdrs []*MessageHeader
	err := b.ScanHeaders(false, func(_ int64, h *MessageHeader) error {
		hdrs = append(hdrs, h)
		return nil
	})
	return hdrs, err
}

// ScanHeaders walks the .jhr sequentially from the end of the base header
// and calls fn with each header and its offset. In strict mode a decode
// failure is returned; otherwise it ends the scan. An error from fn stops
// the scan and is returned.
func (b *Base) ScanHeaders(strict bool, fn func(offset int64, h *MessageHeader) error) error {
	f, err := os.Open(b.BasePath + ExtHeader)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Seek(HeaderSize, io.SeekStart); err != nil {
		return err
	}

	s := NewHeaderScanner(f, HeaderSize, strict)
	for s.Scan() {
		if err := fn(s.Offset(), s.Header()); err != nil {
			return err
		}
	}
	return s.Err()
}

// ReadText returns the text of the message described by hdr. Every byte
// maps to the character with the same code point and each CR becomes CRLF.
func (b *Base) ReadText(hdr *MessageHeader) (string, error) {
	raw, err := b.ReadRawText(hdr)
	if err != nil {
		return "", err
	}
	return decodeText(raw)
}

// ReadRawText returns the stored text bytes of hdr without conversion.
func (b *Base) ReadRawText(hdr *MessageHeader) ([]byte, error) {
	if hdr.TxtLen == 0 {
		return nil, nil
	}
	f, err := os.Open(b.BasePath + ExtText)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, hdr.TxtLen)
	if _, err := io.ReadFull(io.NewSectionReader(f, int64(hdr.Offset), int64(hdr.TxtLen)), buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// ReadMessage reads the header and text of message n.
func (b *Base) ReadMessage(n uint32) (*MessageHeader, string, error) {
	hdr, err := b.ReadHeader(n)
	if err != nil {
		return nil, "", err
	}
	text, err := b.ReadText(hdr)
	if err != nil {
		return nil, "", err
	}
	return hdr, text, nil
}

// UpdateMessageHeader rewrites the 76-byte fixed part of message n in
// place. Subfields are not rewritten, so SubfieldLen is taken from disk.
func (b *Base) UpdateMessageHeader(n uint32, hdr *MessageHeader) error {
	return b.withFileLock(func() error {
		off, err := b.HeaderOffset(n)
		if err != nil {
			return err
		}
		cur, err := b.ReadHeader(n)
		if err != nil {
			return err
		}
		fx := toFixed(hdr)
		fx.Signature = cur.Signature
		fx.Revision = cur.Revision
		fx.SubfieldLen = cur.SubfieldLen

		f, err := os.OpenFile(b.BasePath+ExtHeader, os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		w := io.NewOffsetWriter(f, int64(off))
		if err := binary.Write(w, binary.LittleEndian, fx); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

// DeleteMessage sets the deleted attribute on message n. Counters and
// numbering are unchanged; the message stays addressable.
func (b *Base) DeleteMessage(n uint32) error {
	hdr, err := b.ReadHeader(n)
	if err != nil {
		return err
	}
	hdr.Attribute |= MsgDeleted
	if err := b.UpdateMessageHeader(n, hdr); err != nil {
		return err
	}
	b.logger.Debug("jam: message deleted", slog.String("base", b.BasePath), slog.Uint64("number", uint64(n)))
	return nil
}
