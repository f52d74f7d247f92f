package jam

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// CheckReport is the result of an integrity check.
type CheckReport struct {
	Base            string
	ActiveMsgs      uint32
	IndexRecords    int
	Uncommitted     int // index records beyond ActiveMsgs
	HeadersScanned  int
	DeletedMsgs     int
	LastReadRecords int
	Issues          []string
}

// OK reports whether the check found no issues.
func (r *CheckReport) OK() bool { return len(r.Issues) == 0 }

func (r *CheckReport) addf(format string, args ...any) {
	r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
}

// Check verifies the cross-file consistency of the base without modifying
// it. Problems are collected in the report; the error is only set when a
// file cannot be read at all or ctx is cancelled.
func (b *Base) Check(ctx context.Context) (*CheckReport, error) {
	info := b.Info()
	r := &CheckReport{Base: b.BasePath, ActiveMsgs: info.ActiveMsgs}

	jhr, err := os.Stat(b.BasePath + ExtHeader)
	if err != nil {
		return nil, err
	}
	jdt, err := os.Stat(b.BasePath + ExtText)
	if err != nil {
		return nil, err
	}
	jlr, err := os.Stat(b.BasePath + ExtLastRead)
	if err != nil {
		return nil, err
	}
	idx, err := os.ReadFile(b.BasePath + ExtIndex)
	if err != nil {
		return nil, err
	}

	if len(idx)%IndexRecordSize != 0 {
		r.addf(".jdx size %d not divisible by %d", len(idx), IndexRecordSize)
	}
	if jlr.Size()%LastReadSize != 0 {
		r.addf(".jlr size %d not divisible by %d", jlr.Size(), LastReadSize)
	}
	r.LastReadRecords = int(jlr.Size() / LastReadSize)

	r.IndexRecords = len(idx) / IndexRecordSize
	switch {
	case r.IndexRecords < int(info.ActiveMsgs):
		r.addf("ActiveMsgs=%d but .jdx holds %d records", info.ActiveMsgs, r.IndexRecords)
	case r.IndexRecords > int(info.ActiveMsgs):
		r.Uncommitted = r.IndexRecords - int(info.ActiveMsgs)
	}

	f, err := os.Open(b.BasePath + ExtHeader)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for pos := 0; pos < r.IndexRecords; pos++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := info.BaseMsgNum + uint32(pos)
		off := binary.LittleEndian.Uint32(idx[pos*IndexRecordSize+4:])
		if int64(off) < HeaderSize || int64(off) >= jhr.Size() {
			r.addf("msg %d index points to invalid offset %d (file size %d)", n, off, jhr.Size())
			continue
		}
		hdr, err := ReadMessageHeader(newSectionAt(f, int64(off)))
		if err != nil {
			r.addf("msg %d: cannot read header at %d: %v", n, off, err)
			continue
		}
		if hdr.MessageNumber != n {
			r.addf("msg %d: header carries number %d", n, hdr.MessageNumber)
		}
		if hdr.IsDeleted() {
			r.DeletedMsgs++
		}
		if hdr.TxtLen > 0 && int64(hdr.Offset)+int64(hdr.TxtLen) > jdt.Size() {
			r.addf("msg %d text extends beyond .jdt (offset=%d len=%d, file=%d)",
				n, hdr.Offset, hdr.TxtLen, jdt.Size())
		}
		if replyID, ok := hdr.ReplyID(); ok && len(strings.Fields(replyID)) > 2 {
			r.addf("msg %d: malformed ReplyID %q", n, replyID)
		}
	}

	err = b.ScanHeaders(true, func(int64, *MessageHeader) error {
		r.HeadersScanned++
		return ctx.Err()
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		r.addf("header scan stopped after %d headers: %v", r.HeadersScanned, err)
	}
	return r, nil
}

// newSectionAt returns a buffered reader over f starting at off.
func newSectionAt(f *os.File, off int64) io.Reader {
	return bufio.NewReader(io.NewSectionReader(f, off, math.MaxInt64-off))
}
