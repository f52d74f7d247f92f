package jam

import (
	"bufio"
	"errors"
	"io"
)

// countingReader tracks how many bytes have been consumed.
type countingReader struct {
	r   io.Reader
	pos int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.pos += int64(n)
	return n, err
}

// HeaderScanner reads consecutive message headers. Each step ends in one of
// three states: a header (Scan returns true), end of data (Scan returns
// false, Err is nil) or a failure (Scan returns false, Err is non-nil).
//
// In relaxed mode any decode failure is end of data, which is how other
// JAM tools treat a .jhr whose tail is being written. In strict mode only a
// clean end of stream at a record boundary is end of data.
type HeaderScanner struct {
	cr     *countingReader
	strict bool
	hdr    *MessageHeader
	offset int64
	err    error
	done   bool
}

// NewHeaderScanner scans headers from r. start is the file offset r is
// positioned at and is only used to report Offset.
func NewHeaderScanner(r io.Reader, start int64, strict bool) *HeaderScanner {
	return &HeaderScanner{
		cr:     &countingReader{r: bufio.NewReader(r), pos: start},
		strict: strict,
	}
}

// Scan advances to the next header.
func (s *HeaderScanner) Scan() bool {
	if s.done {
		return false
	}
	start := s.cr.pos
	hdr, err := ReadMessageHeader(s.cr)
	if err != nil {
		s.done = true
		s.hdr = nil
		if !errors.Is(err, io.EOF) && s.strict {
			s.err = err
		}
		return false
	}
	s.hdr = hdr
	s.offset = start
	return true
}

// Header returns the header produced by the last successful Scan.
func (s *HeaderScanner) Header() *MessageHeader { return s.hdr }

// Offset returns the .jhr byte offset of the current header.
func (s *HeaderScanner) Offset() int64 { return s.offset }

// Err returns the failure that ended a strict scan.
func (s *HeaderScanner) Err() error { return s.err }

// LastReadScanner reads consecutive lastread records with the same
// end/failure convention as HeaderScanner.
type LastReadScanner struct {
	r      *bufio.Reader
	strict bool
	rec    LastReadRecord
	pos    int
	err    error
	done   bool
}

// NewLastReadScanner scans lastread records from the start of r.
func NewLastReadScanner(r io.Reader, strict bool) *LastReadScanner {
	return &LastReadScanner{r: bufio.NewReader(r), strict: strict, pos: -1}
}

// Scan advances to the next record.
func (s *LastReadScanner) Scan() bool {
	if s.done {
		return false
	}
	rec, err := ReadLastRead(s.r)
	if err != nil {
		s.done = true
		if err != io.EOF && s.strict {
			s.err = err
		}
		return false
	}
	s.rec = rec
	s.pos++
	return true
}

// Record returns the record produced by the last successful Scan.
func (s *LastReadScanner) Record() LastReadRecord { return s.rec }

// Position returns the 0-based record position of the current record.
func (s *LastReadScanner) Position() int { return s.pos }

// Err returns the failure that ended a strict scan.
func (s *LastReadScanner) Err() error { return s.err }
