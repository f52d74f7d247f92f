package jam

import (
	"context"
	"encoding/binary"
	"io"

	"golang.org/x/sync/errgroup"
)

// minSearchChunk keeps tiny indexes from being split into goroutines that
// each test a handful of records.
const minSearchChunk = 512

// AppendIndexRecord writes one 8-byte index record to w.
func AppendIndexRecord(w io.Writer, toCRC, hdrOffset uint32) error {
	var buf [IndexRecordSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], toCRC)
	binary.LittleEndian.PutUint32(buf[4:8], hdrOffset)
	_, err := w.Write(buf[:])
	return err
}

// ReadIndexRecord decodes one 8-byte index record from r.
func ReadIndexRecord(r io.Reader) (IndexRecord, error) {
	var buf [IndexRecordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return IndexRecord{}, err
	}
	return IndexRecord{
		ToCRC:     binary.LittleEndian.Uint32(buf[0:4]),
		HdrOffset: binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

// SearchIndex returns every record of an in-memory .jdx whose ToCRC equals
// crc, ordered by record position. baseMsgNum turns positions into message
// numbers. Records are tested independently across up to workers
// goroutines; the result does not depend on the worker count.
func SearchIndex(ctx context.Context, data []byte, crc, baseMsgNum uint32, workers int) ([]IndexHit, error) {
	if len(data)%IndexRecordSize != 0 {
		return nil, ErrIndexCorrupted
	}
	total := len(data) / IndexRecordSize
	if total == 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (total + workers - 1) / workers
	if chunk < minSearchChunk {
		chunk = minSearchChunk
	}
	chunks := (total + chunk - 1) / chunk
	partial := make([][]IndexHit, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		lo := c * chunk
		hi := min(lo+chunk, total)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partial[c] = scanIndexRange(data, lo, hi, crc, baseMsgNum)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var hits []IndexHit
	for _, p := range partial {
		hits = append(hits, p...)
	}
	return hits, nil
}

func scanIndexRange(data []byte, lo, hi int, crc, baseMsgNum uint32) []IndexHit {
	var hits []IndexHit
	for i := lo; i < hi; i++ {
		rec := data[i*IndexRecordSize : (i+1)*IndexRecordSize]
		if binary.LittleEndian.Uint32(rec[0:4]) != crc {
			continue
		}
		hits = append(hits, IndexHit{
			Position:      uint32(i),
			MessageNumber: baseMsgNum + uint32(i),
			HdrOffset:     binary.LittleEndian.Uint32(rec[4:8]),
		})
	}
	return hits
}
