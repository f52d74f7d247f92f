package jam

import (
	"encoding/binary"
	"io"
	"os"
)

// ReadLastRead decodes one 16-byte lastread record from r.
func ReadLastRead(r io.Reader) (LastReadRecord, error) {
	var buf [LastReadSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return LastReadRecord{}, err
	}
	return LastReadRecord{
		UserCRC:     binary.LittleEndian.Uint32(buf[0:4]),
		UserID:      binary.LittleEndian.Uint32(buf[4:8]),
		LastReadMsg: binary.LittleEndian.Uint32(buf[8:12]),
		HighReadMsg: binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

func encodeLastRead(rec LastReadRecord) []byte {
	buf := make([]byte, LastReadSize)
	binary.LittleEndian.PutUint32(buf[0:4], rec.UserCRC)
	binary.LittleEndian.PutUint32(buf[4:8], rec.UserID)
	binary.LittleEndian.PutUint32(buf[8:12], rec.LastReadMsg)
	binary.LittleEndian.PutUint32(buf[12:16], rec.HighReadMsg)
	return buf
}

// ReadLastReads returns every lastread record in file order, stopping
// silently at the first record that cannot be read whole.
func (b *Base) ReadLastReads() ([]LastReadRecord, error) {
	f, err := os.Open(b.BasePath + ExtLastRead)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var recs []LastReadRecord
	s := NewLastReadScanner(f, false)
	for s.Scan() {
		recs = append(recs, s.Record())
	}
	return recs, s.Err()
}

// FindLastRead returns the first record whose UserCRC and UserID both
// match and remembers its position for LastReadPosition and SetLastRead.
// When none matches the remembered position is cleared and ErrNotFound
// is returned.
func (b *Base) FindLastRead(userCRC, userID uint32) (*LastReadRecord, error) {
	rec, pos, err := b.findLastRead(userCRC, userID)

	b.mu.Lock()
	b.lastReadRecord = pos
	b.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (b *Base) findLastRead(userCRC, userID uint32) (LastReadRecord, int, error) {
	f, err := os.Open(b.BasePath + ExtLastRead)
	if err != nil {
		return LastReadRecord{}, -1, err
	}
	defer f.Close()

	s := NewLastReadScanner(f, false)
	for s.Scan() {
		rec := s.Record()
		if rec.UserCRC == userCRC && rec.UserID == userID {
			return rec, s.Position(), nil
		}
	}
	return LastReadRecord{}, -1, ErrNotFound
}

// LastReadPosition returns the 0-based position found by the last
// FindLastRead, or -1.
func (b *Base) LastReadPosition() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastReadRecord
}

// SetLastRead stores rec. The record at the remembered position is
// rewritten in place when its key still matches; otherwise the record is
// located again, and appended when the user has none.
func (b *Base) SetLastRead(rec LastReadRecord) error {
	return b.withFileLock(func() error {
		pos, err := b.lastReadSlot(rec)
		if err != nil {
			return err
		}

		f, err := os.OpenFile(b.BasePath+ExtLastRead, os.O_WRONLY|os.O_CREATE, 0644)
		if err != nil {
			return err
		}
		var off int64
		if pos >= 0 {
			off = int64(pos) * LastReadSize
		} else {
			end, err := f.Seek(0, io.SeekEnd)
			if err != nil {
				f.Close()
				return err
			}
			// Drop a partial trailing record so the new one stays aligned.
			off = end - end%LastReadSize
			pos = int(off / LastReadSize)
		}
		if _, err := f.WriteAt(encodeLastRead(rec), off); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		b.mu.Lock()
		b.lastReadRecord = pos
		b.mu.Unlock()
		return nil
	})
}

// lastReadSlot returns the position rec should be written at, or -1 to
// append.
func (b *Base) lastReadSlot(rec LastReadRecord) (int, error) {
	pos := b.LastReadPosition()
	if pos >= 0 {
		f, err := os.Open(b.BasePath + ExtLastRead)
		if err != nil {
			return -1, err
		}
		cur, err := ReadLastRead(io.NewSectionReader(f, int64(pos)*LastReadSize, LastReadSize))
		f.Close()
		if err == nil && cur.UserCRC == rec.UserCRC && cur.UserID == rec.UserID {
			return pos, nil
		}
	}
	_, pos, err := b.findLastRead(rec.UserCRC, rec.UserID)
	if err == ErrNotFound {
		return -1, nil
	}
	return pos, err
}

// MarkMessageRead records that the user read message n: LastReadMsg
// becomes n and HighReadMsg only moves forward.
func (b *Base) MarkMessageRead(userName string, userID, n uint32) error {
	crc := CRC32String(userName)
	rec := LastReadRecord{UserCRC: crc, UserID: userID, LastReadMsg: n, HighReadMsg: n}
	cur, err := b.FindLastRead(crc, userID)
	switch {
	case err == nil:
		rec.HighReadMsg = max(cur.HighReadMsg, n)
	case err != ErrNotFound:
		return err
	}
	return b.SetLastRead(rec)
}

// UnreadCount returns how many messages lie after the user's LastReadMsg.
// A user without a record has every active message unread.
func (b *Base) UnreadCount(userName string, userID uint32) (uint32, error) {
	h := b.Info()
	high := h.BaseMsgNum + h.ActiveMsgs - 1
	if h.ActiveMsgs == 0 {
		return 0, nil
	}
	rec, err := b.FindLastRead(CRC32String(userName), userID)
	if err == ErrNotFound {
		return h.ActiveMsgs, nil
	}
	if err != nil {
		return 0, err
	}
	if rec.LastReadMsg >= high {
		return 0, nil
	}
	if rec.LastReadMsg < h.BaseMsgNum {
		return h.ActiveMsgs, nil
	}
	return high - rec.LastReadMsg, nil
}
