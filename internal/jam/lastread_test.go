package jam

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLastReadSetAndFind(t *testing.T) {
	b := openTestBase(t)
	crc := CRC32String("testuser")

	// No lastread yet
	if _, err := b.FindLastRead(crc, 7); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if b.LastReadPosition() != -1 {
		t.Errorf("position = %d, want -1", b.LastReadPosition())
	}

	if err := b.SetLastRead(LastReadRecord{UserCRC: crc, UserID: 7, LastReadMsg: 3, HighReadMsg: 3}); err != nil {
		t.Fatalf("SetLastRead: %v", err)
	}
	lr, err := b.FindLastRead(crc, 7)
	if err != nil {
		t.Fatalf("FindLastRead: %v", err)
	}
	if lr.LastReadMsg != 3 || lr.HighReadMsg != 3 {
		t.Errorf("record = %+v", lr)
	}
	if b.LastReadPosition() != 0 {
		t.Errorf("position = %d, want 0", b.LastReadPosition())
	}

	// Update rewrites in place
	if err := b.SetLastRead(LastReadRecord{UserCRC: crc, UserID: 7, LastReadMsg: 5, HighReadMsg: 5}); err != nil {
		t.Fatalf("SetLastRead update: %v", err)
	}
	info, _ := os.Stat(b.Path() + ".jlr")
	if info.Size() != LastReadSize {
		t.Errorf(".jlr size = %d, want %d", info.Size(), LastReadSize)
	}
	lr, _ = b.FindLastRead(crc, 7)
	if lr.LastReadMsg != 5 {
		t.Errorf("updated LastReadMsg = %d, want 5", lr.LastReadMsg)
	}

	// Same CRC, other user id is a different record.
	if _, err := b.FindLastRead(crc, 8); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for other id, got %v", err)
	}
	if b.LastReadPosition() != -1 {
		t.Errorf("position after miss = %d, want -1", b.LastReadPosition())
	}
}

func TestMultipleUsersLastRead(t *testing.T) {
	b := openTestBase(t)
	alice := LastReadRecord{UserCRC: CRC32String("alice"), UserID: 1, LastReadMsg: 2, HighReadMsg: 2}
	bob := LastReadRecord{UserCRC: CRC32String("bob"), UserID: 2, LastReadMsg: 4, HighReadMsg: 4}
	for _, rec := range []LastReadRecord{alice, bob} {
		if err := b.SetLastRead(rec); err != nil {
			t.Fatalf("SetLastRead: %v", err)
		}
	}

	// The remembered position belongs to bob; updating alice must relocate.
	alice.LastReadMsg = 9
	if err := b.SetLastRead(alice); err != nil {
		t.Fatalf("SetLastRead: %v", err)
	}

	recs, err := b.ReadLastReads()
	if err != nil {
		t.Fatalf("ReadLastReads: %v", err)
	}
	if diff := cmp.Diff([]LastReadRecord{alice, bob}, recs); diff != "" {
		t.Errorf("records (-want +got):\n%s", diff)
	}
}

func TestReadLastReadsStopsAtPartialRecord(t *testing.T) {
	b := openTestBase(t)
	rec := LastReadRecord{UserCRC: 1, UserID: 2, LastReadMsg: 3, HighReadMsg: 4}
	data := append(encodeLastRead(rec), 0xAA, 0xBB)
	if err := os.WriteFile(b.Path()+".jlr", data, 0644); err != nil {
		t.Fatal(err)
	}
	recs, err := b.ReadLastReads()
	if err != nil {
		t.Fatalf("ReadLastReads: %v", err)
	}
	if len(recs) != 1 || recs[0] != rec {
		t.Errorf("records = %+v", recs)
	}

	// A new record is written on the record boundary.
	other := LastReadRecord{UserCRC: 5, UserID: 6}
	if err := b.SetLastRead(other); err != nil {
		t.Fatalf("SetLastRead: %v", err)
	}
	recs, _ = b.ReadLastReads()
	if len(recs) != 2 || recs[1] != other {
		t.Errorf("records after append = %+v", recs)
	}
}

func TestMarkMessageRead(t *testing.T) {
	b := openTestBase(t)
	for i := 0; i < 5; i++ {
		writeTestMessage(t, b, "All", "Body")
	}

	if err := b.MarkMessageRead("reader", 1, 3); err != nil {
		t.Fatalf("MarkMessageRead: %v", err)
	}
	lr, _ := b.FindLastRead(CRC32String("reader"), 1)
	if lr.LastReadMsg != 3 || lr.HighReadMsg != 3 {
		t.Errorf("record = %+v", lr)
	}

	// Going back keeps the high-water mark.
	b.MarkMessageRead("reader", 1, 5)
	b.MarkMessageRead("reader", 1, 2)
	lr, _ = b.FindLastRead(CRC32String("reader"), 1)
	if lr.LastReadMsg != 2 || lr.HighReadMsg != 5 {
		t.Errorf("record = %+v, want last 2 high 5", lr)
	}
}

func TestUnreadCount(t *testing.T) {
	b := openTestBase(t)
	if n, err := b.UnreadCount("newuser", 1); err != nil || n != 0 {
		t.Errorf("empty base: %d, %v", n, err)
	}
	for i := 0; i < 10; i++ {
		writeTestMessage(t, b, "All", "Body")
	}

	// New user: all unread
	unread, err := b.UnreadCount("newuser", 1)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if unread != 10 {
		t.Errorf("unread = %d, want 10 for new user", unread)
	}

	b.MarkMessageRead("newuser", 1, 7)
	if unread, _ = b.UnreadCount("newuser", 1); unread != 3 {
		t.Errorf("unread = %d, want 3 after reading 7", unread)
	}
	b.MarkMessageRead("newuser", 1, 10)
	if unread, _ = b.UnreadCount("newuser", 1); unread != 0 {
		t.Errorf("unread = %d, want 0 after reading all", unread)
	}
}

func TestLastReadPersistsAcrossReopen(t *testing.T) {
	b := openTestBase(t)
	rec := LastReadRecord{UserCRC: CRC32String("persist_user"), UserID: 3, LastReadMsg: 1, HighReadMsg: 1}
	if err := b.SetLastRead(rec); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(b.Path())
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	lr, err := reopened.FindLastRead(rec.UserCRC, rec.UserID)
	if err != nil {
		t.Fatalf("FindLastRead after reopen: %v", err)
	}
	if *lr != rec {
		t.Errorf("persisted record = %+v, want %+v", *lr, rec)
	}
}
