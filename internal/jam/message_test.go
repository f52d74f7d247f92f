package jam

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func writeTestMessage(t *testing.T, b *Base, to, text string) uint32 {
	t.Helper()
	post := &Post{From: "User", To: to, Subject: "Msg"}
	n, err := b.WriteMessage(post.Header(), []byte(text))
	if err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	return n
}

func TestWriteAndReadMessage(t *testing.T) {
	b := openTestBase(t)

	hdr := NewMessageHeader(
		CreateSubfield(SfldSenderName, "John Doe"),
		CreateSubfield(SfldReceiverName, "All"),
		CreateSubfield(SfldSubject, "Test Subject"),
	)
	hdr.Attribute = MsgLocal
	msgNum, err := b.WriteMessage(hdr, []byte("Hello, world!"))
	if err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if msgNum != 1 {
		t.Errorf("msgNum = %d, want 1", msgNum)
	}
	if hdr.MessageNumber != 0 || hdr.TxtLen != 0 {
		t.Error("caller's header should not be modified")
	}

	got, text, err := b.ReadMessage(1)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if from, _ := got.From(); from != "John Doe" {
		t.Errorf("From = %q, want %q", from, "John Doe")
	}
	if to, _ := got.To(); to != "All" {
		t.Errorf("To = %q, want %q", to, "All")
	}
	if subj, _ := got.Subject(); subj != "Test Subject" {
		t.Errorf("Subject = %q, want %q", subj, "Test Subject")
	}
	if text != "Hello, world!" {
		t.Errorf("Text = %q, want %q", text, "Hello, world!")
	}
	if got.DateWritten != uint32(testNow.Unix()) {
		t.Errorf("DateWritten = %d, want %d", got.DateWritten, testNow.Unix())
	}
	if got.MessageNumber != 1 || got.Revision != Revision || string(got.Signature[:]) != Signature {
		t.Errorf("unexpected header identity: %+v", got)
	}
	if got.Attribute != MsgLocal {
		t.Errorf("Attribute = %x, want %x", got.Attribute, MsgLocal)
	}
}

func TestWriteCommitInvariant(t *testing.T) {
	b := openTestBase(t)
	writeTestMessage(t, b, "All", "first")
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	before := b.ActiveMessages()
	text := []byte("second message\rwith two lines")
	n, err := b.WriteMessage(NewMessageHeader(), text)
	if err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if b.ActiveMessages() != before+1 {
		t.Fatalf("active = %d, want %d", b.ActiveMessages(), before+1)
	}
	if want := b.BaseMessageNumber() + before; n != want {
		t.Errorf("assigned number %d, want %d", n, want)
	}
	hdr, err := b.ReadHeader(n)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}

	jdt, err := os.ReadFile(b.Path() + ".jdt")
	if err != nil {
		t.Fatal(err)
	}
	if got := jdt[hdr.Offset : hdr.Offset+hdr.TxtLen]; string(got) != string(text) {
		t.Errorf("text slice = %q, want %q", got, text)
	}
	if int(hdr.Offset+hdr.TxtLen) != len(jdt) {
		t.Errorf("text does not end the .jdt: %d+%d != %d", hdr.Offset, hdr.TxtLen, len(jdt))
	}
}

func TestReadHeaderRange(t *testing.T) {
	b := openTestBase(t)
	for i := 0; i < 5; i++ {
		writeTestMessage(t, b, "All", "Body")
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	low := b.BaseMessageNumber()
	high := low + b.ActiveMessages()

	for _, n := range []uint32{0, high + 1, high + 100} {
		_, err := b.ReadHeader(n)
		var re *RangeError
		if !errors.As(err, &re) {
			t.Fatalf("ReadHeader(%d): expected *RangeError, got %v", n, err)
		}
		if re.Low != low || re.High != high || re.Number != n {
			t.Errorf("RangeError = %+v", re)
		}
	}

	for n := low; n < high; n++ {
		hdr, err := b.ReadHeader(n)
		if err != nil {
			t.Fatalf("ReadHeader(%d): %v", n, err)
		}
		if hdr.MessageNumber != n {
			t.Errorf("ReadHeader(%d) got message %d", n, hdr.MessageNumber)
		}
	}

	// The next free number passes the range check but has no index record.
	_, err := b.ReadHeader(high)
	var re *RangeError
	if err == nil || errors.As(err, &re) {
		t.Errorf("ReadHeader(%d): expected I/O error, got %v", high, err)
	}
}

func TestReadTextExpandsCR(t *testing.T) {
	b := openTestBase(t)
	n, err := b.WriteMessage(NewMessageHeader(), []byte("a\rb"))
	if err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	hdr, err := b.ReadHeader(n)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if hdr.TxtLen != 3 {
		t.Fatalf("TxtLen = %d, want 3", hdr.TxtLen)
	}
	text, err := b.ReadText(hdr)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if text != "a\r\nb" {
		t.Errorf("ReadText = %q, want %q", text, "a\r\nb")
	}
}

func TestReadTextLatin1(t *testing.T) {
	b := openTestBase(t)
	n, err := b.WriteMessage(NewMessageHeader(), []byte{'c', 0xe9, 0x80, 0xff})
	if err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	_, text, err := b.ReadMessage(n)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if want := "cé\u0080ÿ"; text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestReadTextEmptyAndTruncated(t *testing.T) {
	b := openTestBase(t)
	text, err := b.ReadText(NewMessageHeader())
	if err != nil || text != "" {
		t.Errorf("empty text: %q, %v", text, err)
	}

	hdr := NewMessageHeader()
	hdr.Offset = 100
	hdr.TxtLen = 10
	if _, err := b.ReadText(hdr); err == nil {
		t.Error("expected error for text beyond .jdt")
	}
}

func TestWriteMessageStoresTextVerbatim(t *testing.T) {
	b := openTestBase(t)
	n := writeTestMessage(t, b, "All", "Line 1\nLine 2")
	hdr, err := b.ReadHeader(n)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	raw, err := b.ReadRawText(hdr)
	if err != nil {
		t.Fatalf("ReadRawText: %v", err)
	}
	if string(raw) != "Line 1\nLine 2" {
		t.Errorf("raw text = %q", raw)
	}
	if got := string(EncodeText("Line 1\r\nLine 2\nLine 3")); got != "Line 1\rLine 2\rLine 3" {
		t.Errorf("EncodeText = %q", got)
	}
}

func TestRecipientScenario(t *testing.T) {
	b := openTestBase(t)
	if b.ActiveMessages() != 0 || b.BaseMessageNumber() != 1 {
		t.Fatalf("fresh base: active %d base %d", b.ActiveMessages(), b.BaseMessageNumber())
	}

	for _, to := range []string{"alice", "bob", "alice"} {
		writeTestMessage(t, b, to, "hi "+to)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	hits, err := b.SearchIndex(context.Background(), CRC32String("alice"))
	if err != nil {
		t.Fatalf("SearchIndex: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Position != 0 || hits[1].Position != 2 {
		t.Errorf("positions = %d,%d, want 0,2", hits[0].Position, hits[1].Position)
	}
	if b.ActiveMessages() != 3 {
		t.Errorf("active = %d, want 3", b.ActiveMessages())
	}

	for _, h := range hits {
		hdr, err := b.ReadHeader(h.MessageNumber)
		if err != nil {
			t.Fatalf("ReadHeader(%d): %v", h.MessageNumber, err)
		}
		if to, _ := hdr.To(); to != "alice" {
			t.Errorf("hit %d addressed to %q", h.MessageNumber, to)
		}
		off, err := b.HeaderOffset(h.MessageNumber)
		if err != nil || off != h.HdrOffset {
			t.Errorf("HeaderOffset(%d) = %d, %v, want %d", h.MessageNumber, off, err, h.HdrOffset)
		}
	}

	// Recipient matching folds A-Z.
	hits, err = b.SearchRecipient(context.Background(), "ALICE")
	if err != nil || len(hits) != 2 {
		t.Errorf("SearchRecipient(ALICE) = %d hits, %v", len(hits), err)
	}
}

func TestWriteMessageWithoutRecipient(t *testing.T) {
	b := openTestBase(t)
	if _, err := b.WriteMessage(NewMessageHeader(CreateSubfield(SfldSubject, "none")), nil); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	hits, err := b.SearchIndex(context.Background(), CRCSentinel)
	if err != nil {
		t.Fatalf("SearchIndex: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("sentinel hits = %d, want 1", len(hits))
	}
}

func TestReadHeadersAndScan(t *testing.T) {
	b := openTestBase(t)
	for _, to := range []string{"a", "b", "c"} {
		writeTestMessage(t, b, to, "x")
	}

	hdrs, err := b.ReadHeaders()
	if err != nil {
		t.Fatalf("ReadHeaders: %v", err)
	}
	var got []string
	for _, h := range hdrs {
		to, _ := h.To()
		got = append(got, to)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("recipients (-want +got):\n%s", diff)
	}

	// Append garbage: relaxed scans stop quietly, strict scans report it.
	f, err := os.OpenFile(b.Path()+".jhr", os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.Write(append([]byte("JAX\x00"), make([]byte, 96)...))
	f.Close()

	hdrs, err = b.ReadHeaders()
	if err != nil || len(hdrs) != 3 {
		t.Errorf("relaxed scan: %d headers, %v", len(hdrs), err)
	}

	var offsets []int64
	err = b.ScanHeaders(true, func(off int64, _ *MessageHeader) error {
		offsets = append(offsets, off)
		return nil
	})
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("strict scan: expected ErrInvalidSignature, got %v", err)
	}
	if len(offsets) != 3 || offsets[0] != HeaderSize {
		t.Errorf("offsets = %v", offsets)
	}
}

func TestDeleteMessage(t *testing.T) {
	b := openTestBase(t)
	writeTestMessage(t, b, "All", "Temporary")

	if err := b.DeleteMessage(1); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if b.ActiveMessages() != 1 {
		t.Errorf("active = %d after delete, want 1", b.ActiveMessages())
	}

	// Reading the deleted message should still work but show deleted flag
	hdr, text, err := b.ReadMessage(1)
	if err != nil {
		t.Fatalf("ReadMessage after delete: %v", err)
	}
	if !hdr.IsDeleted() {
		t.Error("message should be marked deleted")
	}
	if text != "Temporary" {
		t.Errorf("text = %q", text)
	}
	if subj, _ := hdr.Subject(); subj != "Msg" {
		t.Errorf("subfields lost: subject %q", subj)
	}
}

func TestUpdateMessageHeaderKeepsSubfields(t *testing.T) {
	b := openTestBase(t)
	writeTestMessage(t, b, "All", "body")

	before, err := b.ReadHeader(1)
	if err != nil {
		t.Fatal(err)
	}
	upd := *before
	upd.TimesRead = 9
	upd.Subfields = nil
	upd.SubfieldLen = 0
	if err := b.UpdateMessageHeader(1, &upd); err != nil {
		t.Fatalf("UpdateMessageHeader: %v", err)
	}
	after, err := b.ReadHeader(1)
	if err != nil {
		t.Fatal(err)
	}
	before.TimesRead = 9
	if diff := cmp.Diff(before, after, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteMessageHoldsNoLockAfterward(t *testing.T) {
	b := openTestBase(t)
	writeTestMessage(t, b, "All", "x")
	if _, err := os.Stat(b.Path() + ".bsy"); !os.IsNotExist(err) {
		t.Errorf("lock file left behind: %v", err)
	}
}

func TestWriteMessageMissingFile(t *testing.T) {
	for _, ext := range []string{".jhr", ".jdt", ".jdx"} {
		t.Run(ext, func(t *testing.T) {
			b := openTestBase(t)
			if err := os.Remove(b.Path() + ext); err != nil {
				t.Fatal(err)
			}
			if _, err := b.WriteMessage(NewMessageHeader(), []byte("x")); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("WriteMessage: expected os.ErrNotExist, got %v", err)
			}
			if _, err := os.Stat(b.Path() + ext); !os.IsNotExist(err) {
				t.Errorf("%s was recreated: %v", ext, err)
			}
		})
	}
}
