package jam

import (
	"context"
	"testing"
	"time"
)

func TestWatchReportsCommits(t *testing.T) {
	writer := openTestBase(t)
	reader, err := Open(writer.Path())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan BaseHeader, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, reader, func(h BaseHeader) { changes <- h })
	}()

	// Give the watcher time to register before the first write.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	wrote := false
	for {
		select {
		case h := <-changes:
			if h.ActiveMsgs != 1 || h.ModCounter == 0 {
				t.Errorf("header = %+v", h)
			}
			if reader.ActiveMessages() != 1 {
				t.Errorf("reader active = %d, want 1", reader.ActiveMessages())
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch returned %v", err)
			}
			return
		case <-tick.C:
			if !wrote {
				writeTestMessage(t, writer, "a", "body")
				wrote = true
			}
			if err := writer.Commit(); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("no change reported")
		}
	}
}
