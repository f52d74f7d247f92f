package jam

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the base header whenever another process changes the .jhr
// and calls fn with the new header each time ModCounter moves. It blocks
// until ctx is cancelled and then returns nil.
//
// Reloading discards counter changes this handle has not committed, so
// Watch is meant for reader handles.
func Watch(ctx context.Context, b *Base, fn func(BaseHeader)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("jam: failed to create file watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory; some tools replace the .jhr instead of writing it.
	dir := filepath.Dir(b.BasePath)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("jam: failed to watch %s: %w", dir, err)
	}
	target := filepath.Clean(b.BasePath + ExtHeader)
	last := b.ModCounter()
	b.logger.Info("jam: watching base", slog.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := b.Refresh(); err != nil {
				// A header caught mid-write is picked up by the next event.
				b.logger.Warn("jam: reload failed", slog.String("path", target), slog.Any("error", err))
				continue
			}
			info := b.Info()
			if info.ModCounter == last {
				continue
			}
			last = info.ModCounter
			b.logger.Debug("jam: base changed",
				slog.String("path", target),
				slog.Uint64("mod_counter", uint64(info.ModCounter)))
			fn(info)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			b.logger.Warn("jam: watcher error", slog.Any("error", err))
		}
	}
}
