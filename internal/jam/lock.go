package jam

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// LockConfig controls how long a writer waits for the .bsy lock file.
type LockConfig struct {
	Timeout    time.Duration // give up after this long
	Retry      time.Duration // delay between attempts
	StaleAfter time.Duration // a lock file older than this is removed
}

// DefaultLockConfig returns the lock timings used when none are configured.
func DefaultLockConfig() LockConfig {
	return LockConfig{
		Timeout:    30 * time.Second,
		Retry:      200 * time.Millisecond,
		StaleAfter: 10 * time.Minute,
	}
}

// acquireFileLock serializes cross-process writes to a JAM base using a .bsy lock file.
// It returns a release function that must be called to drop the lock. The
// release only removes the file while it still carries this owner's token.
func (b *Base) acquireFileLock() (func(), error) {
	if b.BasePath == "" {
		return func() {}, nil
	}
	lockPath := b.BasePath + ExtLock
	cfg := b.lock
	token := uuid.NewString()
	deadline := time.Now().Add(cfg.Timeout)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "token=%s pid=%d time=%s\n", token, os.Getpid(), time.Now().Format(time.RFC3339))
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(lockPath)
				return nil, fmt.Errorf("jam: lock %s: write token failed", lockPath)
			}
			break
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("jam: lock %s: %w", lockPath, err)
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > cfg.StaleAfter {
			b.breakStaleLock(lockPath, token)
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w %s", ErrLockTimeout, lockPath)
		}
		time.Sleep(cfg.Retry)
	}
	b.logger.Debug("jam: lock acquired", slog.String("path", lockPath), slog.String("token", token))

	return func() {
		data, err := os.ReadFile(lockPath)
		if err != nil || !bytes.Contains(data, []byte("token="+token)) {
			return
		}
		_ = os.Remove(lockPath)
		b.logger.Debug("jam: lock released", slog.String("path", lockPath))
	}, nil
}

// breakStaleLock moves the lock file to a name only this owner uses and
// deletes it if it is still stale there. A lock created by another process
// after the staleness check is moved back instead. Rename keeps the
// modification time, so the second check sees the file that was moved.
func (b *Base) breakStaleLock(lockPath, token string) {
	aside := lockPath + "." + token
	if err := os.Rename(lockPath, aside); err != nil {
		return
	}
	info, err := os.Stat(aside)
	if err == nil && time.Since(info.ModTime()) > b.lock.StaleAfter {
		b.logger.Warn("jam: removing stale lock", slog.String("path", lockPath))
		_ = os.Remove(aside)
		return
	}
	// Link fails if yet another lock appeared meanwhile; that one wins.
	_ = os.Link(aside, lockPath)
	_ = os.Remove(aside)
}

// withFileLock runs fn with the lock held. A handle that already holds the
// lock through Lock runs fn directly.
func (b *Base) withFileLock(fn func() error) error {
	b.mu.Lock()
	held := b.locked
	b.mu.Unlock()
	if held {
		return fn()
	}
	release, err := b.acquireFileLock()
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Lock takes the write lock for this handle until Unlock. It returns false
// without error when the handle already holds it.
func (b *Base) Lock() (bool, error) {
	b.mu.Lock()
	if b.locked {
		b.mu.Unlock()
		return false, nil
	}
	b.mu.Unlock()

	release, err := b.acquireFileLock()
	if err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.locked {
		// Another goroutine won the race on this handle.
		release()
		return false, nil
	}
	b.locked = true
	b.release = release
	return true, nil
}

// Unlock drops the lock taken by Lock. Unlocking an unlocked handle is a no-op.
func (b *Base) Unlock() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.locked {
		return nil
	}
	if b.release != nil {
		b.release()
	}
	b.release = nil
	b.locked = false
	return nil
}

// IsLocked reports whether this handle holds the write lock.
func (b *Base) IsLocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}
