package jam

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Base represents a JAM message base backed by four files:
// .jhr (headers), .jdt (text), .jdx (index), .jlr (lastread).
//
// Only the base header is kept in memory. Every operation opens the file it
// needs and closes it before returning. Counter changes made by
// WriteMessage stay in memory until Commit.
type Base struct {
	BasePath string

	mu             sync.Mutex
	writeMu        sync.Mutex
	header         *BaseHeader
	pending        int // writes since the last Commit or Refresh
	lastReadRecord int
	locked         bool
	release        func()

	now     func() time.Time
	logger  *slog.Logger
	workers int
	lock    LockConfig
}

// Option configures a Base.
type Option func(*Base)

// WithClock overrides the time source used for DateCreated and DateWritten.
func WithClock(now func() time.Time) Option {
	return func(b *Base) { b.now = now }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(b *Base) { b.logger = l }
}

// WithSearchWorkers caps the goroutines used by SearchIndex.
func WithSearchWorkers(n int) Option {
	return func(b *Base) { b.workers = n }
}

// WithLockConfig overrides the .bsy lock timings.
func WithLockConfig(cfg LockConfig) Option {
	return func(b *Base) { b.lock = cfg }
}

func newBase(basePath string, opts []Option) *Base {
	b := &Base{
		BasePath:       basePath,
		lastReadRecord: -1,
		now:            time.Now,
		logger:         slog.New(slog.DiscardHandler),
		workers:        runtime.GOMAXPROCS(0),
		lock:           DefaultLockConfig(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open opens an existing JAM message base. basePath is the path without
// file extension (e.g., "data/msgbases/general"). Only the base header is
// read; the other files are read on demand.
func Open(basePath string, opts ...Option) (*Base, error) {
	b := newBase(basePath, opts)
	if err := b.Refresh(); err != nil {
		return nil, err
	}
	return b, nil
}

// Create initializes a new base without a password, replacing any files
// already at basePath, and opens it.
func Create(basePath string, opts ...Option) (*Base, error) {
	return CreateWithPasswordCRC(basePath, CRCSentinel, opts...)
}

// CreateWithPassword initializes a new base protected by password.
func CreateWithPassword(basePath, password string, opts ...Option) (*Base, error) {
	return CreateWithPasswordCRC(basePath, CRC32String(password), opts...)
}

// CreateWithPasswordCRC initializes a new base with a precomputed password
// checksum. The .jhr gets a fresh base header; .jdt, .jdx and .jlr are
// created empty.
func CreateWithPasswordCRC(basePath string, passwordCRC uint32, opts ...Option) (*Base, error) {
	b := newBase(basePath, opts)
	if err := os.MkdirAll(filepath.Dir(basePath), 0755); err != nil {
		return nil, err
	}
	if _, err := CreateBaseHeader(basePath+ExtHeader, passwordCRC, b.now()); err != nil {
		return nil, err
	}
	for _, ext := range []string{ExtText, ExtIndex, ExtLastRead} {
		if err := os.WriteFile(basePath+ext, nil, 0644); err != nil {
			return nil, err
		}
	}
	if err := b.Refresh(); err != nil {
		return nil, err
	}
	b.logger.Debug("jam: base created", slog.String("base", basePath))
	return b, nil
}

// Refresh reloads the base header from disk, discarding uncommitted
// counter changes. Useful when external tools modify the base.
func (b *Base) Refresh() error {
	f, err := os.Open(b.BasePath + ExtHeader)
	if err != nil {
		return err
	}
	defer f.Close()
	h, err := LoadBaseHeader(bufio.NewReader(f))
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.header = h
	b.pending = 0
	b.mu.Unlock()
	return nil
}

// Commit bumps ModCounter and persists ModCounter and ActiveMsgs. It must
// be called after one or more WriteMessage calls.
//
// The counters are merged with the header on disk under the file lock:
// ModCounter moves past the stored value and ActiveMsgs never shrinks, so a
// handle cannot roll back a commit made by another writer.
func (b *Base) Commit() error {
	return b.withFileLock(b.commit)
}

func (b *Base) commit() error {
	f, err := os.OpenFile(b.BasePath+ExtHeader, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	disk, err := LoadBaseHeader(bufio.NewReader(io.NewSectionReader(f, 0, HeaderSize)))
	if err != nil {
		f.Close()
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.header.ModCounter = disk.ModCounter
	b.header.ActiveMsgs = max(b.header.ActiveMsgs, disk.ActiveMsgs)
	if err := CommitBaseHeader(f, b.header); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	b.pending = 0
	b.logger.Debug("jam: header committed",
		slog.String("base", b.BasePath),
		slog.Uint64("mod_counter", uint64(b.header.ModCounter)),
		slog.Uint64("active", uint64(b.header.ActiveMsgs)))
	return nil
}

// Info returns a copy of the in-memory base header.
func (b *Base) Info() BaseHeader {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.header
}

// Path returns the extension-less base path.
func (b *Base) Path() string { return b.BasePath }

// ModCounter returns the update counter.
func (b *Base) ModCounter() uint32 { return b.Info().ModCounter }

// BaseMessageNumber returns the message number of the first index record.
// It is 1 for a new base and lets a packed base keep its numbering.
func (b *Base) BaseMessageNumber() uint32 { return b.Info().BaseMsgNum }

// ActiveMessages returns the number of active messages, including writes
// not yet committed by this handle.
func (b *Base) ActiveMessages() uint32 { return b.Info().ActiveMsgs }

// NeedsPassword reports whether the base is password protected.
func (b *Base) NeedsPassword() bool {
	return b.Info().PasswordCRC != CRCSentinel
}

// CheckPassword reports whether password opens the base. A base without a
// password accepts anything.
func (b *Base) CheckPassword(password string) bool {
	crc := b.Info().PasswordCRC
	return crc == CRCSentinel || crc == CRC32String(password)
}

// Delete removes all four files of the base and any leftover .bsy lock.
// There is no recovery.
func (b *Base) Delete() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, ext := range []string{ExtHeader, ExtText, ExtIndex, ExtLastRead} {
		if err := os.Remove(b.BasePath + ext); err != nil {
			errs = append(errs, err)
		}
	}
	if b.release != nil {
		b.release()
		b.release = nil
		b.locked = false
	}
	if err := os.Remove(b.BasePath + ExtLock); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SearchIndex returns every index record whose ToCRC equals crc. The .jdx
// is loaded whole and searched in parallel.
func (b *Base) SearchIndex(ctx context.Context, crc uint32) ([]IndexHit, error) {
	data, err := os.ReadFile(b.BasePath + ExtIndex)
	if err != nil {
		return nil, err
	}
	return SearchIndex(ctx, data, crc, b.BaseMessageNumber(), b.workers)
}

// SearchRecipient returns the index hits for messages addressed to name.
func (b *Base) SearchRecipient(ctx context.Context, name string) ([]IndexHit, error) {
	return b.SearchIndex(ctx, CRC32String(name))
}

// IndexCount returns the number of whole records in the .jdx.
func (b *Base) IndexCount() (int, error) {
	info, err := os.Stat(b.BasePath + ExtIndex)
	if err != nil {
		return 0, err
	}
	return int(info.Size() / IndexRecordSize), nil
}
