package typedstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kjk/journal/chunkreader"
)

// IndexSize is the size of the index field that precedes every payload.
// It's the machine word size.
const IndexSize = strconv.IntSize / 8

// names of operations reported in OpInfo
const (
	OpRegister = "register"
	OpAttach   = "attach"
	OpSave     = "save"
	OpGet      = "get"
	OpGetAll   = "get_all"
	OpLen      = "len"
	OpInspect  = "inspect"
)

// OpInfo describes a finished store operation
type OpInfo struct {
	Op       string
	Kind     string
	Duration time.Duration
	// bytes written (save), read (get, get_all) or cut (attach)
	Bytes int
	Err   error
}

type Store struct {
	// DataDir is where files for each kind are stored
	DataDir string

	// if set, called after every operation
	OnOp func(*OpInfo)

	mu          sync.Mutex
	recordSizes map[string]int
}

// OpenStore validates the configuration and creates DataDir if needed.
// Nothing is registered after opening.
func OpenStore(s *Store) error {
	if s.DataDir == "" {
		return fmt.Errorf("data directory is not set. For current directory, use '.'")
	}
	dir, err := filepath.Abs(s.DataDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for data directory: %w", err)
	}
	s.DataDir = dir
	err = os.MkdirAll(s.DataDir, 0755)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.recordSizes = map[string]int{}
	s.mu.Unlock()
	return nil
}

func validateKind(kind string) error {
	switch {
	case kind == "":
		return fmt.Errorf("%w: kind is empty", ErrInvalidKind)
	case kind == "." || kind == "..":
		return fmt.Errorf("%w: '%s'", ErrInvalidKind, kind)
	case strings.HasPrefix(kind, "."):
		return fmt.Errorf("%w: '%s' starts with '.'", ErrInvalidKind, kind)
	case strings.ContainsAny(kind, `/\`+"\x00"):
		return fmt.Errorf("%w: '%s' contains path separator", ErrInvalidKind, kind)
	}
	return nil
}

// Path returns path of the file for a given kind
func (s *Store) Path(kind string) string {
	return filepath.Join(s.DataDir, kind)
}

func (s *Store) recordSize(kind string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	size, ok := s.recordSizes[kind]
	return size, ok
}

func (s *Store) setRecordSize(kind string, size int) {
	s.mu.Lock()
	s.recordSizes[kind] = size
	s.mu.Unlock()
}

// IsRegistered returns true if kind was registered by this Store
func (s *Store) IsRegistered(kind string) bool {
	_, ok := s.recordSize(kind)
	return ok
}

func (s *Store) observe(op string, kind string, start time.Time, n int, err error) {
	if s.OnOp == nil {
		return
	}
	s.OnOp(&OpInfo{
		Op:       op,
		Kind:     kind,
		Duration: time.Since(start),
		Bytes:    n,
		Err:      err,
	})
}

func putIndex(d []byte, idx uint64) {
	if IndexSize == 8 {
		binary.NativeEndian.PutUint64(d, idx)
	} else {
		binary.NativeEndian.PutUint32(d, uint32(idx))
	}
}

func getIndex(d []byte) uint64 {
	if IndexSize == 8 {
		return binary.NativeEndian.Uint64(d)
	}
	return uint64(binary.NativeEndian.Uint32(d))
}

// Register creates the file for kind, truncating it if it exists, and
// remembers that kind has records of payloadSize bytes.
// Returns the open file; caller must close it.
func (s *Store) Register(ctx context.Context, kind string, payloadSize int) (*os.File, error) {
	start := time.Now()
	f, err := s.register(ctx, kind, payloadSize)
	s.observe(OpRegister, kind, start, 0, err)
	return f, err
}

func (s *Store) register(ctx context.Context, kind string, payloadSize int) (*os.File, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if payloadSize < 0 {
		return nil, fmt.Errorf("typedstore: invalid payload size %d for '%s'", payloadSize, kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Create(s.Path(kind))
	if err != nil {
		return nil, fmt.Errorf("typedstore: failed to create file for '%s': %w", kind, err)
	}
	s.setRecordSize(kind, payloadSize+IndexSize)
	return f, nil
}

// Attach registers kind without truncating its file. The file is created
// if missing. A partial record at the end of the file, left by an
// interrupted write, is cut off.
func (s *Store) Attach(ctx context.Context, kind string, payloadSize int) error {
	start := time.Now()
	cut, err := s.attach(ctx, kind, payloadSize)
	s.observe(OpAttach, kind, start, int(cut), err)
	return err
}

func (s *Store) attach(ctx context.Context, kind string, payloadSize int) (int64, error) {
	if err := validateKind(kind); err != nil {
		return 0, err
	}
	if payloadSize < 0 {
		return 0, fmt.Errorf("typedstore: invalid payload size %d for '%s'", payloadSize, kind)
	}
	recSize := payloadSize + IndexSize
	if size, ok := s.recordSize(kind); ok && size != recSize {
		return 0, fmt.Errorf("%w: '%s' has records of %d bytes, got %d", ErrSizeMismatch, kind, size, recSize)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(s.Path(kind), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return 0, fmt.Errorf("typedstore: failed to open file for '%s': %w", kind, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	cut := st.Size() % int64(recSize)
	if cut != 0 {
		err = truncateAt(f, st.Size()-cut)
		if err != nil {
			return 0, err
		}
	}
	s.setRecordSize(kind, recSize)
	return cut, nil
}

func truncateAt(f *os.File, size int64) error {
	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("typedstore: failed to truncate '%s' to %d: %w", f.Name(), size, err)
	}
	return f.Sync()
}

// getOrRegister opens the file of a registered kind for writing or
// registers it, which truncates the file
func (s *Store) getOrRegister(ctx context.Context, kind string, payloadSize int) (*os.File, int, error) {
	recSize, ok := s.recordSize(kind)
	if !ok {
		f, err := s.register(ctx, kind, payloadSize)
		return f, payloadSize + IndexSize, err
	}
	if recSize != payloadSize+IndexSize {
		return nil, 0, fmt.Errorf("%w: '%s' has payload of %d bytes, got %d", ErrSizeMismatch, kind, recSize-IndexSize, payloadSize)
	}
	f, err := os.OpenFile(s.Path(kind), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, 0, fmt.Errorf("typedstore: failed to open file for '%s': %w", kind, err)
	}
	return f, recSize, nil
}

// nextIndex returns index field of the last whole record + 1 or 0 if
// it can't be read
func nextIndex(f *os.File, size int64, recSize int) uint64 {
	n := size / int64(recSize)
	if n == 0 {
		return 0
	}
	var buf [8]byte
	_, err := f.ReadAt(buf[:IndexSize], (n-1)*int64(recSize))
	if err != nil {
		return 0
	}
	return getIndex(buf[:IndexSize]) + 1
}

// Save appends a record with payload to the file of kind and syncs it
// to disk. Returns the index field written with the record.
// If kind is not registered, it gets registered which truncates the file.
func (s *Store) Save(ctx context.Context, kind string, payload []byte) (uint64, error) {
	start := time.Now()
	idx, err := s.save(ctx, kind, payload)
	n := 0
	if err == nil {
		n = len(payload) + IndexSize
	}
	s.observe(OpSave, kind, start, n, err)
	return idx, err
}

func (s *Store) save(ctx context.Context, kind string, payload []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, recSize, err := s.getOrRegister(ctx, kind, len(payload))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	idx := nextIndex(f, st.Size(), recSize)

	rec := make([]byte, recSize)
	putIndex(rec, idx)
	copy(rec[IndexSize:], payload)

	// writing at record boundary overwrites a partial record from an
	// interrupted write
	off := (st.Size() / int64(recSize)) * int64(recSize)
	_, err = f.WriteAt(rec, off)
	if err != nil {
		return 0, fmt.Errorf("typedstore: failed to write record to '%s': %w", kind, err)
	}
	err = f.Sync()
	if err != nil {
		return 0, fmt.Errorf("typedstore: failed to sync '%s': %w", kind, err)
	}
	return idx, nil
}

// Get returns payload of the record at 1-based position
func (s *Store) Get(ctx context.Context, kind string, position int) ([]byte, error) {
	start := time.Now()
	d, err := s.get(ctx, kind, position)
	s.observe(OpGet, kind, start, len(d), err)
	return d, err
}

func (s *Store) get(ctx context.Context, kind string, position int) ([]byte, error) {
	recSize, ok := s.recordSize(kind)
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNotRegistered, kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(kind))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() == 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrEmpty, kind)
	}
	if position < 1 {
		return nil, fmt.Errorf("%w: position %d of '%s'", ErrOutOfRange, position, kind)
	}
	buf := make([]byte, recSize)
	off := int64(position-1) * int64(recSize)
	n, err := f.ReadAt(buf, off)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: position %d of '%s', reached end of file after reading %d bytes, expected %d", ErrOutOfRange, position, kind, n, recSize)
		}
		return nil, fmt.Errorf("typedstore: failed to read %d bytes at offset %d: %w", recSize, off, err)
	}
	return buf[IndexSize:], nil
}

// Len returns number of whole records of kind
func (s *Store) Len(ctx context.Context, kind string) (int, error) {
	start := time.Now()
	n, err := s.len(ctx, kind)
	s.observe(OpLen, kind, start, 0, err)
	return n, err
}

func (s *Store) len(ctx context.Context, kind string) (int, error) {
	recSize, ok := s.recordSize(kind)
	if !ok {
		return 0, fmt.Errorf("%w: '%s'", ErrNotRegistered, kind)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	st, err := os.Stat(s.Path(kind))
	if err != nil {
		return 0, err
	}
	return int(st.Size() / int64(recSize)), nil
}

// GetAll returns payloads of all records of kind, in file order.
// Unregistered kind and empty file are reported before the sequence
// is consumed. The sequence can be ranged over once; errors while
// reading are returned by the error function after iteration.
func (s *Store) GetAll(ctx context.Context, kind string) (iter.Seq[[]byte], func() error, error) {
	return s.scan(ctx, kind, true)
}

// scan reads records of kind as payloads. If !clone, payloads are only
// valid during the iteration step that yields them.
func (s *Store) scan(ctx context.Context, kind string, clone bool) (iter.Seq[[]byte], func() error, error) {
	start := time.Now()
	recSize, ok := s.recordSize(kind)
	var err error
	if !ok {
		err = fmt.Errorf("%w: '%s'", ErrNotRegistered, kind)
	} else if err = ctx.Err(); err == nil {
		var st os.FileInfo
		st, err = os.Stat(s.Path(kind))
		if err == nil && st.Size() == 0 {
			err = fmt.Errorf("%w: '%s'", ErrEmpty, kind)
		}
	}
	if err != nil {
		s.observe(OpGetAll, kind, start, 0, err)
		return nil, nil, err
	}

	var iterErr error
	consumed := false
	seq := func(yield func([]byte) bool) {
		if consumed {
			iterErr = ErrConsumed
			return
		}
		consumed = true
		nRead := 0
		defer func() {
			s.observe(OpGetAll, kind, start, nRead, iterErr)
		}()

		f, err := os.Open(s.Path(kind))
		if err != nil {
			iterErr = err
			return
		}
		defer f.Close()

		r := chunkreader.NewReader(ctx, f, recSize)
		for r.Next() {
			nRead += recSize
			d := r.Chunk()[IndexSize:]
			if clone {
				d = bytes.Clone(d)
			}
			if !yield(d) {
				return
			}
		}
		if err := r.Err(); err != nil {
			iterErr = fmt.Errorf("typedstore: error reading '%s': %w", kind, err)
		}
	}
	return seq, func() error { return iterErr }, nil
}
