package typedstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"iter"
)

// Table stores values of a fixed-size type T as records of one kind.
// T must be encodable by encoding/binary: fixed-size numbers, bools,
// arrays and structs of those. Values are encoded in native byte order.
type Table[T any] struct {
	store *Store
	kind  string
	size  int
}

// NewTable returns a table of values of type T stored as kind.
// It doesn't register kind.
func NewTable[T any](s *Store, kind string) (*Table[T], error) {
	var v T
	size := binary.Size(v)
	if size < 0 {
		return nil, fmt.Errorf("typedstore: %T is not a fixed-size type", v)
	}
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	return &Table[T]{
		store: s,
		kind:  kind,
		size:  size,
	}, nil
}

func (t *Table[T]) Kind() string {
	return t.kind
}

// PayloadSize is the encoded size of T
func (t *Table[T]) PayloadSize() int {
	return t.size
}

// Register registers the table's kind, truncating its file
func (t *Table[T]) Register(ctx context.Context) error {
	f, err := t.store.Register(ctx, t.kind, t.size)
	if err != nil {
		return err
	}
	return f.Close()
}

// Attach registers the table's kind, keeping records already on disk
func (t *Table[T]) Attach(ctx context.Context) error {
	return t.store.Attach(ctx, t.kind, t.size)
}

// Save appends v and returns its index field
func (t *Table[T]) Save(ctx context.Context, v T) (uint64, error) {
	d, err := binary.Append(make([]byte, 0, t.size), binary.NativeEndian, v)
	if err != nil {
		return 0, fmt.Errorf("typedstore: failed to encode %T: %w", v, err)
	}
	return t.store.Save(ctx, t.kind, d)
}

func (t *Table[T]) decode(d []byte) (T, error) {
	var v T
	n, err := binary.Decode(d, binary.NativeEndian, &v)
	if err != nil {
		return v, fmt.Errorf("%w: %s", ErrDecode, err)
	}
	if n != len(d) {
		return v, fmt.Errorf("%w: %T is %d bytes, record has %d", ErrDecode, v, n, len(d))
	}
	return v, nil
}

// Get returns value at 1-based position
func (t *Table[T]) Get(ctx context.Context, position int) (T, error) {
	d, err := t.store.Get(ctx, t.kind, position)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.decode(d)
}

// All returns all values in the order they were saved.
// Iteration stops at the first value that can't be decoded.
func (t *Table[T]) All(ctx context.Context) (iter.Seq[T], func() error, error) {
	records, errFn, err := t.store.scan(ctx, t.kind, false)
	if err != nil {
		return nil, nil, err
	}
	var decodeErr error
	seq := func(yield func(T) bool) {
		for d := range records {
			v, err := t.decode(d)
			if err != nil {
				decodeErr = err
				return
			}
			if !yield(v) {
				return
			}
		}
	}
	return seq, func() error {
		if decodeErr != nil {
			return decodeErr
		}
		return errFn()
	}, nil
}

// Collect reads all values into a slice. Empty table returns no error.
func (t *Table[T]) Collect(ctx context.Context) ([]T, error) {
	seq, errFn, err := t.All(ctx)
	if err != nil {
		if isEmpty(err) {
			return nil, nil
		}
		return nil, err
	}
	var res []T
	for v := range seq {
		res = append(res, v)
	}
	return res, errFn()
}

func (t *Table[T]) Len(ctx context.Context) (int, error) {
	return t.store.Len(ctx, t.kind)
}

func (t *Table[T]) Inspect(ctx context.Context) (*Stats, error) {
	return t.store.Inspect(ctx, t.kind)
}

func isEmpty(err error) bool {
	return errors.Is(err, ErrEmpty) || errors.Is(err, fs.ErrNotExist)
}
