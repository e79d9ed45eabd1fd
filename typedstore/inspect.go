package typedstore

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/mmap"
)

// Stats describes the state of a kind's file
type Stats struct {
	Kind       string
	RecordSize int
	FileSize   int64
	Records    int
	// bytes after the last whole record
	TornBytes int
	// index fields of the first and last record
	FirstIndex uint64
	LastIndex  uint64
	// number of records whose index is not previous index + 1
	IndexGaps int
}

// Inspect reads index fields of all records of a registered kind
// without modifying the file
func (s *Store) Inspect(ctx context.Context, kind string) (*Stats, error) {
	start := time.Now()
	st, err := s.inspect(ctx, kind)
	n := 0
	if st != nil {
		n = int(st.FileSize)
	}
	s.observe(OpInspect, kind, start, n, err)
	return st, err
}

func (s *Store) inspect(ctx context.Context, kind string) (*Stats, error) {
	recSize, ok := s.recordSize(kind)
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNotRegistered, kind)
	}
	r, err := mmap.Open(s.Path(kind))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	size := r.Len()
	res := &Stats{
		Kind:       kind,
		RecordSize: recSize,
		FileSize:   int64(size),
		Records:    size / recSize,
		TornBytes:  size % recSize,
	}
	var buf [8]byte
	var prev uint64
	for i := 0; i < res.Records; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		_, err = r.ReadAt(buf[:IndexSize], int64(i)*int64(recSize))
		if err != nil {
			return nil, fmt.Errorf("typedstore: failed to read record %d of '%s': %w", i+1, kind, err)
		}
		idx := getIndex(buf[:IndexSize])
		if i == 0 {
			res.FirstIndex = idx
		} else if idx != prev+1 {
			res.IndexGaps++
		}
		prev = idx
	}
	res.LastIndex = prev
	return res, nil
}
