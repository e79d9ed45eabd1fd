// Package chunkreader reads an io.Reader as a sequence of fixed-size chunks.
package chunkreader

import (
	"bufio"
	"context"
	"errors"
	"io"
	"iter"
)

// Reader pulls fixed-size chunks from an underlying reader.
// A final chunk shorter than the chunk size ends the sequence and
// is never returned as a chunk.
type Reader struct {
	ctx context.Context
	r   *bufio.Reader

	// ChunkSize is the exact size of every chunk returned by Chunk()
	ChunkSize int

	// position of the current chunk within the reader
	CurrChunkPos int64

	// position of the next chunk within the reader
	NextChunkPos int64

	chunk    []byte
	trailing int
	err      error

	// true if the source ran out of data
	done bool
}

// NewReader creates a reader of chunkSize chunks.
// ctx is captured at construction and checked before every pull.
func NewReader(ctx context.Context, r io.Reader, chunkSize int) *Reader {
	if chunkSize <= 0 {
		panic("chunkreader: chunk size must be > 0")
	}
	br, ok := r.(*bufio.Reader)
	if !ok || br.Size() < chunkSize {
		br = bufio.NewReaderSize(r, max(chunkSize, 4096))
	}
	return &Reader{
		ctx:       ctx,
		r:         br,
		ChunkSize: chunkSize,
		chunk:     make([]byte, chunkSize),
	}
}

// Done returns true if no more chunks will be returned
func (r *Reader) Done() bool {
	return r.err != nil || r.done
}

// Next reads the next chunk. Returns false at the end of data or
// on error; check Err() to tell them apart.
func (r *Reader) Next() bool {
	if r.Done() {
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.err = err
		return false
	}
	r.CurrChunkPos = r.NextChunkPos
	n, err := io.ReadFull(r.r, r.chunk)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			r.trailing = n
			r.done = true
		} else {
			r.err = err
		}
		return false
	}
	r.NextChunkPos += int64(n)
	return true
}

// Chunk returns the chunk read by the last successful Next().
// The slice is re-used by the next call to Next().
func (r *Reader) Chunk() []byte {
	return r.chunk
}

// Trailing returns the number of bytes of a partial chunk that
// were read and dropped at the end of data
func (r *Reader) Trailing() int {
	return r.trailing
}

// Err returns the first error other than io.EOF
func (r *Reader) Err() error {
	return r.err
}

// All returns the remaining chunks as a sequence.
// Chunks are only valid during the iteration step that yields them.
func (r *Reader) All() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for r.Next() {
			if !yield(r.chunk) {
				return
			}
		}
	}
}
