package chunkreader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/alecthomas/assert"
)

func collect(r *Reader) [][]byte {
	var res [][]byte
	for chunk := range r.All() {
		res = append(res, bytes.Clone(chunk))
	}
	return res
}

func TestExactChunks(t *testing.T) {
	r := NewReader(context.Background(), bytes.NewReader([]byte("aaaabbbbcccc")), 4)
	chunks := collect(r)
	assert.Equal(t, [][]byte{[]byte("aaaa"), []byte("bbbb"), []byte("cccc")}, chunks)
	assert.NoError(t, r.Err())
	assert.Equal(t, 0, r.Trailing())
	assert.True(t, r.Done())
	assert.Equal(t, int64(12), r.NextChunkPos)
	assert.Equal(t, int64(8), r.CurrChunkPos)
}

func TestPartialTailDropped(t *testing.T) {
	r := NewReader(context.Background(), bytes.NewReader([]byte("aaaabbbbcc")), 4)
	chunks := collect(r)
	assert.Equal(t, 2, len(chunks))
	assert.Equal(t, 2, r.Trailing())
	assert.NoError(t, r.Err())
}

func TestEmptySource(t *testing.T) {
	r := NewReader(context.Background(), bytes.NewReader(nil), 4)
	assert.False(t, r.Next())
	assert.True(t, r.Done())
	assert.NoError(t, r.Err())
}

func TestOneShot(t *testing.T) {
	r := NewReader(context.Background(), bytes.NewReader([]byte("aabb")), 2)
	assert.Equal(t, 2, len(collect(r)))
	assert.Equal(t, 0, len(collect(r)))
}

func TestEarlyBreak(t *testing.T) {
	r := NewReader(context.Background(), bytes.NewReader([]byte("aabbcc")), 2)
	for chunk := range r.All() {
		assert.Equal(t, []byte("aa"), chunk)
		break
	}
	assert.True(t, r.Next())
	assert.Equal(t, []byte("bb"), r.Chunk())
}

type failingReader struct{}

var errBoom = errors.New("boom")

func (failingReader) Read(p []byte) (int, error) {
	return 0, errBoom
}

func TestReadError(t *testing.T) {
	r := NewReader(context.Background(), failingReader{}, 4)
	assert.False(t, r.Next())
	assert.True(t, errors.Is(r.Err(), errBoom))
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewReader(ctx, bytes.NewReader([]byte("aabbcc")), 2)
	assert.True(t, r.Next())
	cancel()
	assert.False(t, r.Next())
	assert.True(t, errors.Is(r.Err(), context.Canceled))
}

func TestSlowSource(t *testing.T) {
	// one byte per Read() still produces whole chunks
	r := NewReader(context.Background(), io.LimitReader(&oneByteReader{data: []byte("abcdef")}, 6), 3)
	assert.Equal(t, [][]byte{[]byte("abc"), []byte("def")}, collect(r))
}

type oneByteReader struct {
	data []byte
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}
