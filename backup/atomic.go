package backup

import (
	"errors"
	"os"
	"path/filepath"
)

var errCancelled = errors.New("backup: write cancelled")

// atomicFile writes to a temporary file in the destination directory and
// renames it to the destination on Close. If anything fails, the
// destination is untouched.
type atomicFile struct {
	dstPath string
	tmp     *os.File
	err     error
}

func createAtomic(path string) (*atomicFile, error) {
	dir, name := filepath.Split(path)
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &atomicFile{dstPath: path, tmp: tmp}, nil
}

func (f *atomicFile) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmp.Write(d)
	if err != nil {
		f.err = err
		f.Close()
	}
	return n, err
}

// Cancel removes the temporary file unless Close already happened
func (f *atomicFile) Cancel() {
	if f.tmp == nil {
		return
	}
	f.err = errCancelled
	f.Close()
}

// Close renames the temporary file to destination or removes it
// after an error. Can be called multiple times.
func (f *atomicFile) Close() error {
	if f.tmp == nil {
		return f.err
	}
	tmp := f.tmp
	f.tmp = nil
	if f.err == nil {
		f.err = tmp.Sync()
	}
	if err := tmp.Close(); f.err == nil {
		f.err = err
	}
	if f.err == nil {
		f.err = os.Rename(tmp.Name(), f.dstPath)
	}
	if f.err != nil {
		os.Remove(tmp.Name())
		if f.err == errCancelled {
			return nil
		}
	}
	return f.err
}
