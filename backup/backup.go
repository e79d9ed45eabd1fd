// Package backup writes compressed snapshots of the data directory,
// restores them and uploads them to S3 or an SFTP server.
package backup

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kjk/journal/config"
	"github.com/kjk/journal/log"
)

type Result struct {
	Path  string
	Files int
	// size of uncompressed data
	Size int64
	// where the snapshot was uploaded
	Uploaded []string
}

// Name returns name of a snapshot created at t
func Name(t time.Time, compression string) string {
	return "journal-" + t.UTC().Format("2006-01-02_150405") + Ext(compression)
}

// Snapshot writes regular files in dataDir into a compressed tar file
// at dstPath. Compression is picked by extension of dstPath
// (.tar.zst or .tar.br).
func Snapshot(ctx context.Context, dataDir string, dstPath string) (*Result, error) {
	compression, err := compressionFromPath(dstPath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, err
	}
	f, err := createAtomic(dstPath)
	if err != nil {
		return nil, err
	}
	defer f.Cancel()

	cw, err := newCompressWriter(f, compression)
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(cw)
	res := &Result{Path: dstPath}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := addFile(tw, filepath.Join(dataDir, e.Name()), e.Name())
		if err != nil {
			return nil, fmt.Errorf("backup: failed to add '%s': %w", e.Name(), err)
		}
		res.Files++
		res.Size += n
	}
	if err = tw.Close(); err != nil {
		return nil, err
	}
	if err = cw.Close(); err != nil {
		return nil, err
	}
	if err = f.Close(); err != nil {
		return nil, err
	}
	return res, nil
}

func addFile(tw *tar.Writer, path string, name string) (int64, error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	st, err := src.Stat()
	if err != nil {
		return 0, err
	}
	hdr, err := tar.FileInfoHeader(st, "")
	if err != nil {
		return 0, err
	}
	hdr.Name = name
	if err = tw.WriteHeader(hdr); err != nil {
		return 0, err
	}
	// the file might grow while we copy, tar needs exactly hdr.Size bytes
	return io.CopyN(tw, src, hdr.Size)
}

// Restore extracts a snapshot into dataDir, overwriting files with the
// same name. Returns number of restored files.
func Restore(ctx context.Context, srcPath string, dataDir string) (int, error) {
	r, err := openDecompressed(srcPath)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	if err = os.MkdirAll(dataDir, 0755); err != nil {
		return 0, err
	}

	tr := tar.NewReader(r)
	n := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("backup: failed to read '%s': %w", srcPath, err)
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := hdr.Name
		if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
			return n, fmt.Errorf("backup: invalid file name '%s' in '%s'", name, srcPath)
		}
		if err = restoreFile(tr, filepath.Join(dataDir, name)); err != nil {
			return n, err
		}
		n++
	}
}

func restoreFile(r io.Reader, dstPath string) error {
	f, err := createAtomic(dstPath)
	if err != nil {
		return err
	}
	defer f.Cancel()
	if _, err = io.Copy(f, r); err != nil {
		return err
	}
	return f.Close()
}

// Run writes a snapshot of cfg.DataDir to cfg.Backup.Dir and uploads it
// to configured remote destinations
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	timeStart := time.Now()
	dst := filepath.Join(cfg.Backup.Dir, Name(timeStart, cfg.Backup.Compression))
	res, err := Snapshot(ctx, cfg.DataDir, dst)
	if err != nil {
		return nil, err
	}
	log.Verbosef("backup: wrote '%s', %d files, %d bytes in %s\n", dst, res.Files, res.Size, time.Since(timeStart))

	if s3 := cfg.Backup.S3; s3 != nil {
		uri, err := UploadS3(ctx, s3, dst)
		if err != nil {
			return res, err
		}
		res.Uploaded = append(res.Uploaded, uri)
	}
	if sftp := cfg.Backup.SFTP; sftp != nil {
		uri, err := UploadSFTP(ctx, sftp, dst)
		if err != nil {
			return res, err
		}
		res.Uploaded = append(res.Uploaded, uri)
	}
	log.Event("backup", "path", dst, "files", res.Files, "size", res.Size, "uploads", len(res.Uploaded))
	return res, nil
}
