package backup

import (
	"context"
	"fmt"
	"net"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kjk/journal/config"
	"github.com/kjk/journal/log"
	"github.com/melbahja/goph"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/sftp"
)

func newS3Client(c *config.S3Config) (*minio.Client, error) {
	if c.Endpoint == "" || c.Bucket == "" {
		return nil, fmt.Errorf("backup: s3 needs endpoint and bucket")
	}
	return minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
}

// UploadS3 uploads file at localPath to the bucket under its base name.
// Returns s3:// uri of the object.
func UploadS3(ctx context.Context, c *config.S3Config, localPath string) (string, error) {
	mc, err := newS3Client(c)
	if err != nil {
		return "", err
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("backup: bucket '%s' doesn't exist", c.Bucket)
	}
	remotePath := filepath.Base(localPath)
	timeStart := time.Now()
	info, err := mc.FPutObject(ctx, c.Bucket, remotePath, localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("backup: failed to upload '%s' to s3: %w", localPath, err)
	}
	log.Verbosef("backup: uploaded '%s' (%d bytes) to bucket '%s' in %s\n", remotePath, info.Size, c.Bucket, time.Since(timeStart))
	return "s3://" + c.Bucket + "/" + remotePath, nil
}

func sftpConnConfig(c *config.SFTPConfig) (*goph.Config, error) {
	if c.User == "" || c.Addr == "" || c.PrivateKeyPath == "" {
		return nil, fmt.Errorf("backup: sftp needs user, addr and private_key_path")
	}
	host, port := c.Addr, uint(22)
	if h, p, err := net.SplitHostPort(c.Addr); err == nil {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("backup: invalid port in '%s'", c.Addr)
		}
		host, port = h, uint(n)
	}
	return &goph.Config{
		User:    c.User,
		Addr:    host,
		Port:    port,
		Timeout: 20 * time.Second,
	}, nil
}

// UploadSFTP copies file at localPath to c.RemoteDir on the server.
// Host key must be in ~/.ssh/known_hosts.
func UploadSFTP(ctx context.Context, c *config.SFTPConfig, localPath string) (string, error) {
	cfg, err := sftpConnConfig(c)
	if err != nil {
		return "", err
	}
	if err = ctx.Err(); err != nil {
		return "", err
	}
	cfg.Auth, err = goph.Key(c.PrivateKeyPath, "")
	if err != nil {
		return "", fmt.Errorf("backup: goph.Key() failed with '%w'", err)
	}
	cfg.Callback, err = goph.DefaultKnownHosts()
	if err != nil {
		return "", err
	}
	client, err := goph.NewConn(cfg)
	if err != nil {
		return "", fmt.Errorf("backup: failed to connect to '%s': %w", c.Addr, err)
	}
	defer client.Close()

	sc, err := client.NewSftp()
	if err != nil {
		return "", fmt.Errorf("backup: client.NewSftp() failed with '%w'", err)
	}
	defer sc.Close()

	remotePath, err := prepareRemotePath(sc, c.RemoteDir, filepath.Base(localPath))
	if err != nil {
		return "", err
	}
	timeStart := time.Now()
	if err = client.Upload(localPath, remotePath); err != nil {
		return "", fmt.Errorf("backup: client.Upload() failed with '%w'", err)
	}
	log.Verbosef("backup: uploaded '%s' to '%s:%s' in %s\n", localPath, c.Addr, remotePath, time.Since(timeStart))
	return "sftp://" + c.User + "@" + c.Addr + "/" + remotePath, nil
}

// prepareRemotePath creates dir on the server and checks that name
// doesn't exist in it
func prepareRemotePath(sc *sftp.Client, dir string, name string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := sc.MkdirAll(dir); err != nil {
		return "", fmt.Errorf("backup: sftp.MkdirAll('%s') failed with '%w'", dir, err)
	}
	remotePath := path.Join(dir, name)
	if _, err := sc.Stat(remotePath); err == nil {
		return "", fmt.Errorf("backup: '%s' already exists on the server", remotePath)
	}
	return remotePath, nil
}
