// Package config loads journal settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CompressionZstd   = "zstd"
	CompressionBrotli = "br"
)

type S3Config struct {
	Endpoint string `yaml:"endpoint"`
	Access   string `yaml:"access"`
	Secret   string `yaml:"secret"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	// use http instead of https
	Insecure bool `yaml:"insecure"`
}

type SFTPConfig struct {
	User string `yaml:"user"`
	// host or host:port
	Addr           string `yaml:"addr"`
	PrivateKeyPath string `yaml:"private_key_path"`
	RemoteDir      string `yaml:"remote_dir"`
}

type BackupConfig struct {
	// where snapshots are written; defaults to <data_dir>/../backups
	Dir         string      `yaml:"dir"`
	Compression string      `yaml:"compression"`
	S3          *S3Config   `yaml:"s3"`
	SFTP        *SFTPConfig `yaml:"sftp"`
}

type Config struct {
	DataDir string `yaml:"data_dir"`
	LogDir  string `yaml:"log_dir"`
	Verbose bool   `yaml:"verbose"`
	// if false, the journal starts empty on every run
	KeepHistory  bool         `yaml:"keep_history"`
	MetricsPort  int          `yaml:"metrics_port"`
	RemoteLogURL string       `yaml:"remote_log_url"`
	RemoteLogKey string       `yaml:"remote_log_key"`
	Backup       BackupConfig `yaml:"backup"`
}

// DefaultDir is ~/.journal
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".journal"
	}
	return filepath.Join(home, ".journal")
}

// DefaultPath is the path of config file used when none is given
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

func Default() *Config {
	dir := DefaultDir()
	return &Config{
		DataDir:     filepath.Join(dir, "data"),
		LogDir:      filepath.Join(dir, "logs"),
		KeepHistory: true,
		Backup: BackupConfig{
			Dir:         filepath.Join(dir, "backups"),
			Compression: CompressionZstd,
		},
	}
}

// Load reads config from path over the defaults.
// Missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	d, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(d, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse '%s': %w", path, err)
	}
	cfg.expandPaths()
	return cfg, cfg.Validate()
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func (c *Config) expandPaths() {
	c.DataDir = expandHome(c.DataDir)
	c.LogDir = expandHome(c.LogDir)
	c.Backup.Dir = expandHome(c.Backup.Dir)
	if c.Backup.SFTP != nil {
		c.Backup.SFTP.PrivateKeyPath = expandHome(c.Backup.SFTP.PrivateKeyPath)
	}
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir is required")
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("config: invalid metrics_port %d", c.MetricsPort)
	}
	switch c.Backup.Compression {
	case "", CompressionZstd, CompressionBrotli:
	default:
		return fmt.Errorf("config: unknown backup compression '%s', use '%s' or '%s'", c.Backup.Compression, CompressionZstd, CompressionBrotli)
	}
	if s3 := c.Backup.S3; s3 != nil {
		if s3.Endpoint == "" || s3.Bucket == "" {
			return fmt.Errorf("config: backup.s3 needs endpoint and bucket")
		}
	}
	if sftp := c.Backup.SFTP; sftp != nil {
		if sftp.User == "" || sftp.Addr == "" || sftp.PrivateKeyPath == "" {
			return fmt.Errorf("config: backup.sftp needs user, addr and private_key_path")
		}
	}
	return nil
}

// Save writes c as YAML to path
func (c *Config) Save(path string) error {
	d, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, d, 0600)
}
