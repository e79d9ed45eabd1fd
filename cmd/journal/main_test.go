package main

import (
	"context"
	"testing"
	"time"

	"github.com/kjk/journal/config"
	"github.com/kjk/journal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsValidate(t *testing.T) {
	assert.NoError(t, (&flags{}).validate())
	assert.NoError(t, (&flags{Dump: true}).validate())
	assert.NoError(t, (&flags{Reset: true}).validate())
	assert.Error(t, (&flags{Dump: true, Backup: true}).validate())
	assert.Error(t, (&flags{Inspect: true, RestoreFrom: "x.tar.zst"}).validate())
	assert.Error(t, (&flags{Reset: true, Dump: true}).validate())
}

func TestFlagsApply(t *testing.T) {
	cfg := config.Default()
	(&flags{DataDir: "/tmp/j", Verbose: true, Reset: true}).apply(cfg)
	assert.Equal(t, "/tmp/j", cfg.DataDir)
	assert.True(t, cfg.Verbose)
	assert.False(t, cfg.KeepHistory)
}

func TestOpenEntriesKeepsOrResets(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	entries, err := openEntries(ctx, cfg)
	require.NoError(t, err)
	e, err := journal.NewEntry(time.Now(), "t", "kept")
	require.NoError(t, err)
	_, err = entries.Save(ctx, e)
	require.NoError(t, err)

	entries, err = openEntries(ctx, cfg)
	require.NoError(t, err)
	n, err := entries.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cfg.KeepHistory = false
	entries, err = openEntries(ctx, cfg)
	require.NoError(t, err)
	n, err = entries.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
