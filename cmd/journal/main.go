// Package main is a terminal journal. Entries are kept in an append-only
// file of fixed-size records.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjk/journal/backup"
	"github.com/kjk/journal/config"
	"github.com/kjk/journal/journal"
	"github.com/kjk/journal/log"
	"github.com/kjk/journal/metrics"
	"github.com/kjk/journal/typedstore"
)

const version = "0.1.0"

type flags struct {
	ConfigPath  string
	DataDir     string
	Verbose     bool
	Reset       bool
	Dump        bool
	Inspect     bool
	Backup      bool
	RestoreFrom string
	ShowVersion bool
}

func main() {
	f := parseFlags()
	if f.ShowVersion {
		fmt.Printf("journal v%s\n", version)
		return
	}

	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	f.apply(cfg)
	if err = f.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	log.Verbose = cfg.Verbose
	log.Init(&log.Config{
		Dir:          cfg.LogDir,
		RemoteURL:    cfg.RemoteLogURL,
		RemoteAPIKey: cfg.RemoteLogKey,
	})

	err = run(ctx, cfg, f)
	cancel()
	if err != nil {
		log.Fatalf("journal: %v\n", err)
	}
	log.Close()
}

func parseFlags() *flags {
	f := &flags{}
	flag.StringVar(&f.ConfigPath, "config", config.DefaultPath(), "path of YAML config file")
	flag.StringVar(&f.DataDir, "data-dir", "", "directory with journal data (overrides config)")
	flag.BoolVar(&f.Verbose, "verbose", false, "verbose logging")
	flag.BoolVar(&f.Reset, "reset", false, "start with an empty journal, deleting existing entries")
	flag.BoolVar(&f.Dump, "dump", false, "print all entries as JSON and exit")
	flag.BoolVar(&f.Inspect, "inspect", false, "check the entries file and exit")
	flag.BoolVar(&f.Backup, "backup", false, "back up the data directory and exit")
	flag.StringVar(&f.RestoreFrom, "restore", "", "restore data directory from a .tar.zst or .tar.br backup and exit")
	flag.BoolVar(&f.ShowVersion, "version", false, "show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "journal - a terminal journal\n\n")
		fmt.Fprintf(os.Stderr, "Usage: journal [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  journal                        # open the journal\n")
		fmt.Fprintf(os.Stderr, "  journal -dump > entries.json\n")
		fmt.Fprintf(os.Stderr, "  journal -backup -verbose\n")
	}
	flag.Parse()
	return f
}

// apply overrides config with command line flags
func (f *flags) apply(cfg *config.Config) {
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.Verbose {
		cfg.Verbose = true
	}
	if f.Reset {
		cfg.KeepHistory = false
	}
}

func (f *flags) validate() error {
	n := 0
	for _, b := range []bool{f.Dump, f.Inspect, f.Backup, f.RestoreFrom != ""} {
		if b {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("only one of -dump, -inspect, -backup and -restore can be used")
	}
	if f.Reset && n > 0 {
		return fmt.Errorf("-reset can only be used when opening the journal")
	}
	return nil
}

func onStoreOp(op *typedstore.OpInfo) {
	metrics.ObserveOp(op)
	if op.Err != nil {
		log.Verbosef("store: %s '%s' failed after %s: %v\n", op.Op, op.Kind, op.Duration, op.Err)
		return
	}
	log.Verbosef("store: %s '%s' %d bytes in %s\n", op.Op, op.Kind, op.Bytes, op.Duration)
}

func openEntries(ctx context.Context, cfg *config.Config) (*typedstore.Table[journal.Entry], error) {
	s := &typedstore.Store{
		DataDir: cfg.DataDir,
		OnOp:    onStoreOp,
	}
	if err := typedstore.OpenStore(s); err != nil {
		return nil, err
	}
	entries, err := typedstore.NewTable[journal.Entry](s, journal.EntryKind)
	if err != nil {
		return nil, err
	}
	if cfg.KeepHistory {
		err = entries.Attach(ctx)
	} else {
		err = entries.Register(ctx)
	}
	if err != nil {
		return nil, err
	}
	n, err := entries.Len(ctx)
	if err != nil {
		return nil, err
	}
	metrics.SetRecords(journal.EntryKind, n)
	log.Event("open", "kind", journal.EntryKind, "records", n, "keep_history", cfg.KeepHistory)
	return entries, nil
}

func run(ctx context.Context, cfg *config.Config, f *flags) error {
	if f.RestoreFrom != "" {
		n, err := backup.Restore(ctx, f.RestoreFrom, cfg.DataDir)
		if err != nil {
			return err
		}
		log.Logf("restored %d files from '%s' to '%s'\n", n, f.RestoreFrom, cfg.DataDir)
		return nil
	}
	if f.Backup {
		res, err := backup.Run(ctx, cfg)
		if err != nil {
			return err
		}
		log.Logf("wrote '%s' (%d files)\n", res.Path, res.Files)
		for _, uri := range res.Uploaded {
			log.Logf("uploaded to %s\n", uri)
		}
		return nil
	}

	entries, err := openEntries(ctx, cfg)
	if err != nil {
		return err
	}

	if f.Dump {
		all, err := entries.Collect(ctx)
		if err != nil {
			return err
		}
		d, err := journal.EntriesJSON(all)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(d)
		return err
	}
	if f.Inspect {
		st, err := entries.Inspect(ctx)
		if err != nil {
			return err
		}
		log.Logf("%s: %d records of %d bytes, %d torn bytes, index %d..%d, %d gaps\n",
			st.Kind, st.Records, st.RecordSize, st.TornBytes, st.FirstIndex, st.LastIndex, st.IndexGaps)
		return nil
	}

	if cfg.MetricsPort > 0 {
		srv := metrics.StartMetricsServer(cfg.MetricsPort)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// the UI owns the terminal
	log.SetQuiet(true)
	defer log.SetQuiet(false)

	opts := journal.Options{
		Entries: entries,
		Backup: func(ctx context.Context) (string, error) {
			res, err := backup.Run(ctx, cfg)
			if err != nil {
				return "", err
			}
			return res.Path, nil
		},
	}
	timeStart := time.Now()
	m, err := journal.Run(ctx, opts)
	if err != nil {
		return err
	}
	log.EventWithDuration("close", time.Since(timeStart), "reason", m.StopReason)
	return nil
}
