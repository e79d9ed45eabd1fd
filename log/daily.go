package log

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// dailyFile appends to a file named after the current UTC day and
// switches to a new file when the day changes.
// Methods are safe to call on nil receiver.
type dailyFile struct {
	dir string
	// for tests
	now func() time.Time

	mu   sync.Mutex
	day  string // YYYY-MM-DD
	file *os.File
}

func newDailyFile(dir string) *dailyFile {
	return &dailyFile{
		dir: dir,
		now: time.Now,
	}
}

func (w *dailyFile) pathForDay(day string) string {
	return filepath.Join(w.dir, day+".txt")
}

func (w *dailyFile) Write(d []byte) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().UTC().Format("2006-01-02")
	if w.file != nil && w.day != day {
		w.file.Close()
		w.file = nil
	}
	if w.file == nil {
		// directory is created lazily so unused logs leave no trace
		if err := os.MkdirAll(w.dir, 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(w.pathForDay(day), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		w.file = f
		w.day = day
	}
	_, err := w.file.Write(d)
	return err
}

func (w *dailyFile) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	w.file.Sync()
	err := w.file.Close()
	w.file = nil
	w.day = ""
	return err
}
