package journal

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// EntryKind is the name of the record file with entries
	EntryKind = "journal.Entry"

	TagSize  = 16
	TextSize = 240
)

var (
	ErrEmptyText = errors.New("journal: entry text is empty")
	ErrTooLong   = errors.New("journal: value too long")
)

// Entry is a journal entry. It's stored as a fixed-size record so
// text and tag are fixed-size, zero-padded arrays.
type Entry struct {
	// unix epoch in milliseconds
	Created int64
	// YYYYMMDD in local time
	Day  uint32
	Tag  [TagSize]byte
	Text [TextSize]byte
}

func dayFromTime(t time.Time) uint32 {
	return uint32(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// NewEntry creates an entry created at t
func NewEntry(t time.Time, tag string, text string) (Entry, error) {
	var e Entry
	text = strings.TrimSpace(text)
	tag = strings.TrimSpace(tag)
	if text == "" {
		return e, ErrEmptyText
	}
	if strings.ContainsAny(tag, " \t\n") {
		return e, fmt.Errorf("journal: tag '%s' has spaces", tag)
	}
	if len(tag) > TagSize {
		return e, fmt.Errorf("%w: tag is %d bytes, max is %d", ErrTooLong, len(tag), TagSize)
	}
	if len(text) > TextSize {
		return e, fmt.Errorf("%w: text is %d bytes, max is %d", ErrTooLong, len(text), TextSize)
	}
	if !utf8.ValidString(text) || !utf8.ValidString(tag) {
		return e, fmt.Errorf("journal: text is not valid utf-8")
	}
	e.Created = t.UnixMilli()
	e.Day = dayFromTime(t)
	copy(e.Tag[:], tag)
	copy(e.Text[:], text)
	return e, nil
}

func cString(d []byte) string {
	if i := bytes.IndexByte(d, 0); i >= 0 {
		d = d[:i]
	}
	return string(d)
}

func (e *Entry) TagString() string {
	return cString(e.Tag[:])
}

func (e *Entry) TextString() string {
	return cString(e.Text[:])
}

func (e *Entry) Time() time.Time {
	return time.UnixMilli(e.Created)
}

// DayString returns day as YYYY-MM-DD
func (e *Entry) DayString() string {
	d := e.Day
	return fmt.Sprintf("%04d-%02d-%02d", d/10000, (d/100)%100, d%100)
}
