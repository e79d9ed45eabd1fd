// Package journal is a terminal journal that keeps entries in a typed
// record store.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gobwas/glob"
	"github.com/kjk/journal/log"
	"github.com/kjk/journal/typedstore"
)

// StopError is returned by key handlers to end the UI loop
type StopError struct {
	Reason string
}

func (e *StopError) Error() string {
	return "journal stopped: " + e.Reason
}

func Stop(reason string) error {
	return &StopError{Reason: reason}
}

func IsStop(err error) bool {
	var se *StopError
	return errors.As(err, &se)
}

type Options struct {
	Entries *typedstore.Table[Entry]
	// runs the "backup" command, returns where backup was written.
	// If nil, the command is disabled
	Backup func(ctx context.Context) (string, error)
	// for tests
	Now             func() time.Time
	CopyToClipboard func(s string) error
}

type inputMode int

const (
	modeBrowse inputMode = iota
	modeAdd
	modeCommand
)

type entriesLoadedMsg struct {
	entries []Entry
	err     error
}

type entrySavedMsg struct {
	entry Entry
	index uint64
	err   error
}

type backupDoneMsg struct {
	path string
	err  error
}

// Model is the bubbletea model of the journal UI
type Model struct {
	ctx  context.Context
	opts Options

	// all entries, in the order they were saved
	entries []Entry
	// indexes of entries that match the filter
	visible  []int
	selected int

	filter        glob.Glob
	filterPattern string

	mode  inputMode
	input textinput.Model

	popupTitle string
	popup      string

	status    string
	statusErr bool

	width  int
	height int

	// why the UI stopped, set after Stop()
	StopReason string
}

func New(ctx context.Context, opts Options) *Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CopyToClipboard == nil {
		opts.CopyToClipboard = clipboard.WriteAll
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Cursor.SetMode(cursor.CursorStatic)
	return &Model{
		ctx:   ctx,
		opts:  opts,
		input: ti,
	}
}

func (m *Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m *Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.opts.Entries.Collect(m.ctx)
		return entriesLoadedMsg{entries: entries, err: err}
	}
}

func (m *Model) saveCmd(e Entry) tea.Cmd {
	return func() tea.Msg {
		idx, err := m.opts.Entries.Save(m.ctx, e)
		if err == nil {
			log.Event("entry_saved", "index", idx, "tag", e.TagString(), "len", len(e.TextString()))
		}
		return entrySavedMsg{entry: e, index: idx, err: err}
	}
}

func (m *Model) backupCmd() tea.Cmd {
	return func() tea.Msg {
		path, err := m.opts.Backup(m.ctx)
		return backupDoneMsg{path: path, err: err}
	}
}

func (m *Model) setStatus(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = false
}

func (m *Model) setError(err error) {
	log.IfErrf(err)
	m.status = err.Error()
	m.statusErr = true
}

func (m *Model) showPopup(title string, body string) {
	m.popupTitle = title
	m.popup = body
}

func (m *Model) closePopup() {
	m.popupTitle = ""
	m.popup = ""
}

func (m *Model) applyFilter() {
	m.visible = m.visible[:0]
	for i := range m.entries {
		if m.filter == nil || m.filter.Match(m.entries[i].TagString()) {
			m.visible = append(m.visible, i)
		}
	}
	m.selectLast()
}

func (m *Model) selectLast() {
	m.selected = max(len(m.visible)-1, 0)
}

func (m *Model) move(delta int) {
	if len(m.visible) == 0 {
		return
	}
	m.selected = min(max(m.selected+delta, 0), len(m.visible)-1)
}

// selectedEntry returns selected entry and its 1-based position in
// the store or nil if there are no visible entries
func (m *Model) selectedEntry() (*Entry, int) {
	if len(m.visible) == 0 {
		return nil, 0
	}
	i := m.visible[m.selected]
	return &m.entries[i], i + 1
}

// VisibleEntries returns entries that match the filter
func (m *Model) VisibleEntries() []Entry {
	res := make([]Entry, len(m.visible))
	for i, idx := range m.visible {
		res[i] = m.entries[idx]
	}
	return res
}

func (m *Model) startInput(mode inputMode, placeholder string) tea.Cmd {
	m.mode = mode
	m.input.Reset()
	m.input.Placeholder = placeholder
	if mode == modeCommand {
		m.input.Prompt = ": "
	} else {
		m.input.Prompt = "> "
	}
	return m.input.Focus()
}

func (m *Model) endInput() {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case entriesLoadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.entries = msg.entries
		m.applyFilter()
		m.setStatus("%d entries", len(m.entries))
		return m, nil

	case entrySavedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.entries = append(m.entries, msg.entry)
		m.applyFilter()
		m.setStatus("saved entry #%d", len(m.entries))
		return m, nil

	case backupDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setStatus("backup written to %s", msg.path)
		return m, nil

	case tea.KeyMsg:
		cmd, err := m.handleKey(msg)
		if err != nil {
			var se *StopError
			if errors.As(err, &se) {
				m.StopReason = se.Reason
				return m, tea.Quit
			}
			m.setError(err)
			return m, nil
		}
		return m, cmd
	}

	if m.mode != modeBrowse {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey returns *StopError to end the UI loop
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, error) {
	if msg.Type == tea.KeyCtrlC {
		return nil, Stop("interrupted")
	}

	if m.mode != modeBrowse {
		switch msg.Type {
		case tea.KeyEsc:
			m.endInput()
			return nil, nil
		case tea.KeyEnter:
			mode, line := m.mode, m.input.Value()
			m.endInput()
			if mode == modeAdd {
				return m.addEntry(line)
			}
			return m.runCommand(line)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return cmd, nil
	}

	if m.popup != "" {
		switch msg.String() {
		case "q":
			return nil, Stop("exited")
		case "esc", "enter", " ":
			m.closePopup()
		}
		return nil, nil
	}

	switch msg.String() {
	case "q":
		return nil, Stop("exited")
	case " ":
		m.dumpSelected()
	case "a":
		return m.startInput(modeAdd, "tag: text"), nil
	case ":":
		return m.startInput(modeCommand, "command"), nil
	case "j", "down":
		m.move(1)
	case "k", "up":
		m.move(-1)
	case "g", "home":
		m.selected = 0
	case "G", "end":
		m.selectLast()
	case "y":
		return nil, m.yank()
	case "r":
		return m.loadCmd(), nil
	case "esc":
		m.status = ""
	}
	return nil, nil
}

// addEntry saves entry from "tag: text" or "text"
func (m *Model) addEntry(line string) (tea.Cmd, error) {
	tag, text := "", strings.TrimSpace(line)
	if before, after, ok := strings.Cut(text, ":"); ok && !strings.ContainsAny(before, " \t") {
		tag, text = before, after
	}
	e, err := NewEntry(m.opts.Now(), tag, text)
	if err != nil {
		return nil, err
	}
	return m.saveCmd(e), nil
}

func (m *Model) dumpSelected() {
	e, pos := m.selectedEntry()
	if e == nil {
		m.setStatus("no entries")
		return
	}
	m.showPopup(fmt.Sprintf("entry #%d", pos), dumpEntry(pos, e))
}

func (m *Model) yank() error {
	e, pos := m.selectedEntry()
	if e == nil {
		return fmt.Errorf("no entry to copy")
	}
	if err := m.opts.CopyToClipboard(e.TextString()); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	m.setStatus("copied entry #%d", pos)
	return nil
}
