package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kjk/journal/typedstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) (*Model, *typedstore.Table[Entry]) {
	ctx := context.Background()
	s := &typedstore.Store{DataDir: t.TempDir()}
	require.NoError(t, typedstore.OpenStore(s))
	tbl, err := typedstore.NewTable[Entry](s, EntryKind)
	require.NoError(t, err)
	require.NoError(t, tbl.Attach(ctx))

	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	m := New(ctx, Options{
		Entries: tbl,
		Now: func() time.Time {
			now = now.Add(time.Minute)
			return now
		},
	})
	run(m, m.Init())
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, tbl
}

// run executes cmd and feeds resulting message back to the model
func run(m *Model, cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if msg != nil {
		m.Update(msg)
	}
	return msg
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends keys and runs commands they return, except for quit
func press(m *Model, keys ...string) tea.Msg {
	var last tea.Msg
	for _, k := range keys {
		_, cmd := m.Update(keyMsg(k))
		if cmd == nil {
			continue
		}
		msg := cmd()
		if _, ok := msg.(tea.QuitMsg); ok {
			return msg
		}
		if msg != nil {
			m.Update(msg)
		}
		last = msg
	}
	return last
}

func command(m *Model, line string) tea.Msg {
	return press(m, ":", line, "enter")
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, "exited", m.StopReason)
}

func TestQuitCommand(t *testing.T) {
	m, _ := newTestModel(t)
	msg := command(m, "quit")
	assert.IsType(t, tea.QuitMsg{}, msg)
}

func TestStopError(t *testing.T) {
	err := Stop("exited")
	assert.True(t, IsStop(err))
	assert.True(t, IsStop(errors.Join(errors.New("x"), err)))
	assert.False(t, IsStop(errors.New("exited")))
	assert.Equal(t, "journal stopped: exited", err.Error())
}

func TestAddEntry(t *testing.T) {
	ctx := context.Background()
	m, tbl := newTestModel(t)
	press(m, "a", "work: wrote tests", "enter")
	press(m, "a", "no tag here", "enter")

	require.Len(t, m.entries, 2)
	assert.Equal(t, "work", m.entries[0].TagString())
	assert.Equal(t, "wrote tests", m.entries[0].TextString())
	assert.Equal(t, "", m.entries[1].TagString())
	assert.Equal(t, "no tag here", m.entries[1].TextString())
	assert.Equal(t, 1, m.selected)
	assert.False(t, m.statusErr)

	e, err := tbl.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "no tag here", e.TextString())
}

func TestAddCommand(t *testing.T) {
	m, _ := newTestModel(t)
	command(m, `add -t home "fixed the sink"`)
	require.Len(t, m.entries, 1)
	assert.Equal(t, "home", m.entries[0].TagString())
	assert.Equal(t, "fixed the sink", m.entries[0].TextString())

	command(m, "add")
	assert.True(t, m.statusErr)
	assert.Len(t, m.entries, 1)
}

func TestEscCancelsInput(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, "a", "never saved", "esc")
	assert.Equal(t, modeBrowse, m.mode)
	assert.Len(t, m.entries, 0)
	// back in browse mode 'q' quits instead of being typed
	msg := press(m, "q")
	assert.IsType(t, tea.QuitMsg{}, msg)
}

func TestReloadFromStore(t *testing.T) {
	m, _ := newTestModel(t)
	command(m, "add -t a one")
	command(m, "add -t b two")

	m2 := New(context.Background(), m.opts)
	run(m2, m2.Init())
	require.Len(t, m2.entries, 2)
	assert.Equal(t, "two", m2.entries[1].TextString())
}

func TestFilter(t *testing.T) {
	m, _ := newTestModel(t)
	command(m, "add -t work one")
	command(m, "add -t home two")
	command(m, "add -t workout three")

	command(m, "filter work*")
	assert.False(t, m.statusErr)
	got := m.VisibleEntries()
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].TextString())
	assert.Equal(t, "three", got[1].TextString())

	command(m, "filter [")
	assert.True(t, m.statusErr)

	command(m, "clear")
	assert.Len(t, m.VisibleEntries(), 3)
}

func TestDumpPopup(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, " ")
	assert.Equal(t, "", m.popup)
	assert.Equal(t, "no entries", m.status)

	command(m, "add -t dbg look at me")
	press(m, " ")
	assert.Contains(t, m.popup, "look at me")
	assert.Contains(t, m.View(), "entry #1")

	press(m, "esc")
	assert.Equal(t, "", m.popup)
}

func TestNavigation(t *testing.T) {
	m, _ := newTestModel(t)
	for _, s := range []string{"one", "two", "three"} {
		command(m, "add "+s)
	}
	assert.Equal(t, 2, m.selected)
	press(m, "k", "k", "k")
	assert.Equal(t, 0, m.selected)
	press(m, "j", "down")
	assert.Equal(t, 2, m.selected)
	press(m, "g")
	assert.Equal(t, 0, m.selected)
	press(m, "G")
	assert.Equal(t, 2, m.selected)
}

func TestYank(t *testing.T) {
	m, _ := newTestModel(t)
	var copied string
	m.opts.CopyToClipboard = func(s string) error {
		copied = s
		return nil
	}
	press(m, "y")
	assert.True(t, m.statusErr)

	command(m, "add copy this")
	press(m, "y")
	assert.Equal(t, "copy this", copied)
	assert.False(t, m.statusErr)
}

func TestBackupCommand(t *testing.T) {
	m, _ := newTestModel(t)
	command(m, "backup")
	assert.True(t, m.statusErr)

	m.opts.Backup = func(ctx context.Context) (string, error) {
		return "/backups/journal.tar.zst", nil
	}
	command(m, "backup")
	assert.False(t, m.statusErr)
	assert.Contains(t, m.status, "/backups/journal.tar.zst")
}

func TestUnknownCommand(t *testing.T) {
	m, _ := newTestModel(t)
	command(m, "frobnicate")
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "frobnicate")

	command(m, `add "unterminated`)
	assert.True(t, m.statusErr)
}

func TestView(t *testing.T) {
	m, _ := newTestModel(t)
	command(m, "add -t life hello journal")
	v := m.View()
	assert.Contains(t, v, "date")
	assert.Contains(t, v, "content")
	assert.Contains(t, v, "tag")
	assert.Contains(t, v, "hello journal")
	assert.Contains(t, v, "life")

	command(m, "json")
	assert.Contains(t, m.View(), `"hello journal"`)

	m2 := New(context.Background(), Options{})
	assert.Equal(t, "loading...", m2.View())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 5))
	assert.Equal(t, "hel…", truncate("hello", 4))
	assert.Equal(t, "", truncate("hello", 0))
	assert.Equal(t, "a b", truncate("a\nb", 10))
}
