package journal

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gobwas/glob"
	"github.com/kballard/go-shellquote"
)

const commandsHelp = `add [-t tag] text   add an entry
filter <glob>       show entries with matching tag
clear               show all entries
yank                copy selected entry
dump                show selected entry
json                show entries as JSON
backup              back up the data directory
quit                exit

keys: a add, : command, j/k move, space dump, y yank, r reload, q quit`

// runCommand runs a command line typed after ':'
func (m *Model) runCommand(line string) (tea.Cmd, error) {
	args, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("invalid command '%s': %w", line, err)
	}
	if len(args) == 0 {
		return nil, nil
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "add", "a":
		tag := ""
		if len(args) >= 2 && args[0] == "-t" {
			tag, args = args[1], args[2:]
		}
		e, err := NewEntry(m.opts.Now(), tag, strings.Join(args, " "))
		if err != nil {
			return nil, err
		}
		return m.saveCmd(e), nil

	case "filter", "f":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: filter <glob>")
		}
		g, err := glob.Compile(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid filter '%s': %w", args[0], err)
		}
		m.filter, m.filterPattern = g, args[0]
		m.applyFilter()
		m.setStatus("%d of %d entries match '%s'", len(m.visible), len(m.entries), args[0])

	case "clear":
		m.filter, m.filterPattern = nil, ""
		m.applyFilter()
		m.setStatus("%d entries", len(m.entries))

	case "yank", "y":
		return nil, m.yank()

	case "dump":
		m.dumpSelected()

	case "json":
		d, err := EntriesJSON(m.VisibleEntries())
		if err != nil {
			return nil, err
		}
		m.showPopup("entries", string(d))

	case "backup":
		if m.opts.Backup == nil {
			return nil, fmt.Errorf("backup is not configured")
		}
		m.setStatus("backing up...")
		return m.backupCmd(), nil

	case "help", "h", "?":
		m.showPopup("help", commandsHelp)

	case "quit", "q":
		return nil, Stop("exited")

	default:
		return nil, fmt.Errorf("unknown command '%s', try 'help'", cmd)
	}
	return nil, nil
}
