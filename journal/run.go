package journal

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the journal until the user quits or ctx is cancelled.
// The terminal is switched to the alternate screen and raw mode while
// the UI runs and restored on every exit path, including panics.
func Run(ctx context.Context, opts Options) (*Model, error) {
	m := New(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			m.StopReason = "cancelled"
			return m, nil
		}
		return m, fmt.Errorf("failed to run journal UI: %w", err)
	}
	return m, nil
}
