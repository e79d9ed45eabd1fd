package journal

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// renderColumn renders a bordered column of width w (including border)
// with a title and rows
func renderColumn(title string, rows []string, selected int, w int, h int) string {
	inner := max(w-2, 1)
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, columnTitleStyle.Render(truncate(title, inner)))
	for i, row := range rows {
		style := rowStyle
		if i == selected {
			style = selectedRowStyle
		}
		lines = append(lines, style.Render(truncate(row, inner)))
	}
	return columnStyle.
		Width(inner).
		Height(max(h-2, 1)).
		Render(strings.Join(lines, "\n"))
}

// visibleWindow returns range of m.visible that fits in n rows and
// contains the selected entry
func (m *Model) visibleWindow(n int) (int, int) {
	if n <= 0 || len(m.visible) == 0 {
		return 0, 0
	}
	start := 0
	if m.selected >= n {
		start = m.selected - n + 1
	}
	end := min(start+n, len(m.visible))
	return start, end
}

func (m *Model) renderColumns(h int) string {
	dateW := m.width * 20 / 100
	tagW := m.width * 20 / 100
	contentW := m.width - dateW - tagW

	// 2 lines of border and 1 for title
	start, end := m.visibleWindow(h - 3)
	var dates, texts, tags []string
	for _, idx := range m.visible[start:end] {
		e := &m.entries[idx]
		dates = append(dates, e.Time().Format("2006-01-02 15:04"))
		texts = append(texts, e.TextString())
		tags = append(tags, e.TagString())
	}
	sel := m.selected - start
	return lipgloss.JoinHorizontal(lipgloss.Top,
		renderColumn("date", dates, sel, dateW, h),
		renderColumn("content", texts, sel, contentW, h),
		renderColumn("tag", tags, sel, tagW, h),
	)
}

func (m *Model) renderStatus() string {
	if m.mode != modeBrowse {
		return m.input.View()
	}
	s := m.status
	if m.filterPattern != "" {
		s = "[" + m.filterPattern + "] " + s
	}
	if m.statusErr {
		return errorStyle.Render(truncate(s, m.width-2))
	}
	if s == "" {
		return helpStyle.Render(truncate("a add  : command  space dump  q quit", m.width-2))
	}
	return statusBarStyle.Render(truncate(s, m.width-2))
}

func (m *Model) renderPopup() string {
	maxW := max(m.width-8, 20)
	maxH := max(m.height-6, 3)
	lines := strings.Split(strings.TrimRight(m.popup, "\n"), "\n")
	if len(lines) > maxH {
		lines = append(lines[:maxH-1], "…")
	}
	for i, l := range lines {
		lines[i] = truncate(l, maxW)
	}
	body := popupTitleStyle.Render(m.popupTitle) + "\n\n" + strings.Join(lines, "\n")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, popupStyle.Render(body))
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}
	if m.popup != "" {
		return m.renderPopup()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderColumns(m.height-1),
		m.renderStatus(),
	)
}
