package layout

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/michaelssavage/spanish-worksheets/internal/ui/theme"
)

// Column describes one table column. Numeric columns set Right.
type Column struct {
	Title string
	Right bool
}

// RenderTable renders rows under a heading line, each column as wide as
// its widest cell. Short rows are padded with empty cells.
func RenderTable(cols []Column, rows [][]string) string {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = lipgloss.Width(c.Title)
	}
	for _, r := range rows {
		for i := 0; i < len(cols) && i < len(r); i++ {
			widths[i] = max(widths[i], lipgloss.Width(r[i]))
		}
	}

	cell := func(i int, s string) string {
		st := lipgloss.NewStyle().Width(widths[i])
		if cols[i].Right {
			st = st.Align(lipgloss.Right)
		}
		return st.Render(s)
	}
	line := func(cells []string) string {
		out := make([]string, len(cols))
		for i := range cols {
			var s string
			if i < len(cells) {
				s = cells[i]
			}
			out[i] = cell(i, s)
		}
		return strings.TrimRight(strings.Join(out, "  "), " ")
	}

	total := 2 * (len(cols) - 1)
	for _, w := range widths {
		total += w
	}

	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.Title
	}
	var b strings.Builder
	b.WriteString(theme.TableHeading.Render(line(titles)))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Render(strings.Repeat("─", total)))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(line(r))
	}
	return b.String()
}

// RenderSection renders a titled block of preformatted text, as used for
// request and reply bodies. Empty bodies show a placeholder.
func RenderSection(title, body string, width int) string {
	if body == "" {
		body = theme.Hint.Render("(not captured)")
	}
	rule := theme.Subtitle.Render(strings.Repeat("─", width))
	return rule + "\n" + theme.SectionHeading.UnsetMarginTop().Render(title) + "\n" + rule + "\n" + body
}
