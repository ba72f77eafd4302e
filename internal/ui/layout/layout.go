package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/michaelssavage/spanish-worksheets/internal/ui/theme"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// Field is one row of a key/value listing.
type Field struct {
	Label string
	Value string
}

// RenderHeader renders a single-line header with title on the left and
// meta on the right.
func RenderHeader(title, meta string, width int) string {
	left := theme.Title.Render(title)
	right := theme.Subtitle.Render(meta)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// RenderFields renders aligned label/value rows.
func RenderFields(fields []Field) string {
	rows := make([]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, theme.Label.Render(f.Label+":")+theme.Body.Render(f.Value))
	}
	return strings.Join(rows, "\n")
}

// RenderWorksheet renders stored worksheet content as numbered sections in
// a card. Content that does not parse is shown verbatim.
func RenderWorksheet(v worksheet.SchemaVersion, content string, themes []string, width int) string {
	inner := width - 6 // border + padding
	if inner < 20 {
		inner = 20
	}

	var b strings.Builder
	b.WriteString(RenderHeader("Hoja de trabajo", v.Name, inner))
	if len(themes) > 0 {
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("Temas: " + strings.Join(themes, ", ")))
	}

	parsed, err := worksheet.ParseContent(content)
	if err != nil {
		b.WriteString("\n\n")
		b.WriteString(theme.Warning.Render("Content is not valid JSON; showing it verbatim."))
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Width(inner).Render(content))
		return theme.Card.Render(b.String())
	}

	item := lipgloss.NewStyle().Foreground(theme.Text).Width(inner - 6)
	for i, s := range v.Sections {
		b.WriteString("\n")
		b.WriteString(theme.SectionHeading.Render(fmt.Sprintf("%d. %s", i+1, s.Title)))
		items := parsed.List(s.Key)
		if len(items) == 0 {
			b.WriteString("\n")
			b.WriteString(theme.Hint.Render("   (empty)"))
			continue
		}
		for j, it := range items {
			b.WriteString("\n")
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
				theme.ItemNumber.Render(fmt.Sprintf("%d.", j+1)), " ", item.Render(it)))
		}
	}
	return theme.Card.Render(b.String())
}
