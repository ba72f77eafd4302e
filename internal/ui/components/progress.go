package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/michaelssavage/spanish-worksheets/internal/ui/theme"
)

// RotationBar shows where the theme cursor sits in the pool rotation.
type RotationBar struct {
	Label    string
	Position int // 1-based pool that will be served next
	Total    int
	Width    int
}

// NewRotationBar creates a rotation bar for the pool at position of total.
func NewRotationBar(label string, position, total, width int) RotationBar {
	return RotationBar{
		Label:    label,
		Position: position,
		Total:    total,
		Width:    width,
	}
}

// Fraction returns the filled share of the bar, clamped to [0, 1].
func (b RotationBar) Fraction() float64 {
	if b.Total <= 0 {
		return 0
	}
	f := float64(b.Position) / float64(b.Total)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// View renders the bar.
func (b RotationBar) View() string {
	var result string

	if b.Label != "" {
		result += theme.Body.Render(b.Label) + "  "
	}

	counter := fmt.Sprintf("  %d/%d", b.Position, b.Total)
	barWidth := b.Width - lipgloss.Width(result) - len(counter)
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth) * b.Fraction())
	empty := barWidth - filled

	result += theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", empty)) +
		theme.Subtitle.Render(counter)

	return result
}
