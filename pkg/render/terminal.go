// Package render draws a contribution graph for a terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/charlie0129/contribgraph/pkg/contrib"
	"github.com/charlie0129/contribgraph/pkg/grid"
	"github.com/charlie0129/contribgraph/pkg/heatmap"
)

const (
	block      = "■"
	cellWidth  = 2
	labelWidth = 4
)

// weekdayLabels are shown on the left of every other row, as on a profile page.
var weekdayLabels = [grid.Rows]string{1: "Mon", 3: "Wed", 5: "Fri"}

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)
)

func swatch(color string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(block)
}

// Header returns the month title line of g, with each title starting above
// its column. A title that would run into the next one is cut short.
func Header(g *heatmap.Graph) string {
	width := labelWidth + g.Grid.Columns()*cellWidth
	line := []rune(strings.Repeat(" ", width))
	for i, m := range g.Months {
		start := labelWidth + m.StartAt*cellWidth
		end := width
		if i+1 < len(g.Months) {
			end = labelWidth + g.Months[i+1].StartAt*cellWidth - 1
		}
		for j, r := range m.Title {
			if start+j >= end {
				break
			}
			line[start+j] = r
		}
	}
	return strings.TrimRight(string(line), " ")
}

// Summary is the line printed under the graph.
func Summary(total int) string {
	if total == 1 {
		return "1 contribution in the last year"
	}
	return fmt.Sprintf("%d contributions in the last year", total)
}

// Legend shows the colors of p from the lowest to the highest level.
func Legend(p contrib.Palette) string {
	var sb strings.Builder
	sb.WriteString(labelStyle.Render("Less "))
	for _, c := range p {
		sb.WriteString(swatch(c))
		sb.WriteString(" ")
	}
	sb.WriteString(labelStyle.Render("More"))
	return sb.String()
}

// Terminal writes the month header, seven weekday rows, and a summary with a
// legend. Empty cells are left blank.
func Terminal(w io.Writer, g *heatmap.Graph) error {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("@" + g.Username))
	sb.WriteString("\n\n")

	sb.WriteString(labelStyle.Render(Header(g)))
	sb.WriteString("\n")

	for row := 0; row < grid.Rows; row++ {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", labelWidth, weekdayLabels[row])))
		for col := 0; col < g.Grid.Columns(); col++ {
			cell, ok := g.Grid.At(row, col)
			d, filled := cell.Day()
			if !ok || !filled {
				sb.WriteString(strings.Repeat(" ", cellWidth))
				continue
			}
			sb.WriteString(swatch(d.Color))
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(Summary(g.Total))
	sb.WriteString("    ")
	sb.WriteString(Legend(g.Palette))
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// Palette writes one line per theme with its swatches and hex colors.
func Palette(w io.Writer, themes map[contrib.Theme]contrib.Palette) error {
	var sb strings.Builder
	for _, t := range contrib.Themes {
		p, ok := themes[t]
		if !ok {
			continue
		}
		sb.WriteString(titleStyle.Render(fmt.Sprintf("%-6s", t)))
		for _, c := range p {
			sb.WriteString(" ")
			sb.WriteString(swatch(c))
			sb.WriteString(" ")
			sb.WriteString(c)
		}
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
