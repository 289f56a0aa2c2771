// Package grid arranges a chronological list of days into the week-aligned
// 7-row layout of a contribution calendar, and derives the month labels shown
// above it.
package grid

import (
	"encoding/json"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/contribgraph/pkg/contrib"
)

const (
	// Rows is the number of weekdays, Sunday (row 0) to Saturday (row 6).
	Rows = 7
	// Weeks is the number of week columns of a full grid.
	Weeks = 52
	// Size is the number of cells of a full grid.
	Size = Rows * Weeks
)

// Cell is either an empty placeholder or a filled day.
type Cell struct {
	day    contrib.Day
	filled bool
}

// Empty returns a placeholder cell. It has no color and no tooltip.
func Empty() Cell {
	return Cell{}
}

// Filled returns a cell holding d.
func Filled(d contrib.Day) Cell {
	return Cell{day: d, filled: true}
}

// Day returns the day of the cell and whether the cell is filled.
func (c Cell) Day() (contrib.Day, bool) {
	return c.day, c.filled
}

// IsEmpty reports whether c is a placeholder.
func (c Cell) IsEmpty() bool {
	return !c.filled
}

// MarshalJSON encodes empty cells as null.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.filled {
		return []byte("null"), nil
	}
	return json.Marshal(c.day)
}

func (c *Cell) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = Empty()
		return nil
	}
	var d contrib.Day
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	*c = Filled(d)
	return nil
}

// Grid is the display ordered sequence of cells. Internally the days form a
// week-aligned buffer where buffer index i sits at row i%7 and column i/7;
// the Grid stores that buffer re-linearized row by row: every row-0 cell from
// the oldest to the newest week, then every row-1 cell, and so on.
//
// A Grid is never modified after Build returns it.
type Grid struct {
	cells   []Cell
	offset  int
	columns int
}

// Build arranges days, which must be in strictly ascending date order, into a
// Grid. The most recent day decides the alignment: offset = 6 - weekday(latest)
// empty cells are appended after it so that the last column ends on a
// Saturday, and the 364-offset most recent days fill the rest. Fewer days
// yield a shorter grid with no further padding.
func Build(days []contrib.Day) (Grid, error) {
	if len(days) == 0 {
		return Grid{}, nil
	}
	for i := 1; i < len(days); i++ {
		if !days[i].Date.After(days[i-1].Date) {
			return Grid{}, pkgerrors.Errorf("days must be in strictly ascending order: %s at index %d follows %s",
				days[i].Date.Format(contrib.DateLayout), i, days[i-1].Date.Format(contrib.DateLayout))
		}
	}

	latest := days[len(days)-1]
	offset := Rows - 1 - int(latest.Date.Weekday())

	take := Size - offset
	if take > len(days) {
		take = len(days)
	}

	buf := make([]Cell, 0, take+offset)
	for _, d := range days[len(days)-take:] {
		buf = append(buf, Filled(d))
	}
	for i := 0; i < offset; i++ {
		buf = append(buf, Empty())
	}

	cells := make([]Cell, 0, len(buf))
	for r := 0; r < Rows; r++ {
		for j := r; j < len(buf); j += Rows {
			cells = append(cells, buf[j])
		}
	}

	return Grid{
		cells:   cells,
		offset:  offset,
		columns: (len(buf) + Rows - 1) / Rows,
	}, nil
}

// Restore rebuilds a Grid from cells in display order, as returned by Cells,
// and the offset reported with them.
func Restore(cells []Cell, offset int) (Grid, error) {
	if offset < 0 || offset >= Rows {
		return Grid{}, pkgerrors.Errorf("offset %d out of range [0, %d)", offset, Rows)
	}
	if len(cells) > Size {
		return Grid{}, pkgerrors.Errorf("%d cells exceed the grid size %d", len(cells), Size)
	}
	if len(cells) == 0 {
		return Grid{}, nil
	}
	out := make([]Cell, len(cells))
	copy(out, cells)
	return Grid{
		cells:   out,
		offset:  offset,
		columns: (len(out) + Rows - 1) / Rows,
	}, nil
}

// Cells returns a copy of the cells in display order.
func (g Grid) Cells() []Cell {
	out := make([]Cell, len(g.cells))
	copy(out, g.cells)
	return out
}

// Len returns the number of cells, placeholders included.
func (g Grid) Len() int {
	return len(g.cells)
}

// Offset returns the number of trailing placeholders after the latest day.
func (g Grid) Offset() int {
	return g.offset
}

// Columns returns the number of week columns.
func (g Grid) Columns() int {
	return g.columns
}

// Empty reports whether the grid has no cells at all.
func (g Grid) Empty() bool {
	return len(g.cells) == 0
}

// rowLen is the number of cells in row r.
func (g Grid) rowLen(r int) int {
	n := len(g.cells)
	if r >= n {
		return 0
	}
	return (n - r + Rows - 1) / Rows
}

// At returns the cell at row (0..6) and column. ok is false outside the grid.
func (g Grid) At(row, col int) (cell Cell, ok bool) {
	if row < 0 || row >= Rows || col < 0 || col >= g.rowLen(row) {
		return Cell{}, false
	}
	start := 0
	for r := 0; r < row; r++ {
		start += g.rowLen(r)
	}
	return g.cells[start+col], true
}

// Total returns the sum of the counts of every filled cell.
func (g Grid) Total() int {
	total := 0
	for _, c := range g.cells {
		if d, ok := c.Day(); ok {
			total += d.Count
		}
	}
	return total
}
