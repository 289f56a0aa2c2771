package heatmap

import (
	"encoding/json"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/contribgraph/pkg/contrib"
	"github.com/charlie0129/contribgraph/pkg/grid"
)

// Graph is everything needed to draw the heat-map of one user.
type Graph struct {
	Username  string
	Theme     contrib.Theme
	Palette   contrib.Palette
	Grid      grid.Grid
	Months    []grid.MonthLabel
	Total     int
	Source    string
	FetchedAt time.Time
}

type graphJSON struct {
	Username  string            `json:"username"`
	Theme     contrib.Theme     `json:"theme"`
	Source    string            `json:"source"`
	Total     int               `json:"total"`
	FetchedAt time.Time         `json:"fetchedAt"`
	Offset    int               `json:"offset"`
	Columns   int               `json:"columns"`
	Palette   []string          `json:"palette"`
	Cells     []grid.Cell       `json:"cells"`
	Months    []grid.MonthLabel `json:"months"`
}

func (g *Graph) MarshalJSON() ([]byte, error) {
	cells := g.Grid.Cells()
	months := g.Months
	if months == nil {
		months = []grid.MonthLabel{}
	}
	return json.Marshal(graphJSON{
		Username:  g.Username,
		Theme:     g.Theme,
		Source:    g.Source,
		Total:     g.Total,
		FetchedAt: g.FetchedAt,
		Offset:    g.Grid.Offset(),
		Columns:   g.Grid.Columns(),
		Palette:   g.Palette[:],
		Cells:     cells,
		Months:    months,
	})
}

func (g *Graph) UnmarshalJSON(b []byte) error {
	var j graphJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	if len(j.Palette) != contrib.LevelCount {
		return pkgerrors.Errorf("palette has %d colors, want %d", len(j.Palette), contrib.LevelCount)
	}

	gr, err := grid.Restore(j.Cells, j.Offset)
	if err != nil {
		return pkgerrors.Wrap(err, "invalid grid")
	}

	*g = Graph{
		Username:  j.Username,
		Theme:     j.Theme,
		Grid:      gr,
		Months:    j.Months,
		Total:     j.Total,
		Source:    j.Source,
		FetchedAt: j.FetchedAt,
	}
	copy(g.Palette[:], j.Palette)
	return nil
}
