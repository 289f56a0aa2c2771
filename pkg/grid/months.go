package grid

import "time"

// MonthLabel marks the column at which a calendar month starts.
type MonthLabel struct {
	StartAt int    `json:"startAt"`
	Title   string `json:"title"`
}

// minLabelGap is the smallest column distance between the first two labels;
// closer pairs would overlap in the header.
const minLabelGap = 2

// Months returns the month labels of g, ordered by StartAt. Only the row-0
// cell of each of the first 52 columns is examined. When the first two labels
// are less than two columns apart the first one is dropped.
func Months(g Grid) []MonthLabel {
	limit := g.Columns()
	if limit > Weeks {
		limit = Weeks
	}

	labels := make([]MonthLabel, 0, 13)
	var last time.Month
	for i := 0; i < limit && i < len(g.cells); i++ {
		d, ok := g.cells[i].Day()
		if !ok {
			continue
		}
		if m := d.Date.Month(); m != last {
			labels = append(labels, MonthLabel{
				StartAt: i,
				Title:   m.String()[:3],
			})
			last = m
		}
	}

	if len(labels) > 1 && labels[1].StartAt-labels[0].StartAt < minLabelGap {
		labels = labels[1:]
	}

	return labels
}
