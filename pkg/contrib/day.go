package contrib

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format of a calendar date.
const DateLayout = "2006-01-02"

// Level is the intensity bucket of a daily contribution count.
type Level int

const (
	Level0 Level = iota
	Level1
	Level2
	Level3
	Level4

	// LevelCount is the number of intensity levels, and the size of a Palette.
	LevelCount = 5
)

// LevelOf buckets a contribution count: 0 -> 0, 1-3 -> 1, 4-6 -> 2,
// 7-9 -> 3, 10 and above -> 4. Negative counts are treated as 0.
func LevelOf(count int) Level {
	switch {
	case count <= 0:
		return Level0
	case count <= 3:
		return Level1
	case count <= 6:
		return Level2
	case count <= 9:
		return Level3
	default:
		return Level4
	}
}

// Day is one calendar day of contributions. It is a value: copies never share
// state and nothing in this module modifies a Day after NewDay returns it.
type Day struct {
	Date  time.Time
	Count int
	Level Level
	Color string
}

// NewDay builds a Day for date, deriving the level from count and the color
// from palette. The date is truncated to a UTC calendar date.
func NewDay(date time.Time, count int, palette Palette) Day {
	if count < 0 {
		count = 0
	}
	level := LevelOf(count)
	return Day{
		Date:  CalendarDate(date),
		Count: count,
		Level: level,
		Color: palette.Color(level),
	}
}

// CalendarDate strips the clock and location from t, keeping its
// year/month/day as a UTC midnight.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "2006-01-02" date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Tooltip returns the hover text of the day, e.g. "3 contributions on Jan 2, 2006".
func (d Day) Tooltip() string {
	date := d.Date.Format("Jan 2, 2006")
	switch d.Count {
	case 0:
		return "No contributions on " + date
	case 1:
		return "1 contribution on " + date
	default:
		return fmt.Sprintf("%d contributions on %s", d.Count, date)
	}
}

type dayJSON struct {
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Level   Level  `json:"level"`
	Color   string `json:"color"`
	Tooltip string `json:"tooltip"`
}

func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(dayJSON{
		Date:    d.Date.Format(DateLayout),
		Count:   d.Count,
		Level:   d.Level,
		Color:   d.Color,
		Tooltip: d.Tooltip(),
	})
}

func (d *Day) UnmarshalJSON(b []byte) error {
	var raw dayJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return err
	}
	*d = Day{
		Date:  date,
		Count: raw.Count,
		Level: raw.Level,
		Color: raw.Color,
	}
	return nil
}
