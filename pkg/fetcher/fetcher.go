// Package fetcher retrieves daily contribution counts for a GitHub user from
// one upstream Source and normalizes them into contrib.Day records.
package fetcher

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/contribgraph/pkg/contrib"
)

const (
	// MaxDays is the number of days (53 weeks) a fetch covers at most.
	MaxDays = 371
	// DefaultTimeout bounds one upstream round trip.
	DefaultTimeout = 10 * time.Second

	userAgent = "contribgraph (+https://github.com/charlie0129/contribgraph)"
)

// RawDay is a day as reported by an upstream, before normalization.
type RawDay struct {
	Date  time.Time
	Count int
}

// Source retrieves the raw daily counts of a user with exactly one upstream
// call. Implementations may return days in any order.
type Source interface {
	// Name identifies the source in logs and responses.
	Name() string
	// FetchDays returns the raw days of username. Errors are *contrib.Error.
	FetchDays(ctx context.Context, username string) ([]RawDay, error)
}

// Interface is the capability the rest of the module depends on: fetch the
// normalized days of a user.
type Interface interface {
	Fetch(ctx context.Context, username string, theme contrib.Theme) ([]contrib.Day, error)
	SourceName() string
}

// Fetcher validates the username, calls its Source, and normalizes the result.
type Fetcher struct {
	source  Source
	palette contrib.PaletteFunc
}

var _ Interface = &Fetcher{}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithPalette replaces contrib.PaletteFor as the palette resolver.
func WithPalette(p contrib.PaletteFunc) Option {
	return func(f *Fetcher) {
		if p != nil {
			f.palette = p
		}
	}
}

// New returns a Fetcher reading from source.
func New(source Source, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:  source,
		palette: contrib.PaletteFor,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// SourceName returns the name of the underlying source.
func (f *Fetcher) SourceName() string {
	return f.source.Name()
}

// Fetch returns the days of username in strictly ascending date order, unique
// by date and limited to the MaxDays most recent ones, with level and color
// resolved for theme. An invalid username fails before any network call.
func (f *Fetcher) Fetch(ctx context.Context, username string, theme contrib.Theme) ([]contrib.Day, error) {
	if err := contrib.ValidateUsername(username); err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"source": f.source.Name(),
		"user":   username,
	})
	log.Debug("fetching contributions")

	start := time.Now()
	raw, err := f.source.FetchDays(ctx, username)
	if err != nil {
		log.WithField("kind", contrib.KindOf(err)).Debugf("fetch failed: %v", err)
		return nil, err
	}

	days := Normalize(raw, f.palette(theme))
	log.WithFields(logrus.Fields{
		"days":    len(days),
		"latency": time.Since(start).Milliseconds(),
	}).Debug("contributions fetched")

	return days, nil
}

// Normalize sorts raw ascending by date, keeps the last entry of any repeated
// date, trims to the MaxDays most recent days, and resolves level and color.
func Normalize(raw []RawDay, palette contrib.Palette) []contrib.Day {
	byDate := make(map[time.Time]int, len(raw))
	for _, r := range raw {
		byDate[contrib.CalendarDate(r.Date)] = r.Count
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	if len(dates) > MaxDays {
		dates = dates[len(dates)-MaxDays:]
	}

	days := make([]contrib.Day, 0, len(dates))
	for _, d := range dates {
		days = append(days, contrib.NewDay(d, byDate[d], palette))
	}
	return days
}
