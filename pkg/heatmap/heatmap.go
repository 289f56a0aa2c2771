// Package heatmap turns a username into a ready-to-draw contribution graph:
// fetch, build the grid, derive the month labels, and cache the result.
package heatmap

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/contribgraph/pkg/cache"
	"github.com/charlie0129/contribgraph/pkg/config"
	"github.com/charlie0129/contribgraph/pkg/contrib"
	"github.com/charlie0129/contribgraph/pkg/events"
	"github.com/charlie0129/contribgraph/pkg/fetcher"
	"github.com/charlie0129/contribgraph/pkg/grid"
)

// DefaultCacheTTL is how long a built graph is served from the cache.
const DefaultCacheTTL = time.Hour

type Service struct {
	fetcher      fetcher.Interface
	cache        *cache.Cache[*Graph]
	ttl          time.Duration
	defaultTheme contrib.Theme
	palette      contrib.PaletteFunc
	hub          *events.EventHub

	now func() time.Time
}

type Option func(*Service)

// WithCache shares c between services, e.g. across config reloads.
func WithCache(c *cache.Cache[*Graph]) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithCacheTTL sets the lifetime of cached graphs. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithDefaultTheme sets the theme used when the caller gives none.
func WithDefaultTheme(t contrib.Theme) Option {
	return func(s *Service) {
		s.defaultTheme = t
	}
}

// WithPalette sets the palette reported with each graph. It should match the
// palette given to the fetcher.
func WithPalette(p contrib.PaletteFunc) Option {
	return func(s *Service) {
		if p != nil {
			s.palette = p
		}
	}
}

// WithEvents publishes a graph.built event to hub for every graph fetched
// from upstream.
func WithEvents(hub *events.EventHub) Option {
	return func(s *Service) {
		s.hub = hub
	}
}

func New(f fetcher.Interface, opts ...Option) *Service {
	s := &Service{
		fetcher:      f,
		ttl:          DefaultCacheTTL,
		defaultTheme: contrib.DefaultTheme,
		palette:      contrib.PaletteFor,
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.cache == nil {
		s.cache = cache.New[*Graph]()
	}
	return s
}

// NewSource returns the fetcher source selected by conf.
func NewSource(conf config.Config) (fetcher.Source, error) {
	switch conf.Source() {
	case config.SourceGraphQL:
		return fetcher.NewGraphQL(conf.GraphQLEndpoint(), conf.Token(), conf.UpstreamTimeout()), nil
	case config.SourceScrape:
		return fetcher.NewScrape(conf.ProfileURL(), conf.UpstreamTimeout()), nil
	default:
		return nil, pkgerrors.Errorf("unknown source %q", conf.Source())
	}
}

// NewFromConfig wires a Service from conf. opts are applied after the
// settings of conf.
func NewFromConfig(conf config.Config, opts ...Option) (*Service, error) {
	src, err := NewSource(conf)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithCacheTTL(conf.CacheTTL()),
		WithDefaultTheme(conf.DefaultTheme()),
	}
	return New(fetcher.New(src), append(base, opts...)...), nil
}

// Cache returns the graph cache, for flushing and purging.
func (s *Service) Cache() *cache.Cache[*Graph] {
	return s.cache
}

// CacheTTL returns how long graphs are cached.
func (s *Service) CacheTTL() time.Duration {
	return s.ttl
}

// SourceName returns the name of the upstream in use.
func (s *Service) SourceName() string {
	return s.fetcher.SourceName()
}

// ParseTheme resolves a theme parameter, using the default theme of s when it
// is blank.
func (s *Service) ParseTheme(themeParam string) (contrib.Theme, error) {
	if strings.TrimSpace(themeParam) == "" {
		return s.defaultTheme, nil
	}
	return contrib.ParseTheme(themeParam)
}

func cacheKey(username string, theme contrib.Theme) string {
	return strings.ToLower(username) + "/" + string(theme)
}

// Graph returns the heat-map of username in themeParam (blank means the
// default theme). Concurrent calls for the same user and theme share one
// upstream fetch, and results are cached for the configured TTL. Errors are
// *contrib.Error and are never cached.
func (s *Service) Graph(ctx context.Context, username, themeParam string) (*Graph, error) {
	theme, err := s.ParseTheme(themeParam)
	if err != nil {
		return nil, err
	}
	if err := contrib.ValidateUsername(username); err != nil {
		return nil, err
	}

	if s.ttl <= 0 {
		return s.build(ctx, username, theme)
	}

	// Shared loads outlive the caller that started them; the upstream
	// timeout still bounds them.
	shared := context.WithoutCancel(ctx)
	load := func() (*Graph, error) {
		return s.build(shared, username, theme)
	}

	g, hit, err := s.cache.Do(ctx, cacheKey(username, theme), s.ttl, load)
	if err != nil {
		var ce *contrib.Error
		if !errors.As(err, &ce) {
			return nil, contrib.WrapError(contrib.KindUpstream, err, "gave up waiting for %s", username)
		}
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user":  username,
		"theme": theme,
		"hit":   hit,
	}).Trace("graph served")

	// The cached graph may carry another spelling of the same login.
	if g.Username != username {
		renamed := *g
		renamed.Username = username
		g = &renamed
	}
	return g, nil
}

func (s *Service) build(ctx context.Context, username string, theme contrib.Theme) (*Graph, error) {
	days, err := s.fetcher.Fetch(ctx, username, theme)
	if err != nil {
		return nil, err
	}

	g, err := grid.Build(days)
	if err != nil {
		return nil, contrib.WrapError(contrib.KindUpstream, err, "failed to build grid")
	}

	graph := &Graph{
		Username:  username,
		Theme:     theme,
		Palette:   s.palette(theme),
		Grid:      g,
		Months:    grid.Months(g),
		Total:     g.Total(),
		Source:    s.fetcher.SourceName(),
		FetchedAt: s.now().UTC(),
	}
	s.hub.Publish(events.GraphBuilt, events.GraphBuiltEvent{
		Username: graph.Username,
		Theme:    string(graph.Theme),
		Source:   graph.Source,
		Total:    graph.Total,
		Ts:       graph.FetchedAt.Unix(),
	})
	return graph, nil
}
