package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/contribgraph/pkg/config"
	"github.com/charlie0129/contribgraph/pkg/contrib"
	"github.com/charlie0129/contribgraph/pkg/events"
	"github.com/charlie0129/contribgraph/pkg/fetcher"
	"github.com/charlie0129/contribgraph/pkg/grid"
	"github.com/charlie0129/contribgraph/pkg/heatmap"
	"github.com/charlie0129/contribgraph/pkg/server"
	"github.com/charlie0129/contribgraph/pkg/utils/ptr"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logLevel, configPath, serverAddr = "info", filepath.Join(t.TempDir(), "none.json"), ""

	var out bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, username string, theme contrib.Theme) ([]contrib.Day, error) {
	end := time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)
	raw := make([]fetcher.RawDay, 0, 365)
	for i := 364; i >= 0; i-- {
		raw = append(raw, fetcher.RawDay{Date: end.AddDate(0, 0, -i), Count: 1})
	}
	return fetcher.Normalize(raw, contrib.PaletteFor(theme)), nil
}

func (stubFetcher) SourceName() string { return "stub" }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	conf := config.NewFileFromConfig(&config.RawFileConfig{Source: ptr.To("scrape")}, "")
	s, err := server.New(conf, server.WithServiceFactory(func(conf config.Config, opts ...heatmap.Option) (*heatmap.Service, error) {
		return heatmap.New(stubFetcher{}, opts...), nil
	}))
	require.NoError(t, err)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", "ab", "octo-cat")
	require.NoError(t, err)
	assert.Contains(t, out, "✔ ab")
	assert.Contains(t, out, "✔ octo-cat")

	out, err = run(t, "validate", "ab", "a--b", "-abc")
	assert.ErrorIs(t, err, contrib.ErrInvalidUsername)
	assert.Contains(t, out, "✘ a--b")
	assert.Contains(t, out, "✘ -abc")
}

func TestThemesCommand(t *testing.T) {
	out, err := run(t, "themes", "--json")
	require.NoError(t, err)

	var themes map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &themes))
	assert.Equal(t, "#ebedf0", themes["light"][0])
	assert.Equal(t, "#39d353", themes["dark"][4])
}

func TestConfigInitAndShow(t *testing.T) {
	p := filepath.Join(t.TempDir(), "contribgraph.yaml")
	t.Setenv(config.TokenEnv, "")

	_, err := run(t, "--config", p, "config", "init", "--source", "scrape")
	require.NoError(t, err)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "source: scrape")
	assert.NotContains(t, string(b), "token")

	_, err = run(t, "--config", p, "config", "init")
	assert.Error(t, err, "init must not overwrite without --force")

	out, err := run(t, "--config", p, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"source": "scrape"`)
	assert.Contains(t, out, "Config usable: ✔")
}

func TestGraphCommandViaServer(t *testing.T) {
	ts := newTestServer(t)

	out, err := run(t, "--server", ts.URL, "graph", "octocat", "--json", "--theme", "light")
	require.NoError(t, err)
	var g heatmap.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Equal(t, contrib.ThemeLight, g.Theme)
	assert.Equal(t, grid.Size, g.Grid.Len())
	assert.Equal(t, 361, g.Total)

	out, err = run(t, "--server", ts.URL, "graph", "octocat")
	require.NoError(t, err)
	assert.Contains(t, out, "361 contributions in the last year")

	out, err = run(t, "--server", ts.URL, "months", "octocat", "--json")
	require.NoError(t, err)
	var months []grid.MonthLabel
	require.NoError(t, json.Unmarshal([]byte(out), &months))
	assert.Equal(t, g.Months, months)

	_, err = run(t, "--server", ts.URL, "graph", "bad--name")
	assert.ErrorIs(t, err, contrib.ErrInvalidUsername)
}

func TestGraphCommandMissingCredential(t *testing.T) {
	t.Setenv(config.TokenEnv, "")
	_, err := run(t, "graph", "octocat")
	assert.ErrorIs(t, err, contrib.ErrMissingCredential)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "v"), out)
}

func TestWatchCommand(t *testing.T) {
	_, err := run(t, "watch")
	assert.Error(t, err)

	_, err = run(t, "--server", "127.0.0.1:1", "watch", "--only", "nope")
	assert.ErrorContains(t, err, "unknown event")
}

func TestDescribeEvent(t *testing.T) {
	line, err := describeEvent(events.Event{
		Name: events.GraphBuilt,
		Data: []byte(`{"username":"octocat","theme":"dark","source":"graphql","total":7,"ts":0}`),
	})
	require.NoError(t, err)
	assert.Contains(t, line, "fetched @octocat (dark, graphql): 7 contributions")

	line, err = describeEvent(events.Event{Name: events.CacheFlushed, Data: []byte(`{"reason":"reload","dropped":2}`)})
	require.NoError(t, err)
	assert.Contains(t, line, "cache flushed (reload): 2 graphs dropped")

	_, err = describeEvent(events.Event{Name: events.ConfigReloaded, Data: []byte(`[`)})
	assert.Error(t, err)
}

func TestValidateCommandArgs(t *testing.T) {
	out, err := run(t, "validate", "--", "-abc")
	assert.ErrorIs(t, err, contrib.ErrInvalidUsername)
	assert.Contains(t, out, "✘ -abc")

	out, err = run(t, "validate", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Every argument is taken as a username")

	_, err = run(t, "validate")
	assert.Error(t, err)

	_, err = run(t, "graph", "--", "-abc")
	assert.ErrorIs(t, err, contrib.ErrInvalidUsername)
}
