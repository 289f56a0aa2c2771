package client

import (
	"context"
	"encoding/json"
	"net/url"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/contribgraph/pkg/config"
	"github.com/charlie0129/contribgraph/pkg/contrib"
	"github.com/charlie0129/contribgraph/pkg/grid"
	"github.com/charlie0129/contribgraph/pkg/heatmap"
)

func userPath(username, resource, theme string) string {
	p := "/api/v1/users/" + url.PathEscape(username) + "/" + resource
	if theme != "" {
		p += "?" + url.Values{"theme": {theme}}.Encode()
	}
	return p
}

// GetGraph returns the heat-map of username. An empty theme lets the server
// pick its default.
func (c *Client) GetGraph(ctx context.Context, username, theme string) (*heatmap.Graph, error) {
	ret, err := c.Get(ctx, userPath(username, "contributions", theme))
	if err != nil {
		return nil, err
	}

	var g heatmap.Graph
	if err := json.Unmarshal(ret, &g); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal graph")
	}
	return &g, nil
}

func (c *Client) GetMonths(ctx context.Context, username, theme string) ([]grid.MonthLabel, error) {
	ret, err := c.Get(ctx, userPath(username, "months", theme))
	if err != nil {
		return nil, err
	}

	var months []grid.MonthLabel
	if err := json.Unmarshal(ret, &months); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal month labels")
	}
	return months, nil
}

func (c *Client) GetThemes(ctx context.Context) (map[contrib.Theme]contrib.Palette, error) {
	ret, err := c.Get(ctx, "/api/v1/themes")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get themes")
	}

	var raw map[contrib.Theme][]string
	if err := json.Unmarshal(ret, &raw); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal themes")
	}

	themes := make(map[contrib.Theme]contrib.Palette, len(raw))
	for t, colors := range raw {
		if len(colors) != contrib.LevelCount {
			return nil, pkgerrors.Errorf("theme %s has %d colors, want %d", t, len(colors), contrib.LevelCount)
		}
		var p contrib.Palette
		copy(p[:], colors)
		themes[t] = p
	}
	return themes, nil
}

func (c *Client) GetConfig(ctx context.Context) (*config.RawFileConfig, error) {
	ret, err := c.Get(ctx, "/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal(ret, &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) GetVersion(ctx context.Context) (string, error) {
	ret, err := c.Get(ctx, "/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}

	var v string
	if err := json.Unmarshal(ret, &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}
