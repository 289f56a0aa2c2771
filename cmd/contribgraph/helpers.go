package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/contribgraph/pkg/client"
	"github.com/charlie0129/contribgraph/pkg/config"
	"github.com/charlie0129/contribgraph/pkg/heatmap"
)

func parseUsernameArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("invalid number of arguments: expected a GitHub username")
	}
	return args[0], nil
}

func loadConfig() (*config.File, error) {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return conf, nil
}

// fetchGraph asks the server given by --server, or GitHub directly when there
// is none.
func fetchGraph(ctx context.Context, username, theme string) (*heatmap.Graph, error) {
	if serverAddr != "" {
		return client.NewClient(serverAddr).GetGraph(ctx, username, theme)
	}

	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}
	svc, err := heatmap.NewFromConfig(conf, heatmap.WithCacheTTL(0))
	if err != nil {
		return nil, err
	}
	return svc.Graph(ctx, username, theme)
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	cmd.Println(string(b))
	return nil
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
