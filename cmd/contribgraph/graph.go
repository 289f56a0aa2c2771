package main

import (
	"github.com/spf13/cobra"

	"github.com/charlie0129/contribgraph/pkg/client"
	"github.com/charlie0129/contribgraph/pkg/grid"
	"github.com/charlie0129/contribgraph/pkg/heatmap"
	"github.com/charlie0129/contribgraph/pkg/render"
)

func NewGraphCommand() *cobra.Command {
	var (
		theme    string
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:     "graph <username>",
		Short:   "Draw the contribution heat-map of a user",
		GroupID: gBasic,
		Long: `Draw the contribution heat-map of a user.

The last 52 weeks are shown as 7 rows, Sunday at the top, with the newest week
on the right. Use --json to print the grid, colors and month labels instead.
Put -- before a username that starts with a hyphen.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := parseUsernameArg(args)
			if err != nil {
				return err
			}

			g, err := fetchGraph(cmd.Context(), username, theme)
			if err != nil {
				return err
			}

			if jsonMode {
				return printJSON(cmd, g)
			}
			return render.Terminal(cmd.OutOrStdout(), g)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&theme, "theme", "t", "", "color theme (light, dark); defaults to the configured theme")
	f.BoolVar(&jsonMode, "json", false, "print the graph as JSON")

	return cmd
}

func NewMonthsCommand() *cobra.Command {
	var jsonMode bool

	cmd := &cobra.Command{
		Use:     "months <username>",
		Short:   "Print the month labels of the heat-map of a user",
		GroupID: gBasic,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := parseUsernameArg(args)
			if err != nil {
				return err
			}

			var months []grid.MonthLabel
			if serverAddr != "" {
				months, err = client.NewClient(serverAddr).GetMonths(cmd.Context(), username, "")
			} else {
				var g *heatmap.Graph
				g, err = fetchGraph(cmd.Context(), username, "")
				if g != nil {
					months = g.Months
				}
			}
			if err != nil {
				return err
			}

			if jsonMode {
				if months == nil {
					months = []grid.MonthLabel{}
				}
				return printJSON(cmd, months)
			}

			for _, m := range months {
				cmd.Printf("%3d  %s\n", m.StartAt, m.Title)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonMode, "json", false, "print the labels as JSON")

	return cmd
}
