package main

import (
	"github.com/spf13/cobra"

	"github.com/charlie0129/contribgraph/pkg/client"
	"github.com/charlie0129/contribgraph/pkg/contrib"
	"github.com/charlie0129/contribgraph/pkg/render"
)

func NewThemesCommand() *cobra.Command {
	var jsonMode bool

	cmd := &cobra.Command{
		Use:     "themes",
		Short:   "Show the color palettes of the themes",
		GroupID: gBasic,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			themes := make(map[contrib.Theme]contrib.Palette, len(contrib.Themes))
			if serverAddr != "" {
				var err error
				themes, err = client.NewClient(serverAddr).GetThemes(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				for _, t := range contrib.Themes {
					themes[t] = contrib.PaletteFor(t)
				}
			}

			if jsonMode {
				return printJSON(cmd, themes)
			}
			return render.Palette(cmd.OutOrStdout(), themes)
		},
	}

	cmd.Flags().BoolVar(&jsonMode, "json", false, "print the palettes as JSON")

	return cmd
}
