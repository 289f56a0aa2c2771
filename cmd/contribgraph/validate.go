package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charlie0129/contribgraph/pkg/contrib"
)

func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "validate <username>...",
		Short:   "Check usernames against the GitHub username rules",
		GroupID: gBasic,
		Long: `Check usernames against the GitHub username rules without contacting GitHub.

A valid username has 1 to 39 characters, only ASCII letters, digits and
hyphens, does not start or end with a hyphen, and has no two hyphens in a row.

Every argument is taken as a username, including ones starting with a hyphen.`,
		// Names like -abc must reach RunE instead of being parsed as flags.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && args[0] == "--" {
				args = args[1:]
			}
			if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
				return cmd.Help()
			}
			if len(args) == 0 {
				return fmt.Errorf("requires at least 1 username")
			}

			invalid := 0
			for _, u := range args {
				ok := contrib.ValidUsername(u)
				if !ok {
					invalid++
				}
				cmd.Printf("%s %s\n", bool2Text(ok), u)
			}
			if invalid > 0 {
				return contrib.NewError(contrib.KindInvalidUsername, "%d of %d usernames are invalid", invalid, len(args))
			}
			return nil
		},
	}
}
