package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/contribgraph/pkg/client"
	"github.com/charlie0129/contribgraph/pkg/config"
	"github.com/charlie0129/contribgraph/pkg/contrib"
)

var (
	logLevel   = "info"
	configPath = "contribgraph.yaml"
	// serverAddr, when set, sends every query to a running server instead of
	// calling GitHub directly.
	serverAddr = ""
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	var ce *contrib.Error
	switch {
	case errors.Is(err, client.ErrServerNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: contribgraph server is not running")
		fmt.Fprintf(os.Stderr, "Is the server listening on %s? Start it with 'contribgraph serve'.\n", serverAddr)
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Check the permissions of the server socket")
	case errors.As(err, &ce):
		fmt.Fprintln(os.Stderr, "\n"+color.RedString(contrib.HumanMessage(err)))
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contribgraph",
		Short: "contribgraph draws the GitHub contribution heat-map of a user",
		Long: `contribgraph draws the GitHub contribution heat-map of a user.

It reads the daily contribution counts of the last year from GitHub, either
through the GraphQL API (needs GITHUB_TOKEN) or from the public profile page,
and lays them out as the familiar 7-row calendar. Run 'contribgraph serve' to
expose the same data over HTTP for web pages.

Website: https://github.com/charlie0129/contribgraph
Report issues: https://github.com/charlie0129/contribgraph/issues`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			if err := config.LoadEnv(); err != nil {
				logrus.Warnf("failed to load env files: %v", err)
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path (.json, .yaml or .yml)")
	globalFlags.StringVar(&serverAddr, "server", serverAddr, "query a running contribgraph server (host:port, URL or unix:<path>) instead of GitHub")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewGraphCommand(),
		NewMonthsCommand(),
		NewValidateCommand(),
		NewThemesCommand(),
		NewServeCommand(),
		NewConfigCommand(),
		NewWatchCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
		NewVersionCommand(),
	)

	return cmd
}
