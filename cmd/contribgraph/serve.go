package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/contribgraph/pkg/server"
	"github.com/charlie0129/contribgraph/pkg/version"
)

func NewServeCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the contribgraph HTTP server in the foreground",
		GroupID: gAdvanced,
		Long: `Run the contribgraph HTTP server in the foreground.

Send SIGHUP to reload the config file and drop all cached graphs.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("contribgraph server starting")
			return server.Run(configPath, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (host:port or unix:<path>), overrides the config file")

	return cmd
}
