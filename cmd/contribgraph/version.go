package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/contribgraph/pkg/client"
	"github.com/charlie0129/contribgraph/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)

			if serverAddr == "" {
				return
			}
			serverVersion, err := client.NewClient(serverAddr).GetVersion(cmd.Context())
			if err != nil {
				logrus.Warnf("failed to get server version: %v", err)
				return
			}
			cmd.Printf("server: %s\n", serverVersion)
			if serverVersion != version.Version {
				logrus.WithFields(logrus.Fields{
					"clientVersion": version.Version,
					"serverVersion": serverVersion,
				}).Warn("Version mismatch between client and server. Responses may not decode as expected.")
			}
		},
	}
}
