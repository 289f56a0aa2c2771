package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/contribgraph/pkg/client"
	"github.com/charlie0129/contribgraph/pkg/config"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage the config file",
		GroupID: gAdvanced,
	}

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigShowCommand(),
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		force  bool
		source string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with every setting at its default",
		Long: `Write a config file with every setting at its default.

The format follows the extension of --config: .yaml or .yml for YAML, anything
else for JSON. The token is never written; set GITHUB_TOKEN in the environment
or in a .env file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", configPath)
			}

			raw := config.DefaultRawFileConfig()
			raw.Token = nil
			conf := config.NewFileFromConfig(raw, configPath)
			if source != "" {
				conf.SetSource(source)
			}
			if err := conf.Save(); err != nil {
				return err
			}

			logrus.Infof("wrote default config to %s", configPath)
			if err := conf.Validate(); err != nil {
				cmd.Printf("%s %v\n", bool2Text(false), err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	f.StringVar(&source, "source", "", "upstream to read from (graphql, scrape)")

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		Long: `Print the effective config, defaults and GITHUB_TOKEN included, with the token
redacted. With --server, print the config of the server instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var raw *config.RawFileConfig
			if serverAddr != "" {
				var err error
				raw, err = client.NewClient(serverAddr).GetConfig(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, raw)
			}

			conf, err := loadConfig()
			if err != nil {
				return err
			}
			raw, err = config.NewRawFileConfigFromConfig(conf, false)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, raw); err != nil {
				return err
			}

			cmd.Printf("\n%s\n", bold("Checks:"))
			cmd.Printf("  Token configured: %s\n", bool2Text(conf.Token() != ""))
			verr := conf.Validate()
			cmd.Printf("  Config usable: %s\n", bool2Text(verr == nil))
			if verr != nil {
				cmd.Printf("    %v\n", verr)
			}
			return nil
		},
	}
}
