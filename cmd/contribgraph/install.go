package main

import (
	"fmt"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/contribgraph/pkg/config"
	"github.com/charlie0129/contribgraph/pkg/utils/service"
)

var gInstallation = "Installation:"

func init() {
	commandGroups = append(commandGroups, gInstallation)
}

func NewInstallCommand() *cobra.Command {
	var (
		noStart bool
		envFile string
	)

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install the server as a systemd user service",
		GroupID: gInstallation,
		Long: `Install 'contribgraph serve' as a systemd user service.

The service starts on login and reloads its config on 'systemctl --user reload
contribgraph'. The config file given by --config is written with defaults if it
does not exist yet. Put GITHUB_TOKEN in the file given by --env-file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			absConfig, err := filepath.Abs(configPath)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", configPath, err)
			}

			if _, err := os.Stat(absConfig); os.IsNotExist(err) {
				raw := config.DefaultRawFileConfig()
				raw.Token = nil
				if err := config.NewFileFromConfig(raw, absConfig).Save(); err != nil {
					return pkgerrors.Wrapf(err, "failed to save config")
				}
				logrus.Infof("wrote default config to %s", absConfig)
			}

			conf, err := config.NewFile(absConfig)
			if err != nil {
				return err
			}
			if err := conf.Validate(); err != nil {
				logrus.WithError(err).Warn("config is not fully usable, the server will report errors until it is fixed")
			}

			exePath, err := service.CurrentExecutable()
			if err != nil {
				return err
			}
			unit := service.Unit{Executable: exePath, ConfigPath: absConfig}
			if envFile != "" {
				if unit.EnvFile, err = filepath.Abs(envFile); err != nil {
					return fmt.Errorf("failed to resolve %s: %w", envFile, err)
				}
			}

			installer, err := service.NewInstaller()
			if err != nil {
				return err
			}
			if err := installer.Install(unit, !noStart); err != nil {
				return fmt.Errorf("failed to install service: %w", err)
			}

			cmd.Printf("Installed %s. Listening on %s.\n", bold("%s", installer.Path()), conf.Listen())
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&noStart, "no-start", false, "only write the unit file")
	f.StringVar(&envFile, "env-file", "", "environment file loaded by systemd, e.g. holding GITHUB_TOKEN")

	return cmd
}

func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Stop and remove the systemd user service",
		GroupID: gInstallation,
		Long: `Stop and remove the systemd user service.

The config file is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			installer, err := service.NewInstaller()
			if err != nil {
				return err
			}
			if err := installer.Uninstall(); err != nil {
				return fmt.Errorf("failed to uninstall service: %w", err)
			}
			cmd.Println("Uninstalled contribgraph.")
			return nil
		},
	}
}
