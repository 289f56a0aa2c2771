// Package service installs contribgraph serve as a systemd user service.
package service

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/sirupsen/logrus"
)

// UnitName is the name of the installed systemd unit.
const UnitName = "contribgraph.service"

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=contribgraph heat-map server
After=network-online.target

[Service]
ExecStart={{ .Executable }} serve --config {{ .ConfigPath }}
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
{{- if .EnvFile }}
EnvironmentFile=-{{ .EnvFile }}
{{- end }}

[Install]
WantedBy=default.target
`))

// Unit describes the service to install.
type Unit struct {
	Executable string
	ConfigPath string
	// EnvFile is loaded by systemd when it exists, e.g. to set GITHUB_TOKEN.
	EnvFile string
}

// Render returns the unit file for u.
func (u Unit) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, u); err != nil {
		return nil, fmt.Errorf("failed to render unit: %w", err)
	}
	return buf.Bytes(), nil
}

// Installer writes units to Dir and drives systemctl.
type Installer struct {
	Dir string
	// Systemctl runs systemctl --user with args.
	Systemctl func(args ...string) error
}

// NewInstaller returns an Installer for the systemd user instance of the
// current user.
func NewInstaller() (*Installer, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to find the user config dir: %w", err)
	}
	return &Installer{
		Dir: filepath.Join(configDir, "systemd", "user"),
		Systemctl: func(args ...string) error {
			out, err := exec.Command("systemctl", append([]string{"--user"}, args...)...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("systemctl %v: %w: %s", args, err, bytes.TrimSpace(out))
			}
			return nil
		},
	}, nil
}

// Path returns where the unit file is written.
func (i *Installer) Path() string {
	return filepath.Join(i.Dir, UnitName)
}

// CurrentExecutable returns the absolute path of the running binary.
func CurrentExecutable() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return "", fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}
	return exePath, nil
}

// Install writes the unit and, if start is set, enables and starts it.
func (i *Installer) Install(u Unit, start bool) error {
	b, err := u.Render()
	if err != nil {
		return err
	}

	// mkdir -p
	err = os.MkdirAll(i.Dir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", i.Dir, err)
	}

	// warn if the file already exists
	_, err = os.Stat(i.Path())
	if err == nil {
		logrus.Warnf("%s already exists, overwriting it", i.Path())
	}

	logrus.Infof("writing systemd unit to %s", i.Path())
	err = os.WriteFile(i.Path(), b, 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", i.Path(), err)
	}

	if !start {
		return nil
	}

	logrus.Infof("starting contribgraph")
	if err := i.Systemctl("daemon-reload"); err != nil {
		return err
	}
	return i.Systemctl("enable", "--now", UnitName)
}
