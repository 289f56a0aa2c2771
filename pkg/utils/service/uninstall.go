package service

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Uninstall stops and disables the unit, then removes its file. A missing
// unit file is not an error.
func (i *Installer) Uninstall() error {
	// if the file doesn't exist, there is nothing to stop
	_, err := os.Stat(i.Path())
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Infof("%s does not exist, nothing to uninstall", i.Path())
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", i.Path(), err)
	}

	logrus.Infof("stopping contribgraph")
	if err := i.Systemctl("disable", "--now", UnitName); err != nil {
		logrus.WithError(err).Warn("failed to stop the service, removing it anyway")
	}

	logrus.Infof("removing systemd unit")
	err = os.Remove(i.Path())
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", i.Path(), err)
	}

	return i.Systemctl("daemon-reload")
}
