package service

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls [][]string
	fail  string
}

func (r *recorder) systemctl(args ...string) error {
	r.calls = append(r.calls, args)
	if r.fail != "" && args[0] == r.fail {
		return errors.New("boom")
	}
	return nil
}

func TestRender(t *testing.T) {
	b, err := Unit{Executable: "/usr/bin/contribgraph", ConfigPath: "/etc/cg.yaml"}.Render()
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, "ExecStart=/usr/bin/contribgraph serve --config /etc/cg.yaml\n")
	assert.Contains(t, s, "ExecReload=/bin/kill -HUP $MAINPID\n")
	assert.NotContains(t, s, "EnvironmentFile")

	b, err = Unit{Executable: "x", ConfigPath: "y", EnvFile: "/home/me/.env"}.Render()
	require.NoError(t, err)
	assert.Contains(t, string(b), "Restart=on-failure\nEnvironmentFile=-/home/me/.env\n\n[Install]")
}

func TestInstallUninstall(t *testing.T) {
	r := &recorder{}
	i := &Installer{Dir: filepath.Join(t.TempDir(), "systemd", "user"), Systemctl: r.systemctl}

	require.NoError(t, i.Install(Unit{Executable: "/bin/cg", ConfigPath: "/c.yaml"}, false))
	b, err := os.ReadFile(i.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "[Unit]"))
	assert.Empty(t, r.calls, "no systemctl calls without start")

	require.NoError(t, i.Install(Unit{Executable: "/bin/cg", ConfigPath: "/c.yaml"}, true))
	assert.Equal(t, [][]string{{"daemon-reload"}, {"enable", "--now", UnitName}}, r.calls)

	r.calls = nil
	r.fail = "disable"
	require.NoError(t, i.Uninstall())
	assert.Equal(t, [][]string{{"disable", "--now", UnitName}, {"daemon-reload"}}, r.calls)
	_, err = os.Stat(i.Path())
	assert.True(t, os.IsNotExist(err))

	r.calls = nil
	require.NoError(t, i.Uninstall())
	assert.Empty(t, r.calls)
}
