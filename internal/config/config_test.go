package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "acqsim.toml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, FrameworkGin, cfg.Server.Framework)
	assert.Equal(t, "default", cfg.Simulator.DefaultRunID)
	assert.Equal(t, "Wowee", cfg.Simulator.PlaceholderRunID)
	assert.Equal(t, 4, cfg.Simulator.StreamBuffer)
	assert.Equal(t, uint64(0), cfg.Simulator.Seed)
	assert.Equal(t, "info", cfg.Log.Slog.Level)
	assert.True(t, cfg.Log.Slog.TimeStamps)
	assert.Equal(t, 10, cfg.Log.File.MaxSizeMB)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Listen)
	assert.False(t, cfg.AutoTick.Enabled)
	assert.Equal(t, "@every 2s", cfg.AutoTick.Schedule)
	assert.False(t, cfg.History.Enabled)
}

func TestLoadFromTOML(t *testing.T) {
	p := writeTOML(t, `
[server]
listen = "127.0.0.1:7000"
base_path = "/rpc"
framework = "echo"

[simulator]
default_run_id = "run-main"
stream_buffer = -1
seed = 42

[log]
level = "debug"
format = "json"
timestamps = false

[log.file]
path = "/tmp/acqsim.log"
max_backups = 9

[metrics]
enabled = true
listen = ":9191"

[autotick]
enabled = true
schedule = "@every 5s"
runs = ["run-main", "run-b"]

[history]
enabled = true
dsns = ["sqlite://:memory:"]
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Listen)
	assert.Equal(t, "/rpc", cfg.Server.BasePath)
	assert.Equal(t, FrameworkEcho, cfg.Server.Framework)
	assert.Equal(t, "run-main", cfg.Simulator.DefaultRunID)
	assert.Equal(t, "Wowee", cfg.Simulator.PlaceholderRunID)
	assert.Equal(t, -1, cfg.Simulator.StreamBuffer)
	assert.Equal(t, uint64(42), cfg.Simulator.Seed)
	assert.Equal(t, "debug", cfg.Log.Slog.Level)
	assert.Equal(t, "json", cfg.Log.Slog.Format)
	assert.False(t, cfg.Log.Slog.TimeStamps)
	assert.Equal(t, "/tmp/acqsim.log", cfg.Log.File.Path)
	assert.Equal(t, 9, cfg.Log.File.MaxBackups)
	assert.Equal(t, 7, cfg.Log.File.MaxAgeDays)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9191", cfg.Metrics.Listen)
	assert.True(t, cfg.AutoTick.Enabled)
	assert.Equal(t, "@every 5s", cfg.AutoTick.Schedule)
	assert.Equal(t, []string{"run-main", "run-b"}, cfg.AutoTick.Runs)
	assert.Equal(t, []string{"sqlite://:memory:"}, cfg.History.DSNs)
}

func TestEnvOverrides(t *testing.T) {
	p := writeTOML(t, `
[server]
listen = ":1111"
`)
	t.Setenv("ACQSIM_SERVER_LISTEN", ":2222")
	t.Setenv("ACQSIM_SIMULATOR_DEFAULT_RUN_ID", "from-env")
	t.Setenv("ACQSIM_LOG_LEVEL", "warn")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":2222", cfg.Server.Listen)
	assert.Equal(t, "from-env", cfg.Simulator.DefaultRunID)
	assert.Equal(t, "warn", cfg.Log.Slog.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("/definitely/not/exist.toml")
	assert.Error(t, err)

	bad := writeTOML(t, "[server\nlisten=")
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"bad framework", "[server]\nframework = \"chi\"\n"},
		{"empty listen", "[server]\nlisten = \"\"\n"},
		{"unsafe default run", "[simulator]\ndefault_run_id = \"../etc\"\n"},
		{"bad log level", "[log]\nlevel = \"loud\"\n"},
		{"metrics without listen", "[metrics]\nenabled = true\nlisten = \"\"\n"},
		{"autotick without runs", "[autotick]\nenabled = true\n"},
		{"autotick bad schedule", "[autotick]\nenabled = true\nschedule = \"soon\"\nruns = [\"a\"]\n"},
		{"autotick unsafe run", "[autotick]\nenabled = true\nruns = [\"a/b\"]\n"},
		{"history without dsns", "[history]\nenabled = true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTOML(t, tt.toml))
			assert.Error(t, err)
		})
	}
}

func TestDisabledSectionsAreNotValidated(t *testing.T) {
	_, err := Load(writeTOML(t, "[autotick]\nenabled = false\nschedule = \"soon\"\n"))
	assert.NoError(t, err)
}
