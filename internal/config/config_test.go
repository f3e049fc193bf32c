package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, cfg.Database.Driver)
	require.Equal(t, "supply_chain.db", cfg.Database.Path)
	require.Equal(t, 5*time.Minute, cfg.LLM.Timeout)
	require.Equal(t, 8000, cfg.LLM.MaxTokens)
	require.Equal(t, 0.5, cfg.Review.TariffRateThreshold)
	require.Equal(t, time.Minute, cfg.Server.Interval)
	require.Equal(t, 10, cfg.Server.MaxTasks)
	require.Empty(t, cfg.Server.Schedules)
	require.ErrorIs(t, cfg.RequireAPIKey(), ErrMissingCredential)
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	p := writeFile(t, "supplyq.yaml", `
database:
  driver: redis
  path: /tmp/x.db
redis:
  addr: redis:6379
review:
  tariff_rate_threshold: 0.25
server:
  interval: 30s
  schedules:
    daily: 24h
    weekly: 168h
log:
  format: json
`)
	t.Setenv("SUPPLYQ_LLM_API_KEY", "from-env")
	t.Setenv("SUPPLYQ_SERVER_MAX_TASKS", "3")

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, DriverRedis, cfg.Database.Driver)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, 0.25, cfg.Review.TariffRateThreshold)
	require.Equal(t, 30*time.Second, cfg.Server.Interval)
	require.Equal(t, 3, cfg.Server.MaxTasks)
	require.Equal(t, map[string]time.Duration{"daily": 24 * time.Hour, "weekly": 168 * time.Hour}, cfg.Server.Schedules)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "from-env", cfg.LLM.APIKey)
	require.NoError(t, cfg.RequireAPIKey())
}

func TestLoad_AnthropicKeyFallback(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "sk-fallback")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "sk-fallback", cfg.LLM.APIKey)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("SUPPLYQ_DATABASE_PATH", "")
	os.Unsetenv("SUPPLYQ_DATABASE_PATH")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SUPPLYQ_DATABASE_PATH=dotenv.db\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "dotenv.db", cfg.Database.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Database.Driver = "postgres"
	bad.Server.MaxTasks = 0
	bad.Log.Output = "syslog"
	bad.Server.Schedules = map[string]time.Duration{"daily": 0}
	err = bad.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "database.driver")
	require.Contains(t, err.Error(), "server.max_tasks")
	require.Contains(t, err.Error(), "log.output")
	require.Contains(t, err.Error(), "server.schedules.daily")

	fileOut := *cfg
	fileOut.Log.Output = "file"
	fileOut.Log.FilePath = ""
	require.Error(t, fileOut.Validate())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PWD", dir)
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
