package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prpoller/internal/domain/model"
)

// allConfigKeys lists every PRPOLLER_ env var that Load() reads.
var allConfigKeys = []string{
	"PRPOLLER_OWNER",
	"PRPOLLER_REPO",
	"PRPOLLER_BRANCHES",
	"PRPOLLER_POLL_INTERVAL",
	"PRPOLLER_USE_TIMESTAMPS",
	"PRPOLLER_CATEGORY",
	"PRPOLLER_BASE_URL",
	"PRPOLLER_PROJECT",
	"PRPOLLER_TOKEN",
	"PRPOLLER_POLL_AT_LAUNCH",
	"PRPOLLER_LISTEN_ADDR",
	"PRPOLLER_DB_PATH",
	"PRPOLLER_DATABASE_URL",
	"PRPOLLER_LOG_LEVEL",
	"PRPOLLER_LOG_FILE",
}

// isolateConfigEnv saves and unsets all PRPOLLER_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores them.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PRPOLLER_OWNER", "defunkt")
	t.Setenv("PRPOLLER_REPO", "buildbot")
	t.Setenv("PRPOLLER_BRANCHES", "master, develop ,")
	t.Setenv("PRPOLLER_POLL_INTERVAL", "10m")
	t.Setenv("PRPOLLER_USE_TIMESTAMPS", "false")
	t.Setenv("PRPOLLER_CATEGORY", "pull")
	t.Setenv("PRPOLLER_BASE_URL", "https://github.example.com/api/v3/")
	t.Setenv("PRPOLLER_PROJECT", "buildbot")
	t.Setenv("PRPOLLER_TOKEN", "ghp_test123")
	t.Setenv("PRPOLLER_POLL_AT_LAUNCH", "true")
	t.Setenv("PRPOLLER_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("PRPOLLER_DB_PATH", "/tmp/test.db")
	t.Setenv("PRPOLLER_LOG_LEVEL", "debug")

	cfg, err := Load()

	require.NoError(t, err)
	p := cfg.Poller
	assert.Equal(t, "defunkt", p.Owner)
	assert.Equal(t, "buildbot", p.Repo)
	assert.Equal(t, []string{"master", "develop"}, p.Branches)
	assert.Equal(t, 10*time.Minute, p.PollInterval)
	assert.False(t, p.UseTimestamps)
	assert.Equal(t, "pull", p.Category.Resolve(model.PullRequest{}))
	assert.Equal(t, "https://github.example.com/api/v3", p.BaseURL)
	assert.Equal(t, "buildbot", p.Project)
	assert.Equal(t, "ghp_test123", p.Token)
	assert.True(t, p.PollAtLaunch)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PRPOLLER_OWNER", "defunkt")
	t.Setenv("PRPOLLER_REPO", "buildbot")

	cfg, err := Load()

	require.NoError(t, err)
	p := cfg.Poller
	assert.Equal(t, []string{"master"}, p.Branches)
	assert.Equal(t, 600*time.Second, p.PollInterval)
	assert.True(t, p.UseTimestamps)
	assert.False(t, p.Category.IsSet())
	assert.True(t, p.Includes(model.PullRequest{}))
	assert.Equal(t, model.DefaultBaseURL, p.BaseURL)
	assert.Equal(t, "", p.Project)
	assert.Equal(t, "", p.Token)
	assert.False(t, p.PollAtLaunch)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "prpoller.db", cfg.DBPath)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.UsePostgres())
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{name: "owner", env: map[string]string{"PRPOLLER_REPO": "buildbot"}, wantMsg: "PRPOLLER_OWNER is required"},
		{name: "repo", env: map[string]string{"PRPOLLER_OWNER": "defunkt"}, wantMsg: "PRPOLLER_REPO is required"},
		{name: "blank owner", env: map[string]string{"PRPOLLER_OWNER": "  ", "PRPOLLER_REPO": "buildbot"}, wantMsg: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, model.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_PollInterval(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Duration
		wantErr bool
	}{
		{value: "600", want: 10 * time.Minute},
		{value: "30", want: 30 * time.Second},
		{value: "1h30m", want: 90 * time.Minute},
		{value: "0", wantErr: true},
		{value: "-5", wantErr: true},
		{value: "-1m", wantErr: true},
		{value: "often", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("PRPOLLER_OWNER", "defunkt")
			t.Setenv("PRPOLLER_REPO", "buildbot")
			t.Setenv("PRPOLLER_POLL_INTERVAL", tt.value)

			cfg, err := Load()

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, model.ErrInvalidConfig)
				assert.Contains(t, err.Error(), "PRPOLLER_POLL_INTERVAL")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Poller.PollInterval)
		})
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PRPOLLER_OWNER", "defunkt")
	t.Setenv("PRPOLLER_REPO", "buildbot")
	t.Setenv("PRPOLLER_LOG_LEVEL", "verbose")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRPOLLER_LOG_LEVEL")
}

func TestLoad_UsePostgres(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{url: "postgres://u:p@localhost:5432/prpoller?sslmode=disable", want: true},
		{url: "postgresql://localhost/prpoller", want: true},
		{url: "", want: false},
		{url: "mysql://localhost/prpoller", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := &Config{DatabaseURL: tt.url}
			assert.Equal(t, tt.want, cfg.UsePostgres())
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	isolateConfigEnv(t)
	path := writeEnvFile(t, "PRPOLLER_OWNER=defunkt\nPRPOLLER_REPO=buildbot\nPRPOLLER_PROJECT=from-file\n")
	t.Setenv("PRPOLLER_PROJECT", "from-env")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "defunkt", cfg.Poller.Owner)
	assert.Equal(t, "from-env", cfg.Poller.Project, "existing environment wins on Load")
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PRPOLLER_OWNER", "defunkt")
	t.Setenv("PRPOLLER_REPO", "buildbot")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.env"))

	require.NoError(t, err)
	assert.Equal(t, "buildbot", cfg.Poller.Repo)
}

func TestReload_OverridesEnvironment(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PRPOLLER_OWNER", "defunkt")
	t.Setenv("PRPOLLER_REPO", "buildbot")
	t.Setenv("PRPOLLER_POLL_INTERVAL", "600")

	path := writeEnvFile(t, "PRPOLLER_REPO=buildbot-fork\nPRPOLLER_POLL_INTERVAL=30\n")

	cfg, err := Reload(path)

	require.NoError(t, err)
	assert.Equal(t, "buildbot-fork", cfg.Poller.Repo)
	assert.Equal(t, 30*time.Second, cfg.Poller.PollInterval)
}
