package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into dir for the rest of the test so no stray config.yaml is picked up
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 6, cfg.Game.MaxPlayers)
	assert.Equal(t, 1500, cfg.Game.InitialBalance)
	assert.Equal(t, 200, cfg.Game.PassGoReward)
	assert.Equal(t, "move", cfg.Game.JailRelease)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.JWT.Enabled)
	assert.True(t, cfg.MongoDB.Transactions)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  driver: postgres
postgres:
  dsn: postgres://localhost/game
game:
  jail_release: skip
  max_players: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("GAME_INITIAL_BALANCE", "2000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/game", cfg.Postgres.DSN)
	assert.Equal(t, "skip", cfg.Game.JailRelease)
	assert.Equal(t, 4, cfg.Game.MaxPlayers)
	assert.Equal(t, 2000, cfg.Game.InitialBalance)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		chdir(t, t.TempDir())
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }},
		{"unknown jail rule", func(c *Config) { c.Game.JailRelease = "pay" }},
		{"single player table", func(c *Config) { c.Game.MaxPlayers = 1 }},
		{"jwt without secret", func(c *Config) { c.JWT.Enabled = true; c.JWT.Secret = "" }},
		{"redis without addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = "postgres"; c.Postgres.DSN = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
