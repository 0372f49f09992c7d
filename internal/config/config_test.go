package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvWithoutFile(t *testing.T) {
	// Arrange
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_HOST", "db")
	t.Setenv("DATABASE_USER", "trivia")
	t.Setenv("DATABASE_DBNAME", "trivia")
	t.Setenv("GAME_OPERATION_TIMEOUT", "2s")

	// Act
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	// Assert
	require.NoError(t, err, "Отсутствие файла не ошибка, если env заданы")
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 2*time.Second, cfg.Game.OperationTimeout)
	assert.Equal(t, 3, cfg.Game.ToggleRetryAttempts, "Значение по умолчанию")
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Contains(t, cfg.Database.PostgresConnectionString(), "host=db")
}

func TestLoad_FromFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
database:
  driver: memory
jwt:
  secret: file-secret
game:
  scoreboard_cache_ttl: 10s
websocket:
  client_buffer: 64
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.True(t, cfg.Database.IsMemory())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, 10*time.Second, cfg.Game.ScoreboardCacheTTL)
	assert.Equal(t, 64, cfg.WebSocket.ClientBuffer)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{Driver: DriverMemory},
			JWT:      JWTConfig{Secret: "s"},
			Game:     GameConfig{ToggleRetryAttempts: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"валидная конфигурация", func(c *Config) {}, ""},
		{"нет секрета", func(c *Config) { c.JWT.Secret = "" }, "jwt secret"},
		{"неполный postgres", func(c *Config) { c.Database.Driver = DriverPostgres }, "database configuration"},
		{"неизвестный драйвер", func(c *Config) { c.Database.Driver = "sqlite" }, "unsupported database driver"},
		{"redis без адреса", func(c *Config) { c.Redis.Enabled = true }, "no address"},
		{"кластер без redis", func(c *Config) { c.WebSocket.Cluster.Enabled = true }, "requires redis"},
		{"rate limit без redis", func(c *Config) { c.RateLimit.Enabled = true }, "requires redis"},
		{"нет попыток", func(c *Config) { c.Game.ToggleRetryAttempts = 0 }, "toggle_retry_attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
