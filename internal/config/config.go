package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Драйверы хранилища
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Game      GameConfig      `mapstructure:"game"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки хранилища
type DatabaseConfig struct {
	// Driver: "postgres" (по умолчанию) или "memory" (данные в памяти процесса, для разработки)
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	// ConnectTimeout: сколько времени пытаться подключиться к БД при старте
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationsPath: каталог SQL миграций
	MigrationsPath string `mapstructure:"migrations_path"`
	// FixturePath: JSON с начальными данными для драйвера "memory"
	FixturePath string `mapstructure:"fixture_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Enabled: без Redis отключаются кеш табло, rate limiting и кластерная рассылка
	Enabled bool `mapstructure:"enabled"`

	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт).
	Addrs []string `mapstructure:"addrs"`

	// Addr: адрес для режима 'single', используется, если Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`

	// KeyPrefix: префикс всех ключей кеша
	KeyPrefix string `mapstructure:"key_prefix"`
}

// JWTConfig содержит настройки проверки токенов сессии
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
	// TTL используется только при выпуске токенов (dev и тесты)
	TTL time.Duration `mapstructure:"ttl"`
}

// GameConfig содержит настройки проведения игры
type GameConfig struct {
	// OperationTimeout ограничивает каждую операцию над игрой
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	// ToggleRetryAttempts: сколько раз переключение флагов повторяется при конкурентном изменении состояния
	ToggleRetryAttempts int           `mapstructure:"toggle_retry_attempts"`
	ToggleRetryMin      time.Duration `mapstructure:"toggle_retry_min"`
	ToggleRetryMax      time.Duration `mapstructure:"toggle_retry_max"`
	// ScoreboardCacheTTL: время жизни кеша табло для игроков
	ScoreboardCacheTTL time.Duration `mapstructure:"scoreboard_cache_ttl"`
	// JoinURLBase: адрес страницы подключения, к которому добавляется код игры (для QR)
	JoinURLBase string `mapstructure:"join_url_base"`
}

// WebSocketConfig содержит настройки WebSocket-подсистемы
type WebSocketConfig struct {
	ClientBuffer   int           `mapstructure:"client_buffer"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	Cluster        ClusterConfig `mapstructure:"cluster"`
}

// ClusterConfig содержит настройки рассылки событий между экземплярами через Redis Pub/Sub
type ClusterConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	InstanceID       string `mapstructure:"instance_id"`
	BroadcastChannel string `mapstructure:"broadcast_channel"`
}

// RateLimitConfig содержит настройки ограничения запросов игроков
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// LogConfig содержит настройки логирования
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// IsMemory проверяет, используется ли хранилище в памяти
func (d *DatabaseConfig) IsMemory() bool {
	return d.Driver == DriverMemory
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15*time.Second)
	vip.SetDefault("server.write_timeout", 15*time.Second)
	vip.SetDefault("server.request_timeout", 10*time.Second)
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})

	vip.SetDefault("database.driver", DriverPostgres)
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.connect_timeout", 30*time.Second)
	vip.SetDefault("database.migrations_path", "migrations")

	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.key_prefix", "trivia")

	vip.SetDefault("jwt.issuer", "trivia-host")
	vip.SetDefault("jwt.ttl", 12*time.Hour)

	vip.SetDefault("game.operation_timeout", 5*time.Second)
	vip.SetDefault("game.toggle_retry_attempts", 3)
	vip.SetDefault("game.toggle_retry_min", 20*time.Millisecond)
	vip.SetDefault("game.toggle_retry_max", 200*time.Millisecond)
	vip.SetDefault("game.scoreboard_cache_ttl", 5*time.Second)

	vip.SetDefault("websocket.client_buffer", 128)
	vip.SetDefault("websocket.max_message_size", 4096)
	vip.SetDefault("websocket.write_wait", 10*time.Second)
	vip.SetDefault("websocket.pong_wait", 30*time.Second)
	vip.SetDefault("websocket.cluster.broadcast_channel", "trivia:ws:broadcast")

	vip.SetDefault("rate_limit.max_requests", 60)
	vip.SetDefault("rate_limit.window", time.Minute)

	vip.SetDefault("log.level", "info")
	vip.SetDefault("log.format", "json")
}

func bindEnv(vip *viper.Viper) {
	// Привязываем переменные окружения ЯВНО
	bindings := map[string]string{
		"server.port":            "SERVER_PORT",
		"server.request_timeout": "SERVER_REQUEST_TIMEOUT",

		"database.driver":       "DATABASE_DRIVER",
		"database.host":         "DATABASE_HOST",
		"database.port":         "DATABASE_PORT",
		"database.user":         "DATABASE_USER",
		"database.password":     "DATABASE_PASSWORD",
		"database.dbname":       "DATABASE_DBNAME",
		"database.sslmode":      "DATABASE_SSLMODE",
		"database.fixture_path": "DATABASE_FIXTURE_PATH",

		"redis.enabled":     "REDIS_ENABLED",
		"redis.mode":        "REDIS_MODE",
		"redis.addrs":       "REDIS_ADDRS",
		"redis.addr":        "REDIS_ADDR",
		"redis.password":    "REDIS_PASSWORD",
		"redis.db":          "REDIS_DB",
		"redis.master_name": "REDIS_MASTER_NAME",

		"jwt.secret": "JWT_SECRET",
		"jwt.issuer": "JWT_ISSUER",

		"game.operation_timeout": "GAME_OPERATION_TIMEOUT",
		"game.join_url_base":     "GAME_JOIN_URL_BASE",

		"websocket.cluster.enabled":     "WEBSOCKET_CLUSTER_ENABLED",
		"websocket.cluster.instance_id": "WEBSOCKET_CLUSTER_INSTANCE_ID",

		"rate_limit.enabled": "RATE_LIMIT_ENABLED",

		"log.level":  "LOG_LEVEL",
		"log.format": "LOG_FORMAT",
	}
	for key, env := range bindings {
		if err := vip.BindEnv(key, env); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("[Config] Не удалось привязать переменную окружения")
		}
	}
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, без глобального состояния

	setDefaults(vip)
	bindEnv(vip)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файл необязателен: все ключи можно задать через env
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				log.Info().Str("path", configPath).Msg("[Config] Файл конфигурации не найден, используются переменные окружения/умолчания")
			} else {
				log.Warn().Err(err).Str("path", configPath).Msg("[Config] Не удалось прочитать файл конфигурации")
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// REDIS_ADDRS приходит из env одной строкой через запятую
	if len(cfg.Redis.Addrs) == 1 && strings.Contains(cfg.Redis.Addrs[0], ",") {
		cfg.Redis.Addrs = strings.Split(cfg.Redis.Addrs[0], ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("db_driver", cfg.Database.Driver).
		Str("db_host", cfg.Database.Host).
		Str("db_name", cfg.Database.DBName).
		Bool("redis_enabled", cfg.Redis.Enabled).
		Str("redis_mode", cfg.Redis.Mode).
		Str("server_port", cfg.Server.Port).
		Bool("ws_cluster", cfg.WebSocket.Cluster.Enabled).
		Msg("[Config] Загруженные значения конфигурации")

	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required in config (check JWT_SECRET env var)")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
			return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Redis.Enabled && len(c.Redis.Addrs) == 0 && c.Redis.Addr == "" {
		return fmt.Errorf("redis is enabled but no address is configured (check REDIS_ADDR or REDIS_ADDRS env vars)")
	}
	if c.WebSocket.Cluster.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("websocket cluster mode requires redis (set REDIS_ENABLED=true)")
	}
	if c.RateLimit.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("rate limiting requires redis (set REDIS_ENABLED=true)")
	}
	if c.Game.ToggleRetryAttempts < 1 {
		return fmt.Errorf("game.toggle_retry_attempts must be at least 1")
	}
	return nil
}
