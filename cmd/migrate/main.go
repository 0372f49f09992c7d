package main

import (
	"database/sql"
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/trivia-host/internal/config"
	"github.com/yourusername/trivia-host/pkg/logger"
)

// Утилита обслуживания схемы: up, down на один шаг, force для снятия dirty-состояния.
//
//	go run ./cmd/migrate -action force -version 1
func main() {
	action := flag.String("action", "up", "up | down | force | version")
	version := flag.Int("version", -1, "версия для force")
	flag.Parse()

	_ = godotenv.Load()
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("[Migrate] Не удалось загрузить конфигурацию")
	}
	logger.Setup(cfg.Log)

	if cfg.Database.IsMemory() {
		log.Fatal().Msg("[Migrate] Драйвер memory не использует миграции")
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("[Migrate] Не удалось открыть соединение")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("[Migrate] PostgreSQL недоступен")
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("[Migrate] Не удалось создать драйвер")
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+cfg.Database.MigrationsPath, "postgres", driver)
	if err != nil {
		log.Fatal().Err(err).Msg("[Migrate] Не удалось создать экземпляр migrate")
	}

	switch *action {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "force":
		if *version < 0 {
			log.Fatal().Msg("[Migrate] Для force нужен -version")
		}
		err = m.Force(*version)
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Fatal().Err(verr).Msg("[Migrate] Не удалось получить версию")
		}
		log.Info().Uint("version", v).Bool("dirty", dirty).Msg("[Migrate] Текущая версия схемы")
		return
	default:
		log.Fatal().Str("action", *action).Msg("[Migrate] Неизвестное действие")
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("[Migrate] Изменений нет")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Str("action", *action).Msg("[Migrate] Ошибка выполнения")
	}
	log.Info().Str("action", *action).Msg("[Migrate] Готово")
}
