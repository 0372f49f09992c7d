package database

import (
	"errors"
	"fmt"
	"time"

	migrateV4 "github.com/golang-migrate/migrate/v4"
	migratePostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog/log"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/trivia-host/internal/config"
)

// NewPostgresDB подключается к PostgreSQL, повторяя попытки до cfg.ConnectTimeout
func NewPostgresDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	b := &backoff.Backoff{
		Min:    200 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}
	deadline := time.Now().Add(cfg.ConnectTimeout)

	for {
		db, err := openPostgres(cfg.PostgresConnectionString())
		if err == nil {
			log.Info().Str("host", cfg.Host).Str("dbname", cfg.DBName).Msg("[Database] Подключение к PostgreSQL установлено")
			return db, nil
		}

		wait := b.Duration()
		if time.Now().Add(wait).After(deadline) {
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", int(b.Attempt()), err)
		}
		log.Warn().Err(err).Dur("retry_in", wait).Msg("[Database] PostgreSQL недоступен, повтор")
		time.Sleep(wait)
	}
}

func openPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	// Настройка пула соединений
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// MigrateDB применяет SQL-миграции из каталога path
func MigrateDB(db *gorm.DB, path string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("не удалось получить *sql.DB из *gorm.DB: %w", err)
	}

	driver, err := migratePostgres.WithInstance(sqlDB, &migratePostgres.Config{})
	if err != nil {
		return fmt.Errorf("не удалось создать драйвер postgres для migrate: %w", err)
	}

	m, err := migrateV4.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("не удалось создать экземпляр migrate: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrateV4.ErrNoChange):
		log.Info().Msg("[Database] Изменений в миграциях не найдено, база данных уже актуальна")
	case err != nil:
		return fmt.Errorf("ошибка применения миграций 'up': %w", err)
	default:
		log.Info().Str("path", path).Msg("[Database] Миграции успешно применены")
	}
	return nil
}
