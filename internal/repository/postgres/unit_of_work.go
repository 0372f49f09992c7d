package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/trivia-host/internal/domain/repository"
)

// NewRepositories создает набор репозиториев поверх db (соединение или транзакция)
func NewRepositories(db *gorm.DB) repository.Repositories {
	return repository.Repositories{
		Games:     NewGameRepo(db),
		States:    NewGameStateRepo(db),
		Questions: NewQuestionRepo(db),
		Answers:   NewAnswerRepo(db),
		Teams:     NewTeamRepo(db),
	}
}

// UnitOfWork реализует repository.UnitOfWork на транзакциях GORM
type UnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork создает UnitOfWork
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Do выполняет fn в транзакции. Ошибка fn откатывает все изменения.
func (u *UnitOfWork) Do(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
