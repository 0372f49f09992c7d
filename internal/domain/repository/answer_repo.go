package repository

import (
	"context"
	"time"

	"github.com/yourusername/trivia-host/internal/domain/entity"
)

// AnswerRepository определяет методы для работы с ответами команд
type AnswerRepository interface {
	// Create сохраняет ответ. Повторный ответ команды на вопрос - ErrDuplicateAnswer.
	Create(ctx context.Context, answer *entity.Answer) error
	GetByID(ctx context.Context, id uint) (*entity.Answer, error)
	UpdateGrade(ctx context.Context, id uint, isCorrect bool, awardedPoints int, gradedAt time.Time) error
	// DeleteByGame удаляет все ответы на вопросы раундов игры
	DeleteByGame(ctx context.Context, gameID uint) (int64, error)
	// SumCorrectByTeam суммирует очки верных ответов по командам.
	// Команды без верных ответов не попадают в результат.
	SumCorrectByTeam(ctx context.Context, gameID uint) ([]entity.TeamScore, error)
}
