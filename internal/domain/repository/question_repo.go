package repository

import (
	"context"

	"github.com/yourusername/trivia-host/internal/domain/entity"
)

// QuestionRepository определяет методы для чтения вопросов игры
type QuestionRepository interface {
	// ListOrderedByGame возвращает все вопросы всех раундов игры
	ListOrderedByGame(ctx context.Context, gameID uint) ([]entity.OrderedQuestion, error)
	// GetInGame возвращает вопрос, только если он принадлежит раунду этой игры
	GetInGame(ctx context.Context, gameID, questionID uint) (*entity.Question, error)
}
