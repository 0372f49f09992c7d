package repository

import (
	"context"

	"github.com/yourusername/trivia-host/internal/domain/entity"
)

// TeamRepository определяет методы для чтения команд
type TeamRepository interface {
	GetByID(ctx context.Context, id uint) (*entity.Team, error)
	GetByIDs(ctx context.Context, ids []uint) ([]entity.Team, error)
}
