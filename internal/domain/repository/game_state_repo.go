package repository

import (
	"context"

	"github.com/yourusername/trivia-host/internal/domain/entity"
)

// GameStateRepository определяет методы для работы с состоянием игры.
// Любое изменение существующей записи идет через CompareAndSwap.
type GameStateRepository interface {
	GetByGameID(ctx context.Context, gameID uint) (*entity.GameState, error)
	// LockByGameID читает состояние и блокирует запись до конца транзакции.
	LockByGameID(ctx context.Context, gameID uint) (*entity.GameState, error)
	// Create создает состояние с версией state.Version+1, где state.Version - версия
	// удаленного ранее состояния (0 для новой игры). Если запись уже есть - ErrStaleGameState.
	Create(ctx context.Context, state *entity.GameState) error
	// CompareAndSwap записывает state, только если текущая версия равна expectedVersion.
	// При успехе state.Version = expectedVersion+1, иначе ErrStaleGameState.
	CompareAndSwap(ctx context.Context, state *entity.GameState, expectedVersion int64) error
	DeleteByGameID(ctx context.Context, gameID uint) error
}
