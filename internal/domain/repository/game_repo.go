package repository

import (
	"context"
	"time"

	"github.com/yourusername/trivia-host/internal/domain/entity"
)

// GameRepository определяет методы для работы с играми
type GameRepository interface {
	GetByID(ctx context.Context, id uint) (*entity.Game, error)
	GetByJoinCode(ctx context.Context, joinCode string) (*entity.Game, error)
	// MarkLive переводит игру в LIVE, если она еще не LIVE. Иначе ErrGameAlreadyLive.
	MarkLive(ctx context.Context, id uint, hostUserID uint, startedAt time.Time) error
	// MarkEnded переводит LIVE игру в ENDED. Иначе ErrGameNotLive.
	MarkEnded(ctx context.Context, id uint, endedAt time.Time) error
	// ResetToDraft возвращает игру в DRAFT и очищает ведущего и отметки времени.
	// lastStateVersion - версия удаленного состояния; сохраненное значение только растет.
	ResetToDraft(ctx context.Context, id uint, lastStateVersion int64) error
}
