package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/domain/repository"
)

// GameRepo реализует repository.GameRepository
type GameRepo struct {
	db *gorm.DB
}

// NewGameRepo создает новый репозиторий игр
func NewGameRepo(db *gorm.DB) *GameRepo {
	return &GameRepo{db: db}
}

// GetByID возвращает игру по ID
func (r *GameRepo) GetByID(ctx context.Context, id uint) (*entity.Game, error) {
	var game entity.Game
	if err := r.db.WithContext(ctx).First(&game, id).Error; err != nil {
		return nil, translateErr(err, "game #%d", id)
	}
	return &game, nil
}

// GetByJoinCode возвращает игру по коду подключения
func (r *GameRepo) GetByJoinCode(ctx context.Context, joinCode string) (*entity.Game, error) {
	var game entity.Game
	if err := r.db.WithContext(ctx).Where("join_code = ?", joinCode).First(&game).Error; err != nil {
		return nil, translateErr(err, "game with join code %q", joinCode)
	}
	return &game, nil
}

// MarkLive атомарно переводит игру в LIVE.
// RowsAffected == 0 означает, что игра уже LIVE (существование проверяет вызывающий).
func (r *GameRepo) MarkLive(ctx context.Context, id uint, hostUserID uint, startedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&entity.Game{}).
		Where("id = ? AND status <> ?", id, entity.GameStatusLive).
		Updates(map[string]interface{}{
			"status":       entity.GameStatusLive,
			"host_user_id": hostUserID,
			"started_at":   startedAt,
			"ended_at":     nil,
		})
	if result.Error != nil {
		return translateErr(result.Error, "start game #%d", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: game #%d", repository.ErrGameAlreadyLive, id)
	}
	return nil
}

// MarkEnded атомарно переводит LIVE игру в ENDED
func (r *GameRepo) MarkEnded(ctx context.Context, id uint, endedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&entity.Game{}).
		Where("id = ? AND status = ?", id, entity.GameStatusLive).
		Updates(map[string]interface{}{
			"status":   entity.GameStatusEnded,
			"ended_at": endedAt,
		})
	if result.Error != nil {
		return translateErr(result.Error, "end game #%d", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: game #%d", repository.ErrGameNotLive, id)
	}
	return nil
}

// ResetToDraft возвращает игру в DRAFT и запоминает версию удаленного состояния
func (r *GameRepo) ResetToDraft(ctx context.Context, id uint, lastStateVersion int64) error {
	result := r.db.WithContext(ctx).Model(&entity.Game{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":             entity.GameStatusDraft,
			"host_user_id":       nil,
			"started_at":         nil,
			"ended_at":           nil,
			"last_state_version": gorm.Expr("GREATEST(last_state_version, ?)", lastStateVersion),
		})
	if result.Error != nil {
		return translateErr(result.Error, "reset game #%d", id)
	}
	if result.RowsAffected == 0 {
		return translateErr(gorm.ErrRecordNotFound, "game #%d", id)
	}
	return nil
}
