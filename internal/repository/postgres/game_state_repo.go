package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/domain/repository"
)

// GameStateRepo реализует repository.GameStateRepository
type GameStateRepo struct {
	db *gorm.DB
}

// NewGameStateRepo создает новый репозиторий состояния игр
func NewGameStateRepo(db *gorm.DB) *GameStateRepo {
	return &GameStateRepo{db: db}
}

// GetByGameID возвращает состояние игры
func (r *GameStateRepo) GetByGameID(ctx context.Context, gameID uint) (*entity.GameState, error) {
	var state entity.GameState
	if err := r.db.WithContext(ctx).Where("game_id = ?", gameID).First(&state).Error; err != nil {
		return nil, translateErr(err, "state of game #%d", gameID)
	}
	return &state, nil
}

// LockByGameID читает состояние с SELECT ... FOR UPDATE
func (r *GameStateRepo) LockByGameID(ctx context.Context, gameID uint) (*entity.GameState, error) {
	var state entity.GameState
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("game_id = ?", gameID).
		First(&state).Error
	if err != nil {
		return nil, translateErr(err, "lock state of game #%d", gameID)
	}
	return &state, nil
}

// Create создает состояние, продолжая нумерацию версий удаленного состояния.
// Первичный ключ game_id гарантирует не более одной записи на игру.
func (r *GameStateRepo) Create(ctx context.Context, state *entity.GameState) error {
	if state.Version < 0 {
		state.Version = 0
	}
	state.Version++
	state.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(state).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: state of game #%d already exists", repository.ErrStaleGameState, state.GameID)
		}
		return translateErr(err, "create state of game #%d", state.GameID)
	}
	return nil
}

// CompareAndSwap обновляет состояние, только если версия в БД равна expectedVersion
func (r *GameStateRepo) CompareAndSwap(ctx context.Context, state *entity.GameState, expectedVersion int64) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&entity.GameState{}).
		Where("game_id = ? AND version = ?", state.GameID, expectedVersion).
		Updates(map[string]interface{}{
			"current_question_id":       state.CurrentQuestionID,
			"current_round_id":          state.CurrentRoundID,
			"question_started_at":       state.QuestionStartedAt,
			"is_accepting_answers":      state.IsAcceptingAnswers,
			"scores_visible_to_players": state.ScoresVisibleToPlayers,
			"version":                   gorm.Expr("version + 1"),
			"updated_at":                now,
		})
	if result.Error != nil {
		return translateErr(result.Error, "update state of game #%d", state.GameID)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: game #%d expected version %d", repository.ErrStaleGameState, state.GameID, expectedVersion)
	}
	state.Version = expectedVersion + 1
	state.UpdatedAt = now
	return nil
}

// DeleteByGameID удаляет состояние игры (отсутствие записи не ошибка)
func (r *GameStateRepo) DeleteByGameID(ctx context.Context, gameID uint) error {
	err := r.db.WithContext(ctx).Where("game_id = ?", gameID).Delete(&entity.GameState{}).Error
	return translateErr(err, "delete state of game #%d", gameID)
}
