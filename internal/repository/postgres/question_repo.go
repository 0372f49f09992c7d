package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/trivia-host/internal/domain/entity"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// ListOrderedByGame возвращает вопросы игры в порядке прохождения
func (r *QuestionRepo) ListOrderedByGame(ctx context.Context, gameID uint) ([]entity.OrderedQuestion, error) {
	var questions []entity.OrderedQuestion
	err := r.db.WithContext(ctx).
		Table("questions").
		Select("questions.id AS question_id, questions.round_id AS round_id, rounds.sort_order AS round_sort_order, questions.sort_order AS sort_order").
		Joins("JOIN rounds ON rounds.id = questions.round_id").
		Where("rounds.game_id = ?", gameID).
		Order("rounds.sort_order, rounds.id, questions.sort_order, questions.id").
		Scan(&questions).Error
	if err != nil {
		return nil, translateErr(err, "questions of game #%d", gameID)
	}
	return questions, nil
}

// GetInGame возвращает вопрос, если он принадлежит раунду игры
func (r *QuestionRepo) GetInGame(ctx context.Context, gameID, questionID uint) (*entity.Question, error) {
	var question entity.Question
	err := r.db.WithContext(ctx).
		Joins("JOIN rounds ON rounds.id = questions.round_id").
		Where("questions.id = ? AND rounds.game_id = ?", questionID, gameID).
		First(&question).Error
	if err != nil {
		return nil, translateErr(err, "question #%d in game #%d", questionID, gameID)
	}
	return &question, nil
}

// gameQuestionIDs - подзапрос ID вопросов игры
func gameQuestionIDs(db *gorm.DB, gameID uint) *gorm.DB {
	return db.Table("questions").
		Select("questions.id").
		Joins("JOIN rounds ON rounds.id = questions.round_id").
		Where("rounds.game_id = ?", gameID)
}
