package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/domain/repository"
)

// AnswerRepo реализует repository.AnswerRepository
type AnswerRepo struct {
	db *gorm.DB
}

// NewAnswerRepo создает новый репозиторий ответов
func NewAnswerRepo(db *gorm.DB) *AnswerRepo {
	return &AnswerRepo{db: db}
}

// Create сохраняет ответ команды
func (r *AnswerRepo) Create(ctx context.Context, answer *entity.Answer) error {
	err := r.db.WithContext(ctx).Create(answer).Error
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: team #%d, question #%d", repository.ErrDuplicateAnswer, answer.TeamID, answer.QuestionID)
		}
		return translateErr(err, "create answer")
	}
	return nil
}

// GetByID возвращает ответ по ID
func (r *AnswerRepo) GetByID(ctx context.Context, id uint) (*entity.Answer, error) {
	var answer entity.Answer
	if err := r.db.WithContext(ctx).First(&answer, id).Error; err != nil {
		return nil, translateErr(err, "answer #%d", id)
	}
	return &answer, nil
}

// UpdateGrade сохраняет результат проверки ответа
func (r *AnswerRepo) UpdateGrade(ctx context.Context, id uint, isCorrect bool, awardedPoints int, gradedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&entity.Answer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_correct":     isCorrect,
			"awarded_points": awardedPoints,
			"graded_at":      gradedAt,
		})
	if result.Error != nil {
		return translateErr(result.Error, "grade answer #%d", id)
	}
	if result.RowsAffected == 0 {
		return translateErr(gorm.ErrRecordNotFound, "answer #%d", id)
	}
	return nil
}

// DeleteByGame удаляет ответы на все вопросы игры
func (r *AnswerRepo) DeleteByGame(ctx context.Context, gameID uint) (int64, error) {
	db := r.db.WithContext(ctx)
	result := db.Where("question_id IN (?)", gameQuestionIDs(db, gameID)).Delete(&entity.Answer{})
	if result.Error != nil {
		return 0, translateErr(result.Error, "delete answers of game #%d", gameID)
	}
	return result.RowsAffected, nil
}

// SumCorrectByTeam суммирует awarded_points верных ответов по командам
func (r *AnswerRepo) SumCorrectByTeam(ctx context.Context, gameID uint) ([]entity.TeamScore, error) {
	var scores []entity.TeamScore
	err := r.db.WithContext(ctx).
		Table("answers").
		Select("answers.team_id AS team_id, COALESCE(SUM(answers.awarded_points), 0) AS score").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Joins("JOIN rounds ON rounds.id = questions.round_id").
		Where("rounds.game_id = ? AND answers.is_correct = ?", gameID, true).
		Group("answers.team_id").
		Order("answers.team_id").
		Scan(&scores).Error
	if err != nil {
		return nil, translateErr(err, "scores of game #%d", gameID)
	}
	return scores, nil
}
