package entity

import "time"

// GameState хранит указатель "где мы сейчас" для идущей игры.
// Одна запись на игру. Version увеличивается при каждом изменении.
type GameState struct {
	GameID                 uint       `gorm:"primaryKey;autoIncrement:false" json:"gameId"`
	CurrentQuestionID      *uint      `json:"currentQuestionId"`
	CurrentRoundID         *uint      `json:"currentRoundId"`
	QuestionStartedAt      *time.Time `json:"questionStartedAt"`
	IsAcceptingAnswers     bool       `gorm:"not null" json:"isAcceptingAnswers"`
	ScoresVisibleToPlayers bool       `gorm:"not null" json:"scoresVisibleToPlayers"`
	Version                int64      `gorm:"not null" json:"version"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// TableName определяет имя таблицы для GORM
func (GameState) TableName() string {
	return "game_states"
}

// HasActiveQuestion проверяет, выбран ли текущий вопрос
func (s *GameState) HasActiveQuestion() bool {
	return s.CurrentQuestionID != nil
}

// IsCurrentQuestion проверяет, является ли вопрос текущим
func (s *GameState) IsCurrentQuestion(questionID uint) bool {
	return s.CurrentQuestionID != nil && *s.CurrentQuestionID == questionID
}

// PointAt переводит состояние на вопрос и его раунд
func (s *GameState) PointAt(questionID, roundID uint, startedAt time.Time) {
	s.CurrentQuestionID = &questionID
	s.CurrentRoundID = &roundID
	s.QuestionStartedAt = &startedAt
}
