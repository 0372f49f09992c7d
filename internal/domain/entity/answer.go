package entity

import "time"

// Answer представляет ответ команды на вопрос. Одна запись на пару (вопрос, команда).
type Answer struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	QuestionID    uint       `gorm:"not null;uniqueIndex:idx_answer_question_team" json:"questionId"`
	TeamID        uint       `gorm:"not null;uniqueIndex:idx_answer_question_team;index" json:"teamId"`
	Response      string     `gorm:"size:500;not null;default:''" json:"response"`
	IsCorrect     bool       `gorm:"not null" json:"isCorrect"`
	AwardedPoints int        `gorm:"not null" json:"awardedPoints"`
	GradedAt      *time.Time `json:"gradedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// TableName определяет имя таблицы для GORM
func (Answer) TableName() string {
	return "answers"
}

// IsGraded проверяет, проверен ли ответ ведущим
func (a *Answer) IsGraded() bool {
	return a.GradedAt != nil
}

// TeamScore - сумма очков команды за верные ответы
type TeamScore struct {
	TeamID uint `json:"teamId"`
	Score  int  `json:"score"`
}

// Standing - строка турнирной таблицы
type Standing struct {
	Rank     int    `json:"rank"`
	TeamID   uint   `json:"teamId"`
	TeamName string `json:"teamName"`
	Score    int    `json:"score"`
}
