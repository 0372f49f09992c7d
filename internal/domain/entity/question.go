package entity

import (
	"time"
)

// Question представляет вопрос раунда
type Question struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RoundID       uint      `gorm:"not null;index" json:"roundId"`
	Text          string    `gorm:"size:1000;not null" json:"text"`
	CorrectAnswer string    `gorm:"size:500;not null;default:''" json:"-"` // Скрыто от игроков
	Points        int       `gorm:"not null;default:1" json:"points"`
	SortOrder     int       `gorm:"not null;default:0" json:"sortOrder"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// PointsFor возвращает очки за ответ: стоимость вопроса за верный, 0 за неверный
func (q *Question) PointsFor(isCorrect bool) int {
	if !isCorrect {
		return 0
	}
	return q.Points
}
