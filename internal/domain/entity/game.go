package entity

import (
	"time"
)

// Статусы игры
const (
	GameStatusDraft = "DRAFT"
	GameStatusLive  = "LIVE"
	GameStatusEnded = "ENDED"
)

// Game представляет одну проводимую игру (экземпляр викторины на площадке)
type Game struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Status      string     `gorm:"size:20;not null;default:'DRAFT';index" json:"status"`
	JoinCode    string     `gorm:"size:16;not null;uniqueIndex" json:"joinCode"`
	EventID     *uint      `gorm:"index" json:"eventId,omitempty"`
	SiteID      uint       `gorm:"not null;index" json:"siteId"`
	HostUserID  *uint      `json:"hostUserId,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// LastStateVersion - версия состояния, удаленного при сбросе игры
	LastStateVersion int64 `gorm:"not null;default:0" json:"-"`
}

// TableName определяет имя таблицы для GORM
func (Game) TableName() string {
	return "games"
}

// IsLive проверяет, идет ли игра
func (g *Game) IsLive() bool {
	return g.Status == GameStatusLive
}

// IsDraft проверяет, находится ли игра в черновике
func (g *Game) IsDraft() bool {
	return g.Status == GameStatusDraft
}

// IsEnded проверяет, завершена ли игра
func (g *Game) IsEnded() bool {
	return g.Status == GameStatusEnded
}
