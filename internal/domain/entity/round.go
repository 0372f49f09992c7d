package entity

// Round представляет раунд игры
type Round struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	GameID    uint   `gorm:"not null;index" json:"gameId"`
	Title     string `gorm:"size:200;not null;default:''" json:"title"`
	SortOrder int    `gorm:"not null;default:0" json:"sortOrder"`
}

// TableName определяет имя таблицы для GORM
func (Round) TableName() string {
	return "rounds"
}
