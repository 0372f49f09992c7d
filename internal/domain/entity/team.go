package entity

// Team представляет команду игроков
type Team struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"size:100;not null" json:"name"`
	SiteID *uint  `gorm:"index" json:"siteId,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Team) TableName() string {
	return "teams"
}
