package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/trivia-host/internal/domain/entity"
)

// TeamRepo реализует repository.TeamRepository
type TeamRepo struct {
	db *gorm.DB
}

// NewTeamRepo создает новый репозиторий команд
func NewTeamRepo(db *gorm.DB) *TeamRepo {
	return &TeamRepo{db: db}
}

// GetByID возвращает команду по ID
func (r *TeamRepo) GetByID(ctx context.Context, id uint) (*entity.Team, error) {
	var team entity.Team
	if err := r.db.WithContext(ctx).First(&team, id).Error; err != nil {
		return nil, translateErr(err, "team #%d", id)
	}
	return &team, nil
}

// GetByIDs возвращает команды по списку ID (отсутствующие пропускаются)
func (r *TeamRepo) GetByIDs(ctx context.Context, ids []uint) ([]entity.Team, error) {
	if len(ids) == 0 {
		return []entity.Team{}, nil
	}
	var teams []entity.Team
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&teams).Error; err != nil {
		return nil, translateErr(err, "teams")
	}
	return teams, nil
}
