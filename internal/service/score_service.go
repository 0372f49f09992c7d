package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/trivia-host/internal/config"
	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/domain/repository"
	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
)

// Табло кешируется под ключом с поколением. Сброс кеша увеличивает поколение,
// и табло, посчитанное до проверки ответа, уже не попадает под актуальный ключ.
func scoreboardGenerationKey(gameID uint) string {
	return fmt.Sprintf("scoreboard:game:%d:gen", gameID)
}

func scoreboardCacheKey(gameID uint, generation int64) string {
	return fmt.Sprintf("scoreboard:game:%d:v%d", gameID, generation)
}

// invalidateScoreboardCache переводит табло игры на новое поколение
func invalidateScoreboardCache(ctx context.Context, cache repository.CacheRepository, gameID uint, component string) {
	if cache == nil {
		return
	}
	if _, err := cache.Increment(ctx, scoreboardGenerationKey(gameID)); err != nil {
		log.Warn().Err(err).Uint("game_id", gameID).Msgf("[%s] Не удалось сбросить кеш табло", component)
	}
}

// ScoreService считает очки команд по проверенным ответам
type ScoreService struct {
	repos repository.Repositories
	cache repository.CacheRepository
	cfg   config.GameConfig
}

// NewScoreService создает сервис очков. cache может быть nil.
func NewScoreService(repos repository.Repositories, cache repository.CacheRepository, cfg config.GameConfig) *ScoreService {
	return &ScoreService{
		repos: repos,
		cache: cache,
		cfg:   cfg,
	}
}

// ComputeScores возвращает сумму очков верных ответов каждой команды.
// Команды без верных ответов в результат не попадают. Результат никогда не nil.
func (s *ScoreService) ComputeScores(ctx context.Context, gameID uint) ([]entity.TeamScore, error) {
	ctx, cancel := operationContext(ctx, s.cfg.OperationTimeout)
	defer cancel()

	if _, err := s.repos.Games.GetByID(ctx, gameID); err != nil {
		return nil, translateCtxErr(err)
	}
	return s.sum(ctx, gameID)
}

// PublicScoreboard возвращает очки для игроков по коду подключения.
// Доступно только когда ведущий открыл таблицу.
func (s *ScoreService) PublicScoreboard(ctx context.Context, joinCode string) ([]entity.TeamScore, error) {
	ctx, cancel := operationContext(ctx, s.cfg.OperationTimeout)
	defer cancel()

	game, err := s.repos.Games.GetByJoinCode(ctx, joinCode)
	if err != nil {
		return nil, translateCtxErr(err)
	}
	state, err := s.repos.States.GetByGameID(ctx, game.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: game #%d", ErrScoresHidden, game.ID)
		}
		return nil, translateCtxErr(err)
	}
	if !state.ScoresVisibleToPlayers {
		return nil, fmt.Errorf("%w: game #%d", ErrScoresHidden, game.ID)
	}

	key, cacheable := s.scoreboardKey(ctx, game.ID)
	if cacheable {
		var cached []entity.TeamScore
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			log.Warn().Err(err).Uint("game_id", game.ID).Msg("[ScoreService] Ошибка чтения табло из кеша")
		}
	}

	scores, err := s.sum(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.SetJSON(ctx, key, scores, s.cfg.ScoreboardCacheTTL); err != nil {
			log.Warn().Err(err).Uint("game_id", game.ID).Msg("[ScoreService] Не удалось сохранить табло в кеш")
		}
	}
	return scores, nil
}

// Standings возвращает итоговую таблицу: по убыванию очков, при равенстве по ID команды.
// Команды с равными очками делят место (1, 1, 3).
func (s *ScoreService) Standings(ctx context.Context, gameID uint) ([]entity.Standing, error) {
	scores, err := s.ComputeScores(ctx, gameID)
	if err != nil {
		return nil, err
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].TeamID < scores[j].TeamID
	})

	ids := make([]uint, 0, len(scores))
	for _, sc := range scores {
		ids = append(ids, sc.TeamID)
	}

	ctx, cancel := operationContext(ctx, s.cfg.OperationTimeout)
	defer cancel()
	teams, err := s.repos.Teams.GetByIDs(ctx, ids)
	if err != nil {
		return nil, translateCtxErr(err)
	}
	names := make(map[uint]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}

	standings := make([]entity.Standing, 0, len(scores))
	for i, sc := range scores {
		rank := i + 1
		if i > 0 && sc.Score == scores[i-1].Score {
			rank = standings[i-1].Rank
		}
		standings = append(standings, entity.Standing{
			Rank:     rank,
			TeamID:   sc.TeamID,
			TeamName: names[sc.TeamID],
			Score:    sc.Score,
		})
	}
	return standings, nil
}

// InvalidateScoreboard сбрасывает кеш табло игры
func (s *ScoreService) InvalidateScoreboard(ctx context.Context, gameID uint) {
	invalidateScoreboardCache(ctx, s.cache, gameID, "ScoreService")
}

// scoreboardKey возвращает ключ табло текущего поколения.
// Если поколение прочитать не удалось, кеш не используется.
func (s *ScoreService) scoreboardKey(ctx context.Context, gameID uint) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	var generation int64
	err := s.cache.GetJSON(ctx, scoreboardGenerationKey(gameID), &generation)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		log.Warn().Err(err).Uint("game_id", gameID).Msg("[ScoreService] Не удалось прочитать поколение табло")
		return "", false
	}
	return scoreboardCacheKey(gameID, generation), true
}

func (s *ScoreService) sum(ctx context.Context, gameID uint) ([]entity.TeamScore, error) {
	scores, err := s.repos.Answers.SumCorrectByTeam(ctx, gameID)
	if err != nil {
		return nil, translateCtxErr(err)
	}
	if scores == nil {
		scores = []entity.TeamScore{}
	}
	return scores, nil
}
