package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/domain/repository"
	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
)

// GameRepo реализует repository.GameRepository в памяти
type GameRepo struct {
	store *Store
	tx    *dataset
}

// GetByID возвращает игру по ID
func (r *GameRepo) GetByID(ctx context.Context, id uint) (*entity.Game, error) {
	var game entity.Game
	err := r.store.read(r.tx, func(d *dataset) error {
		g, ok := d.games[id]
		if !ok {
			return fmt.Errorf("%w: game #%d", apperrors.ErrNotFound, id)
		}
		game = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// GetByJoinCode возвращает игру по коду подключения
func (r *GameRepo) GetByJoinCode(ctx context.Context, joinCode string) (*entity.Game, error) {
	var game *entity.Game
	err := r.store.read(r.tx, func(d *dataset) error {
		for _, g := range d.games {
			if g.JoinCode == joinCode {
				found := g
				game = &found
				return nil
			}
		}
		return fmt.Errorf("%w: game with join code %q", apperrors.ErrNotFound, joinCode)
	})
	return game, err
}

// MarkLive переводит игру в LIVE, если она еще не LIVE
func (r *GameRepo) MarkLive(ctx context.Context, id uint, hostUserID uint, startedAt time.Time) error {
	return r.store.read(r.tx, func(d *dataset) error {
		g, ok := d.games[id]
		if !ok || g.IsLive() {
			return fmt.Errorf("%w: game #%d", repository.ErrGameAlreadyLive, id)
		}
		g.Status = entity.GameStatusLive
		g.HostUserID = &hostUserID
		g.StartedAt = &startedAt
		g.EndedAt = nil
		g.UpdatedAt = r.store.now()
		d.games[id] = g
		return nil
	})
}

// MarkEnded переводит LIVE игру в ENDED
func (r *GameRepo) MarkEnded(ctx context.Context, id uint, endedAt time.Time) error {
	return r.store.read(r.tx, func(d *dataset) error {
		g, ok := d.games[id]
		if !ok || !g.IsLive() {
			return fmt.Errorf("%w: game #%d", repository.ErrGameNotLive, id)
		}
		g.Status = entity.GameStatusEnded
		g.EndedAt = &endedAt
		g.UpdatedAt = r.store.now()
		d.games[id] = g
		return nil
	})
}

// ResetToDraft возвращает игру в DRAFT и запоминает версию удаленного состояния
func (r *GameRepo) ResetToDraft(ctx context.Context, id uint, lastStateVersion int64) error {
	return r.store.read(r.tx, func(d *dataset) error {
		g, ok := d.games[id]
		if !ok {
			return fmt.Errorf("%w: game #%d", apperrors.ErrNotFound, id)
		}
		g.Status = entity.GameStatusDraft
		g.HostUserID = nil
		g.StartedAt = nil
		g.EndedAt = nil
		if lastStateVersion > g.LastStateVersion {
			g.LastStateVersion = lastStateVersion
		}
		g.UpdatedAt = r.store.now()
		d.games[id] = g
		return nil
	})
}

// GameStateRepo реализует repository.GameStateRepository в памяти
type GameStateRepo struct {
	store *Store
	tx    *dataset
}

// GetByGameID возвращает копию состояния игры
func (r *GameStateRepo) GetByGameID(ctx context.Context, gameID uint) (*entity.GameState, error) {
	var state entity.GameState
	err := r.store.read(r.tx, func(d *dataset) error {
		s, ok := d.states[gameID]
		if !ok {
			return fmt.Errorf("%w: state of game #%d", apperrors.ErrNotFound, gameID)
		}
		state = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// LockByGameID возвращает копию состояния. Транзакции хранилища и так выполняются
// по одной, поэтому отдельная блокировка записи не нужна.
func (r *GameStateRepo) LockByGameID(ctx context.Context, gameID uint) (*entity.GameState, error) {
	return r.GetByGameID(ctx, gameID)
}

// Create создает состояние, продолжая нумерацию версий удаленного состояния
func (r *GameStateRepo) Create(ctx context.Context, state *entity.GameState) error {
	return r.store.read(r.tx, func(d *dataset) error {
		if _, exists := d.states[state.GameID]; exists {
			return fmt.Errorf("%w: state of game #%d already exists", repository.ErrStaleGameState, state.GameID)
		}
		if state.Version < 0 {
			state.Version = 0
		}
		state.Version++
		state.UpdatedAt = r.store.now()
		d.states[state.GameID] = *state
		return nil
	})
}

// CompareAndSwap записывает состояние при совпадении версии
func (r *GameStateRepo) CompareAndSwap(ctx context.Context, state *entity.GameState, expectedVersion int64) error {
	return r.store.read(r.tx, func(d *dataset) error {
		current, ok := d.states[state.GameID]
		if !ok || current.Version != expectedVersion {
			return fmt.Errorf("%w: game #%d expected version %d", repository.ErrStaleGameState, state.GameID, expectedVersion)
		}
		state.Version = expectedVersion + 1
		state.UpdatedAt = r.store.now()
		d.states[state.GameID] = *state
		return nil
	})
}

// DeleteByGameID удаляет состояние игры
func (r *GameStateRepo) DeleteByGameID(ctx context.Context, gameID uint) error {
	return r.store.read(r.tx, func(d *dataset) error {
		delete(d.states, gameID)
		return nil
	})
}

// QuestionRepo реализует repository.QuestionRepository в памяти
type QuestionRepo struct {
	store *Store
	tx    *dataset
}

// ListOrderedByGame возвращает вопросы игры в порядке прохождения
func (r *QuestionRepo) ListOrderedByGame(ctx context.Context, gameID uint) ([]entity.OrderedQuestion, error) {
	var questions []entity.OrderedQuestion
	err := r.store.read(r.tx, func(d *dataset) error {
		for _, q := range d.questions {
			round, ok := d.rounds[q.RoundID]
			if !ok || round.GameID != gameID {
				continue
			}
			questions = append(questions, entity.OrderedQuestion{
				QuestionID:     q.ID,
				RoundID:        round.ID,
				RoundSortOrder: round.SortOrder,
				SortOrder:      q.SortOrder,
			})
		}
		return nil
	})
	entity.SortQuestions(questions)
	return questions, err
}

// GetInGame возвращает вопрос, если он принадлежит игре
func (r *QuestionRepo) GetInGame(ctx context.Context, gameID, questionID uint) (*entity.Question, error) {
	var question entity.Question
	err := r.store.read(r.tx, func(d *dataset) error {
		q, ok := d.questionInGame(gameID, questionID)
		if !ok {
			return fmt.Errorf("%w: question #%d in game #%d", apperrors.ErrNotFound, questionID, gameID)
		}
		question = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// AnswerRepo реализует repository.AnswerRepository в памяти
type AnswerRepo struct {
	store *Store
	tx    *dataset
}

// Create сохраняет ответ. Пара (вопрос, команда) уникальна.
func (r *AnswerRepo) Create(ctx context.Context, answer *entity.Answer) error {
	return r.store.read(r.tx, func(d *dataset) error {
		for _, a := range d.answers {
			if a.QuestionID == answer.QuestionID && a.TeamID == answer.TeamID {
				return fmt.Errorf("%w: team #%d, question #%d", repository.ErrDuplicateAnswer, answer.TeamID, answer.QuestionID)
			}
		}
		answer.ID = d.nextID()
		answer.CreatedAt = r.store.now()
		d.answers[answer.ID] = *answer
		return nil
	})
}

// GetByID возвращает ответ по ID
func (r *AnswerRepo) GetByID(ctx context.Context, id uint) (*entity.Answer, error) {
	var answer entity.Answer
	err := r.store.read(r.tx, func(d *dataset) error {
		a, ok := d.answers[id]
		if !ok {
			return fmt.Errorf("%w: answer #%d", apperrors.ErrNotFound, id)
		}
		answer = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

// UpdateGrade сохраняет результат проверки
func (r *AnswerRepo) UpdateGrade(ctx context.Context, id uint, isCorrect bool, awardedPoints int, gradedAt time.Time) error {
	return r.store.read(r.tx, func(d *dataset) error {
		a, ok := d.answers[id]
		if !ok {
			return fmt.Errorf("%w: answer #%d", apperrors.ErrNotFound, id)
		}
		a.IsCorrect = isCorrect
		a.AwardedPoints = awardedPoints
		a.GradedAt = &gradedAt
		d.answers[id] = a
		return nil
	})
}

// DeleteByGame удаляет ответы на вопросы игры
func (r *AnswerRepo) DeleteByGame(ctx context.Context, gameID uint) (int64, error) {
	var deleted int64
	err := r.store.read(r.tx, func(d *dataset) error {
		for id, a := range d.answers {
			if _, ok := d.questionInGame(gameID, a.QuestionID); ok {
				delete(d.answers, id)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

// SumCorrectByTeam суммирует очки верных ответов по командам
func (r *AnswerRepo) SumCorrectByTeam(ctx context.Context, gameID uint) ([]entity.TeamScore, error) {
	totals := make(map[uint]int)
	err := r.store.read(r.tx, func(d *dataset) error {
		for _, a := range d.answers {
			if !a.IsCorrect {
				continue
			}
			if _, ok := d.questionInGame(gameID, a.QuestionID); !ok {
				continue
			}
			totals[a.TeamID] += a.AwardedPoints
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	scores := make([]entity.TeamScore, 0, len(totals))
	for teamID, score := range totals {
		scores = append(scores, entity.TeamScore{TeamID: teamID, Score: score})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].TeamID < scores[j].TeamID })
	return scores, nil
}

// TeamRepo реализует repository.TeamRepository в памяти
type TeamRepo struct {
	store *Store
	tx    *dataset
}

// GetByID возвращает команду по ID
func (r *TeamRepo) GetByID(ctx context.Context, id uint) (*entity.Team, error) {
	var team entity.Team
	err := r.store.read(r.tx, func(d *dataset) error {
		t, ok := d.teams[id]
		if !ok {
			return fmt.Errorf("%w: team #%d", apperrors.ErrNotFound, id)
		}
		team = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// GetByIDs возвращает найденные команды, упорядоченные по ID
func (r *TeamRepo) GetByIDs(ctx context.Context, ids []uint) ([]entity.Team, error) {
	teams := make([]entity.Team, 0, len(ids))
	err := r.store.read(r.tx, func(d *dataset) error {
		for _, id := range ids {
			if t, ok := d.teams[id]; ok {
				teams = append(teams, t)
			}
		}
		return nil
	})
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, err
}
