package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/trivia-host/internal/config"
	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/domain/repository"
	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
)

// ProgressionService ведет игру по вопросам: запуск, переходы, флаги приема ответов
// и видимости очков, завершение и сброс.
//
// Все изменения GameState выполняются через CompareAndSwap по версии, прочитанной
// в начале операции. Проигравший в гонке получает ErrStaleGameState.
type ProgressionService struct {
	repos    repository.Repositories
	uow      repository.UnitOfWork
	cache    repository.CacheRepository
	notifier Notifier
	cfg      config.GameConfig
	now      func() time.Time
}

// NewProgressionService создает сервис ведения игры.
// cache и notifier могут быть nil.
func NewProgressionService(
	repos repository.Repositories,
	uow repository.UnitOfWork,
	cache repository.CacheRepository,
	notifier Notifier,
	cfg config.GameConfig,
) *ProgressionService {
	if cfg.ToggleRetryAttempts < 1 {
		cfg.ToggleRetryAttempts = 1
	}
	return &ProgressionService{
		repos:    repos,
		uow:      uow,
		cache:    cache,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// AuthorizeHost проверяет, что actor может вести игру gameID, и возвращает игру
func (s *ProgressionService) AuthorizeHost(ctx context.Context, gameID uint, actor *entity.Actor) (*entity.Game, error) {
	if actor == nil || actor.UserID == 0 {
		return nil, fmt.Errorf("%w: no valid session", apperrors.ErrUnauthorized)
	}
	game, err := s.repos.Games.GetByID(ctx, gameID)
	if err != nil {
		return nil, translateCtxErr(err)
	}
	if !actor.CanHostSite(game.SiteID) {
		log.Warn().Uint("game_id", gameID).Uint("user_id", actor.UserID).Str("role", actor.Role).
			Msg("[ProgressionService] Попытка вести игру чужой площадки")
		return nil, fmt.Errorf("%w: user #%d cannot host game #%d", apperrors.ErrForbidden, actor.UserID, gameID)
	}
	return game, nil
}

// Start запускает игру: статус LIVE, ведущий, время старта и новое состояние
// на первом вопросе. Прием ответов закрыт, очки скрыты.
// Повторный запуск идущей игры - ErrGameAlreadyLive, состояние при этом не меняется.
func (s *ProgressionService) Start(ctx context.Context, gameID uint, actor *entity.Actor) (*entity.Game, error) {
	ctx, cancel := operationContext(ctx, s.cfg.OperationTimeout)
	defer cancel()

	game, err := s.AuthorizeHost(ctx, gameID, actor)
	if err != nil {
		return nil, err
	}
	if game.IsLive() {
		return nil, fmt.Errorf("%w: game #%d", repository.ErrGameAlreadyLive, gameID)
	}

	order, err := s.orderedQuestions(ctx, s.repos.Questions, gameID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var state *entity.GameState
	err = s.uow.Do(ctx, func(r repository.Repositories) error {
		if err := r.Games.MarkLive(ctx, gameID, actor.UserID, now); err != nil {
			return err
		}
		live, err := r.Games.GetByID(ctx, gameID)
		if err != nil {
			return err
		}

		// Новое состояние продолжает версии удаленного при сбросе
		next := &entity.GameState{GameID: gameID, Version: live.LastStateVersion}
		if len(order) > 0 {
			next.PointAt(order[0].QuestionID, order[0].RoundID, now)
		}

		existing, err := r.States.GetByGameID(ctx, gameID)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			err = r.States.Create(ctx, next)
		case err == nil:
			// Состояние осталось от завершенной игры: начинаем заново поверх него
			err = r.States.CompareAndSwap(ctx, next, existing.Version)
		}
		if err != nil {
			return err
		}

		state = next
		game = live
		return nil
	})
	if err != nil {
		return nil, translateCtxErr(err)
	}

	log.Info().Uint("game_id", gameID).Uint("host_user_id", actor.UserID).Int("questions", len(order)).
		Msg("[ProgressionService] Игра запущена")
	s.notify(gameID, EventGameStarted, GameStateEvent{GameID: gameID, Status: game.Status, State: state})
	return game, nil
}

// SetCurrentQuestion переводит игру на произвольный вопрос этой игры
func (s *ProgressionService) SetCurrentQuestion(ctx context.Context, gameID, questionID uint) (*entity.GameState, error) {
	if questionID == 0 {
		return nil, fmt.Errorf("%w: questionId is required", apperrors.ErrValidation)
	}

	ctx, cancel := operationContext(ctx, s.cfg.OperationTimeout)
	defer cancel()

	state, err := s.loadState(ctx, gameID)
	if err != nil {
		return nil, err
	}

	question, err := s.repos.Questions.GetInGame(ctx, gameID, questionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: question #%d does not belong to game #%d", apperrors.ErrNotFound, questionID, gameID)
		}
		return nil, translateCtxErr(err)
	}

	next := *state
	next.PointAt(question.ID, question.RoundID, s.now())
	if err := s.repos.States.CompareAndSwap(ctx, &next, state.Version); err != nil {
		return nil, translateCtxErr(err)
	}

	log.Info().Uint("game_id", gameID).Uint("question_id", questionID).Int64("version", next.Version).
		Msg("[ProgressionService] Текущий вопрос изменен")
	s.notify(gameID, EventQuestionChanged, GameStateEvent{GameID: gameID, State: &next})
	return &next, nil
}

// Advance переводит игру на следующий вопрос в порядке (раунд, вопрос) и открывает прием ответов
func (s *ProgressionService) Advance(ctx context.Context, gameID uint) (*entity.GameState, error) {
	ctx, cancel := operationContext(ctx, s.cfg.OperationTimeout)
	defer cancel()

	state, err := s.loadState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !state.HasActiveQuestion() {
		return nil, fmt.Errorf("%w: game #%d", ErrNoActiveQuestion, gameID)
	}

	order, err := s.orderedQuestions(ctx, s.repos.Questions, gameID)
	if err != nil {
		return nil, err
	}

	idx := entity.IndexOfQuestion(order, *state.CurrentQuestionID)
	switch {
	case idx < 0:
		return nil, fmt.Errorf("%w: current question #%d is no longer part of game #%d", ErrNoActiveQuestion, *state.CurrentQuestionID, gameID)
	case idx == len(order)-1:
		return nil, fmt.Errorf("%w: game #%d, question #%d", ErrAlreadyAtEnd, gameID, *state.CurrentQuestionID)
	}

	target := order[idx+1]
	next := *state
	next.PointAt(target.QuestionID, target.RoundID, s.now())
	next.IsAcceptingAnswers = true

	if err := s.repos.States.CompareAndSwap(ctx, &next, state.Version); err != nil {
		if errors.Is(err, repository.ErrStaleGameState) {
			log.Warn().Uint("game_id", gameID).Int64("version", state.Version).
				Msg("[ProgressionService] Конкурентный переход отклонен")
		}
		return nil, translateCtxErr(err)
	}

	log.Info().Uint("game_id", gameID).Uint("question_id", target.QuestionID).Uint("round_id", target.RoundID).
		Int64("version", next.Version).Msg("[ProgressionService] Переход к следующему вопросу")
	s.notify(gameID, EventQuestionAdvanced, QuestionAdvancedEvent{
		GameID:            gameID,
		CurrentQuestionID: next.CurrentQuestionID,
		CurrentRoundID:    next.CurrentRoundID,
		QuestionStartedAt: next.QuestionStartedAt,
		Version:           next.Version,
	})
	return &next, nil
}

// SetAcceptingAnswers открывает или закрывает прием ответов
func (s *ProgressionService) SetAcceptingAnswers(ctx context.Context, gameID uint, accepting bool) (*entity.GameState, error) {
	state, err := s.updateFlags(ctx, gameID, func(st *entity.GameState) {
		st.IsAcceptingAnswers = accepting
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("game_id", gameID).Bool("accepting", accepting).Msg("[ProgressionService] Прием ответов переключен")
	s.notify(gameID, EventGameStateUpdated, GameStateEvent{GameID: gameID, State: state})
	return state, nil
}

// SetScoresVisible показывает или скрывает таблицу очков от игроков
func (s *ProgressionService) SetScoresVisible(ctx context.Context, gameID uint, visible bool) (*entity.GameState, error) {
	state, err := s.updateFlags(ctx, gameID, func(st *entity.GameState) {
		st.ScoresVisibleToPlayers = visible
	})
	if err != nil {
		return nil, err
	}

	s.invalidateScoreboard(ctx, gameID)
	log.Info().Uint("game_id", gameID).Bool("visible", visible).Msg("[ProgressionService] Видимость очков переключена")
	s.notify(gameID, EventGameStateUpdated, GameStateEvent{GameID: gameID, State: state})

	if visible {
		scores, err := s.repos.Answers.SumCorrectByTeam(ctx, gameID)
		if err != nil {
			log.Warn().Err(err).Uint("game_id", gameID).Msg("[ProgressionService] Не удалось посчитать очки для рассылки")
			return state, nil
		}
		if scores == nil {
			scores = []entity.TeamScore{}
		}
		s.notify(gameID, EventScoresUpdated, ScoresEvent{GameID: gameID, Scores: scores})
	}
	return state, nil
}

// End завершает идущую игру и закрывает прием ответов
func (s *ProgressionService) End(ctx context.Context, gameID uint) (*entity.Game, error) {
	ctx, cancel := operationContext(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var game *entity.Game
	err := s.uow.Do(ctx, func(r repository.Repositories) error {
		if err := r.Games.MarkEnded(ctx, gameID, s.now()); err != nil {
			return err
		}
		state, err := r.States.GetByGameID(ctx, gameID)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
		case err != nil:
			return err
		case state.IsAcceptingAnswers:
			next := *state
			next.IsAcceptingAnswers = false
			if err := r.States.CompareAndSwap(ctx, &next, state.Version); err != nil {
				return err
			}
		}
		game, err = r.Games.GetByID(ctx, gameID)
		return err
	})
	if err != nil {
		return nil, translateCtxErr(err)
	}

	log.Info().Uint("game_id", gameID).Msg("[ProgressionService] Игра завершена")
	s.notify(gameID, EventGameEnded, GameStateEvent{GameID: gameID, Status: game.Status})
	return game, nil
}

// Reset возвращает игру в DRAFT: удаляет состояние, удаляет все ответы игры и сбрасывает статус.
// Все три шага выполняются в одной транзакции.
func (s *ProgressionService) Reset(ctx context.Context, gameID uint) error {
	ctx, cancel := operationContext(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var deleted int64
	err := s.uow.Do(ctx, func(r repository.Repositories) error {
		if _, err := r.Games.GetByID(ctx, gameID); err != nil {
			return err
		}
		var lastVersion int64
		current, err := r.States.LockByGameID(ctx, gameID)
		switch {
		case err == nil:
			lastVersion = current.Version
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}
		if err := r.States.DeleteByGameID(ctx, gameID); err != nil {
			return err
		}
		n, err := r.Answers.DeleteByGame(ctx, gameID)
		if err != nil {
			return err
		}
		deleted = n
		return r.Games.ResetToDraft(ctx, gameID, lastVersion)
	})
	if err != nil {
		log.Error().Err(err).Uint("game_id", gameID).Msg("[ProgressionService] Сброс игры не выполнен, изменения откатаны")
		return translateCtxErr(err)
	}

	s.invalidateScoreboard(ctx, gameID)
	log.Info().Uint("game_id", gameID).Int64("answers_deleted", deleted).Msg("[ProgressionService] Игра сброшена в черновик")
	s.notify(gameID, EventGameReset, GameStateEvent{GameID: gameID, Status: entity.GameStatusDraft})
	return nil
}

// GetState возвращает текущее состояние игры
func (s *ProgressionService) GetState(ctx context.Context, gameID uint) (*entity.GameState, error) {
	ctx, cancel := operationContext(ctx, s.cfg.OperationTimeout)
	defer cancel()
	return s.loadState(ctx, gameID)
}

// updateFlags применяет mutate к свежему состоянию и записывает его через CAS.
// Результат не зависит от текущего вопроса, поэтому при конкурентном изменении
// операция повторяется с новым состоянием, но не больше ToggleRetryAttempts раз.
func (s *ProgressionService) updateFlags(ctx context.Context, gameID uint, mutate func(st *entity.GameState)) (*entity.GameState, error) {
	ctx, cancel := operationContext(ctx, s.cfg.OperationTimeout)
	defer cancel()

	b := &backoff.Backoff{
		Min:    s.cfg.ToggleRetryMin,
		Max:    s.cfg.ToggleRetryMax,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 1; ; attempt++ {
		state, err := s.loadState(ctx, gameID)
		if err != nil {
			return nil, err
		}

		next := *state
		mutate(&next)
		err = s.repos.States.CompareAndSwap(ctx, &next, state.Version)
		if err == nil {
			return &next, nil
		}
		if !errors.Is(err, repository.ErrStaleGameState) || attempt >= s.cfg.ToggleRetryAttempts {
			return nil, translateCtxErr(err)
		}

		wait := b.Duration()
		log.Debug().Uint("game_id", gameID).Int("attempt", attempt).Dur("wait", wait).
			Msg("[ProgressionService] Состояние изменено конкурентно, повтор")
		select {
		case <-ctx.Done():
			return nil, translateCtxErr(ctx.Err())
		case <-time.After(wait):
		}
	}
}

// loadState читает состояние игры. Нет состояния - ErrGameNotStarted (или NotFound для несуществующей игры).
func (s *ProgressionService) loadState(ctx context.Context, gameID uint) (*entity.GameState, error) {
	state, err := s.repos.States.GetByGameID(ctx, gameID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, translateCtxErr(err)
	}
	if _, gameErr := s.repos.Games.GetByID(ctx, gameID); gameErr != nil {
		return nil, translateCtxErr(gameErr)
	}
	return nil, fmt.Errorf("%w: game #%d", ErrGameNotStarted, gameID)
}

func (s *ProgressionService) orderedQuestions(ctx context.Context, questions repository.QuestionRepository, gameID uint) ([]entity.OrderedQuestion, error) {
	order, err := questions.ListOrderedByGame(ctx, gameID)
	if err != nil {
		return nil, translateCtxErr(err)
	}
	entity.SortQuestions(order)
	return order, nil
}

func (s *ProgressionService) invalidateScoreboard(ctx context.Context, gameID uint) {
	invalidateScoreboardCache(ctx, s.cache, gameID, "ProgressionService")
}

func (s *ProgressionService) notify(gameID uint, eventType string, data interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BroadcastToGame(gameID, eventType, data); err != nil {
		log.Warn().Err(err).Uint("game_id", gameID).Str("event", eventType).
			Msg("[ProgressionService] Не удалось разослать событие")
	}
}
