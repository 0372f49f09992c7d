package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/trivia-host/internal/config"
	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/domain/repository"
	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
)

const maxResponseLength = 500

// AnswerService принимает ответы команд и сохраняет результаты проверки ведущим
type AnswerService struct {
	repos    repository.Repositories
	uow      repository.UnitOfWork
	scores   *ScoreService
	notifier Notifier
	cfg      config.GameConfig
	now      func() time.Time
}

// NewAnswerService создает сервис ответов
func NewAnswerService(
	repos repository.Repositories,
	uow repository.UnitOfWork,
	scores *ScoreService,
	notifier Notifier,
	cfg config.GameConfig,
) *AnswerService {
	return &AnswerService{
		repos:    repos,
		uow:      uow,
		scores:   scores,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Submit сохраняет ответ команды на текущий вопрос игры с кодом joinCode.
// Проверки состояния и запись ответа выполняются в одной транзакции под блокировкой
// состояния игры, поэтому Advance, переключение приема и Reset не вклиниваются между ними.
func (s *AnswerService) Submit(ctx context.Context, joinCode string, teamID, questionID uint, response string) (*entity.Answer, error) {
	response = strings.TrimSpace(response)
	if teamID == 0 || questionID == 0 {
		return nil, fmt.Errorf("%w: teamId and questionId are required", apperrors.ErrValidation)
	}
	if response == "" {
		return nil, fmt.Errorf("%w: response is empty", apperrors.ErrValidation)
	}
	if len([]rune(response)) > maxResponseLength {
		return nil, fmt.Errorf("%w: response is longer than %d characters", apperrors.ErrValidation, maxResponseLength)
	}

	ctx, cancel := operationContext(ctx, s.cfg.OperationTimeout)
	defer cancel()

	game, err := s.repos.Games.GetByJoinCode(ctx, joinCode)
	if err != nil {
		return nil, translateCtxErr(err)
	}
	if !game.IsLive() {
		return nil, fmt.Errorf("%w: game #%d", repository.ErrGameNotLive, game.ID)
	}
	if _, err := s.repos.Teams.GetByID(ctx, teamID); err != nil {
		return nil, translateCtxErr(err)
	}

	answer := &entity.Answer{
		QuestionID: questionID,
		TeamID:     teamID,
		Response:   response,
	}
	err = s.uow.Do(ctx, func(r repository.Repositories) error {
		state, err := r.States.LockByGameID(ctx, game.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("%w: game #%d", ErrGameNotStarted, game.ID)
			}
			return err
		}
		current, err := r.Games.GetByID(ctx, game.ID)
		if err != nil {
			return err
		}
		if !current.IsLive() {
			return fmt.Errorf("%w: game #%d", repository.ErrGameNotLive, game.ID)
		}
		if !state.IsAcceptingAnswers {
			return fmt.Errorf("%w: game #%d", ErrAnswersClosed, game.ID)
		}
		if !state.IsCurrentQuestion(questionID) {
			return fmt.Errorf("%w: question #%d, game #%d", ErrNotCurrentQuestion, questionID, game.ID)
		}
		return r.Answers.Create(ctx, answer)
	})
	if err != nil {
		return nil, translateCtxErr(err)
	}

	log.Info().Uint("game_id", game.ID).Uint("team_id", teamID).Uint("question_id", questionID).
		Msg("[AnswerService] Ответ принят")
	if s.notifier != nil {
		if err := s.notifier.BroadcastToHosts(game.ID, EventAnswerReceived, AnswerEvent{GameID: game.ID, Answer: answer}); err != nil {
			log.Warn().Err(err).Uint("game_id", game.ID).Msg("[AnswerService] Не удалось уведомить ведущих")
		}
	}
	return answer, nil
}

// Grade сохраняет результат проверки ответа. Без points начисляется стоимость вопроса
// за верный ответ и 0 за неверный.
func (s *AnswerService) Grade(ctx context.Context, gameID, answerID uint, correct bool, points *int) (*entity.Answer, error) {
	if points != nil && *points < 0 {
		return nil, fmt.Errorf("%w: points must not be negative", apperrors.ErrValidation)
	}

	ctx, cancel := operationContext(ctx, s.cfg.OperationTimeout)
	defer cancel()

	answer, err := s.repos.Answers.GetByID(ctx, answerID)
	if err != nil {
		return nil, translateCtxErr(err)
	}
	question, err := s.repos.Questions.GetInGame(ctx, gameID, answer.QuestionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: answer #%d does not belong to game #%d", apperrors.ErrNotFound, answerID, gameID)
		}
		return nil, translateCtxErr(err)
	}

	awarded := question.PointsFor(correct)
	if points != nil && correct {
		awarded = *points
	}

	gradedAt := s.now()
	if err := s.repos.Answers.UpdateGrade(ctx, answerID, correct, awarded, gradedAt); err != nil {
		return nil, translateCtxErr(err)
	}
	answer.IsCorrect = correct
	answer.AwardedPoints = awarded
	answer.GradedAt = &gradedAt

	s.scores.InvalidateScoreboard(ctx, gameID)
	log.Info().Uint("game_id", gameID).Uint("answer_id", answerID).Bool("correct", correct).Int("points", awarded).
		Msg("[AnswerService] Ответ проверен")

	if s.notifier == nil {
		return answer, nil
	}
	if err := s.notifier.BroadcastToHosts(gameID, EventAnswerGraded, AnswerEvent{GameID: gameID, Answer: answer}); err != nil {
		log.Warn().Err(err).Uint("game_id", gameID).Msg("[AnswerService] Не удалось уведомить ведущих")
	}
	s.pushScoresIfVisible(ctx, gameID)
	return answer, nil
}

// pushScoresIfVisible рассылает свежие очки игрокам, если ведущий открыл таблицу
func (s *AnswerService) pushScoresIfVisible(ctx context.Context, gameID uint) {
	state, err := s.repos.States.GetByGameID(ctx, gameID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Warn().Err(err).Uint("game_id", gameID).Msg("[AnswerService] Не удалось прочитать состояние игры")
		}
		return
	}
	if !state.ScoresVisibleToPlayers {
		return
	}
	scores, err := s.scores.sum(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Uint("game_id", gameID).Msg("[AnswerService] Не удалось посчитать очки")
		return
	}
	if err := s.notifier.BroadcastToGame(gameID, EventScoresUpdated, ScoresEvent{GameID: gameID, Scores: scores}); err != nil {
		log.Warn().Err(err).Uint("game_id", gameID).Msg("[AnswerService] Не удалось разослать очки")
	}
}
