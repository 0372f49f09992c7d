package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/domain/repository"
	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
)

func startTestGame(t *testing.T, ts *testServices) {
	t.Helper()
	_, err := ts.progression.Start(context.Background(), testGameID, hostActor)
	require.NoError(t, err, "Игра должна запускаться")
}

func TestProgressionService_Start_InitializesFirstQuestion(t *testing.T) {
	// Arrange
	ts := newTestServices()

	// Act
	game, err := ts.progression.Start(context.Background(), testGameID, hostActor)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.GameStatusLive, game.Status)
	require.NotNil(t, game.HostUserID)
	assert.Equal(t, hostActor.UserID, *game.HostUserID)
	assert.NotNil(t, game.StartedAt)

	state, err := ts.progression.GetState(context.Background(), testGameID)
	require.NoError(t, err)
	require.NotNil(t, state.CurrentQuestionID)
	assert.Equal(t, questionOneID, *state.CurrentQuestionID, "Старт должен указывать на первый вопрос первого раунда")
	assert.Equal(t, roundOneID, *state.CurrentRoundID)
	assert.False(t, state.IsAcceptingAnswers, "Прием ответов после старта закрыт")
	assert.False(t, state.ScoresVisibleToPlayers, "Очки после старта скрыты")
	assert.Equal(t, int64(1), state.Version)
	ts.notifier.AssertCalled(t, "BroadcastToGame", testGameID, EventGameStarted, mock.Anything)
}

func TestProgressionService_Start_GameWithoutQuestions(t *testing.T) {
	// Arrange
	ts := newTestServices()

	// Act
	_, err := ts.progression.Start(context.Background(), emptyGameID, hostActor)
	require.NoError(t, err)
	state, stateErr := ts.progression.GetState(context.Background(), emptyGameID)
	_, advanceErr := ts.progression.Advance(context.Background(), emptyGameID)

	// Assert
	require.NoError(t, stateErr)
	assert.Nil(t, state.CurrentQuestionID)
	assert.ErrorIs(t, advanceErr, ErrNoActiveQuestion)
	assert.ErrorIs(t, advanceErr, apperrors.ErrValidation)
}

func TestProgressionService_Start_Authorization(t *testing.T) {
	tests := []struct {
		name    string
		actor   *entity.Actor
		wantErr error
	}{
		{name: "без сессии", actor: nil, wantErr: apperrors.ErrUnauthorized},
		{name: "нулевой пользователь", actor: &entity.Actor{Role: entity.RoleAdmin}, wantErr: apperrors.ErrUnauthorized},
		{name: "ведущий другой площадки", actor: &entity.Actor{UserID: 9, Role: entity.RoleHost, SiteID: 99}, wantErr: apperrors.ErrForbidden},
		{name: "игрок", actor: &entity.Actor{UserID: 9, Role: "PLAYER", SiteID: testSiteID}, wantErr: apperrors.ErrForbidden},
		{name: "администратор", actor: adminActor, wantErr: nil},
		{name: "ведущий площадки", actor: hostActor, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ts := newTestServices()

			// Act
			_, err := ts.progression.Start(context.Background(), testGameID, tt.actor)

			// Assert
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			_, stateErr := ts.progression.GetState(context.Background(), testGameID)
			assert.ErrorIs(t, stateErr, ErrGameNotStarted, "Отказ в доступе не должен создавать состояние")
		})
	}
}

func TestProgressionService_Start_UnknownGame(t *testing.T) {
	// Arrange
	ts := newTestServices()

	// Act
	_, err := ts.progression.Start(context.Background(), 999, adminActor)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProgressionService_Start_AlreadyLiveLeavesStateUntouched(t *testing.T) {
	// Arrange
	ts := newTestServices()
	startTestGame(t, ts)
	_, err := ts.progression.SetCurrentQuestion(context.Background(), testGameID, questionLastID)
	require.NoError(t, err)
	before, err := ts.progression.GetState(context.Background(), testGameID)
	require.NoError(t, err)

	// Act
	_, err = ts.progression.Start(context.Background(), testGameID, adminActor)

	// Assert
	assert.ErrorIs(t, err, repository.ErrGameAlreadyLive)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	after, err := ts.progression.GetState(context.Background(), testGameID)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, questionLastID, *after.CurrentQuestionID, "Повторный старт не должен сбрасывать текущий вопрос")
}

func TestProgressionService_Advance_WalksRoundsInOrder(t *testing.T) {
	// Arrange
	ts := newTestServices()
	startTestGame(t, ts)

	// Act
	second, err1 := ts.progression.Advance(context.Background(), testGameID)
	third, err2 := ts.progression.Advance(context.Background(), testGameID)
	_, err3 := ts.progression.Advance(context.Background(), testGameID)

	// Assert
	require.NoError(t, err1)
	assert.Equal(t, questionTwoID, *second.CurrentQuestionID)
	assert.Equal(t, roundOneID, *second.CurrentRoundID)
	assert.True(t, second.IsAcceptingAnswers, "Переход открывает прием ответов")
	assert.NotNil(t, second.QuestionStartedAt)

	require.NoError(t, err2)
	assert.Equal(t, questionLastID, *third.CurrentQuestionID, "После последнего вопроса раунда идет первый вопрос следующего")
	assert.Equal(t, roundTwoID, *third.CurrentRoundID)

	assert.ErrorIs(t, err3, ErrAlreadyAtEnd)
	assert.ErrorIs(t, err3, apperrors.ErrConflict)

	state, err := ts.progression.GetState(context.Background(), testGameID)
	require.NoError(t, err)
	assert.Equal(t, questionLastID, *state.CurrentQuestionID, "Ошибка в конце не меняет состояние")
	assert.Equal(t, third.Version, state.Version)
	ts.notifier.AssertNumberOfCalls(t, "BroadcastToGame", 3)
}

func TestProgressionService_Advance_NotStarted(t *testing.T) {
	// Arrange
	ts := newTestServices()

	// Act
	_, err := ts.progression.Advance(context.Background(), testGameID)
	_, unknownErr := ts.progression.Advance(context.Background(), 999)

	// Assert
	assert.ErrorIs(t, err, ErrGameNotStarted)
	assert.ErrorIs(t, unknownErr, apperrors.ErrNotFound)
	assert.NotErrorIs(t, unknownErr, ErrGameNotStarted)
}

func TestProgressionService_Advance_ConcurrentCallsSingleWinner(t *testing.T) {
	// Arrange
	const racers = 6
	ts := newTestServices()
	startTestGame(t, ts)

	var ready sync.WaitGroup
	ready.Add(racers)
	repos := ts.store.Repositories()
	repos.States = &barrierStates{GameStateRepository: repos.States, ready: &ready}
	racing := NewProgressionService(repos, ts.store, nil, ts.notifier, testGameConfig())

	var wg sync.WaitGroup
	errs := make([]error, racers)

	// Act
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = racing.Advance(context.Background(), testGameID)
		}(i)
	}
	wg.Wait()

	// Assert
	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrStaleGameState)
	}
	assert.Equal(t, 1, wins, "Ровно один конкурентный переход должен победить")

	state, err := ts.progression.GetState(context.Background(), testGameID)
	require.NoError(t, err)
	assert.Equal(t, questionTwoID, *state.CurrentQuestionID, "Игра не должна перескочить вопрос")
	assert.Equal(t, int64(2), state.Version)
}

func TestProgressionService_SetCurrentQuestion(t *testing.T) {
	// Arrange
	ts := newTestServices()
	startTestGame(t, ts)

	// Act
	_, zeroErr := ts.progression.SetCurrentQuestion(context.Background(), testGameID, 0)
	_, foreignErr := ts.progression.SetCurrentQuestion(context.Background(), testGameID, otherQuestion)
	_, missingErr := ts.progression.SetCurrentQuestion(context.Background(), testGameID, 5555)
	state, err := ts.progression.SetCurrentQuestion(context.Background(), testGameID, questionLastID)

	// Assert
	assert.ErrorIs(t, zeroErr, apperrors.ErrValidation)
	assert.ErrorIs(t, foreignErr, apperrors.ErrNotFound, "Вопрос другой игры не найден в этой игре")
	assert.ErrorIs(t, missingErr, apperrors.ErrNotFound)

	require.NoError(t, err)
	assert.Equal(t, questionLastID, *state.CurrentQuestionID)
	assert.Equal(t, roundTwoID, *state.CurrentRoundID, "Раунд берется из вопроса")
	assert.Equal(t, int64(2), state.Version)
	ts.notifier.AssertCalled(t, "BroadcastToGame", testGameID, EventQuestionChanged, mock.Anything)
}

func TestProgressionService_SetCurrentQuestion_NotStarted(t *testing.T) {
	// Arrange
	ts := newTestServices()

	// Act
	_, err := ts.progression.SetCurrentQuestion(context.Background(), testGameID, questionOneID)

	// Assert
	assert.ErrorIs(t, err, ErrGameNotStarted)
}

func TestProgressionService_Toggles(t *testing.T) {
	// Arrange
	ts := newTestServices()
	startTestGame(t, ts)

	// Act
	accepting, err1 := ts.progression.SetAcceptingAnswers(context.Background(), testGameID, true)
	visible, err2 := ts.progression.SetScoresVisible(context.Background(), testGameID, true)

	// Assert
	require.NoError(t, err1)
	assert.True(t, accepting.IsAcceptingAnswers)
	assert.Equal(t, questionOneID, *accepting.CurrentQuestionID, "Переключение флага не трогает текущий вопрос")

	require.NoError(t, err2)
	assert.True(t, visible.ScoresVisibleToPlayers)
	assert.True(t, visible.IsAcceptingAnswers)
	assert.Equal(t, int64(3), visible.Version)

	ts.notifier.AssertCalled(t, "BroadcastToGame", testGameID, EventGameStateUpdated, mock.Anything)
	ts.notifier.AssertCalled(t, "BroadcastToGame", testGameID, EventScoresUpdated, ScoresEvent{GameID: testGameID, Scores: []entity.TeamScore{}})
}

func TestProgressionService_Toggle_RetriesConcurrentModification(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		wantErr   bool
		wantCalls int
	}{
		{name: "успех после повторов", failures: 2, wantErr: false, wantCalls: 3},
		{name: "попытки исчерпаны", failures: 3, wantErr: true, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ts := newTestServices()
			startTestGame(t, ts)
			repos := ts.store.Repositories()
			flaky := &flakyStates{GameStateRepository: repos.States, failures: tt.failures}
			repos.States = flaky
			svc := NewProgressionService(repos, ts.store, nil, ts.notifier, testGameConfig())

			// Act
			state, err := svc.SetAcceptingAnswers(context.Background(), testGameID, true)

			// Assert
			assert.Equal(t, tt.wantCalls, flaky.calls)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrConflict)
				return
			}
			require.NoError(t, err)
			assert.True(t, state.IsAcceptingAnswers)
		})
	}
}

func TestProgressionService_Toggle_NotStarted(t *testing.T) {
	// Arrange
	ts := newTestServices()

	// Act
	_, err := ts.progression.SetScoresVisible(context.Background(), testGameID, true)

	// Assert
	assert.ErrorIs(t, err, ErrGameNotStarted)
}

func TestProgressionService_SetScoresVisible_InvalidatesCache(t *testing.T) {
	// Arrange
	store := newTestStore()
	cache := new(MockCacheRepository)
	cache.On("Increment", mock.Anything, "scoreboard:game:1:gen").Return(int64(1), nil)
	svc := NewProgressionService(store.Repositories(), store, cache, nil, testGameConfig())
	_, err := svc.Start(context.Background(), testGameID, hostActor)
	require.NoError(t, err)

	// Act
	_, err = svc.SetScoresVisible(context.Background(), testGameID, false)

	// Assert
	require.NoError(t, err)
	cache.AssertCalled(t, "Increment", mock.Anything, "scoreboard:game:1:gen")
}

func TestProgressionService_End(t *testing.T) {
	// Arrange
	ts := newTestServices()
	startTestGame(t, ts)
	_, err := ts.progression.SetAcceptingAnswers(context.Background(), testGameID, true)
	require.NoError(t, err)

	// Act
	game, err := ts.progression.End(context.Background(), testGameID)
	_, againErr := ts.progression.End(context.Background(), testGameID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.GameStatusEnded, game.Status)
	assert.NotNil(t, game.EndedAt)
	state, err := ts.progression.GetState(context.Background(), testGameID)
	require.NoError(t, err)
	assert.False(t, state.IsAcceptingAnswers, "Завершение закрывает прием ответов")
	assert.ErrorIs(t, againErr, repository.ErrGameNotLive)
}

func TestProgressionService_Start_AfterEndRestartsFromFirstQuestion(t *testing.T) {
	// Arrange
	ts := newTestServices()
	startTestGame(t, ts)
	_, err := ts.progression.Advance(context.Background(), testGameID)
	require.NoError(t, err)
	_, err = ts.progression.End(context.Background(), testGameID)
	require.NoError(t, err)

	// Act
	game, err := ts.progression.Start(context.Background(), testGameID, hostActor)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.GameStatusLive, game.Status)
	assert.Nil(t, game.EndedAt)
	state, err := ts.progression.GetState(context.Background(), testGameID)
	require.NoError(t, err)
	assert.Equal(t, questionOneID, *state.CurrentQuestionID)
	assert.False(t, state.IsAcceptingAnswers)
	assert.Greater(t, state.Version, int64(3), "Версия продолжает расти после перезапуска")
}

func TestProgressionService_Advance_StaleAfterResetAndRestart(t *testing.T) {
	// Arrange
	ts := newTestServices()
	startTestGame(t, ts)
	repos := ts.store.Repositories()
	var restartErr error
	repos.States = &readHookStates{
		GameStateRepository: repos.States,
		afterRead: func() {
			if restartErr = ts.progression.Reset(context.Background(), testGameID); restartErr != nil {
				return
			}
			_, restartErr = ts.progression.Start(context.Background(), testGameID, hostActor)
		},
	}
	svc := NewProgressionService(repos, ts.store, nil, nil, testGameConfig())

	// Act: Advance прочитал состояние до сброса, а записывает после нового запуска
	_, err := svc.Advance(context.Background(), testGameID)

	// Assert
	require.NoError(t, restartErr)
	assert.ErrorIs(t, err, repository.ErrStaleGameState)
	state, err := ts.progression.GetState(context.Background(), testGameID)
	require.NoError(t, err)
	assert.Equal(t, questionOneID, *state.CurrentQuestionID, "Новый запуск остается на первом вопросе")
	assert.Equal(t, int64(2), state.Version, "Версия продолжает нумерацию удаленного состояния")
}

func submitAndGrade(t *testing.T, ts *testServices, teamID, questionID uint, correct bool, points *int) {
	t.Helper()
	answer, err := ts.answers.Submit(context.Background(), testJoinCode, teamID, questionID, "ответ")
	require.NoError(t, err)
	_, err = ts.answers.Grade(context.Background(), testGameID, answer.ID, correct, points)
	require.NoError(t, err)
}

func TestProgressionService_Reset(t *testing.T) {
	// Arrange
	ts := newTestServices()
	startTestGame(t, ts)
	_, err := ts.progression.SetAcceptingAnswers(context.Background(), testGameID, true)
	require.NoError(t, err)
	submitAndGrade(t, ts, teamAID, questionOneID, true, nil)

	_, err = ts.progression.Start(context.Background(), otherGameID, hostActor)
	require.NoError(t, err)
	_, err = ts.progression.SetAcceptingAnswers(context.Background(), otherGameID, true)
	require.NoError(t, err)
	_, err = ts.answers.Submit(context.Background(), otherJoinCode, teamAID, otherQuestion, "чужой ответ")
	require.NoError(t, err)

	// Act
	err = ts.progression.Reset(context.Background(), testGameID)

	// Assert
	require.NoError(t, err)
	game, err := ts.store.Repositories().Games.GetByID(context.Background(), testGameID)
	require.NoError(t, err)
	assert.Equal(t, entity.GameStatusDraft, game.Status)
	assert.Nil(t, game.HostUserID)
	assert.Nil(t, game.StartedAt)

	_, err = ts.progression.GetState(context.Background(), testGameID)
	assert.ErrorIs(t, err, ErrGameNotStarted)

	scores, err := ts.scores.ComputeScores(context.Background(), testGameID)
	require.NoError(t, err)
	assert.Empty(t, scores)

	_, err = ts.answers.Submit(context.Background(), otherJoinCode, teamAID, otherQuestion, "еще раз")
	assert.ErrorIs(t, err, repository.ErrDuplicateAnswer, "Ответы другой игры должны сохраниться")
	ts.notifier.AssertCalled(t, "BroadcastToGame", testGameID, EventGameReset, mock.Anything)
}

func TestProgressionService_Reset_IsAtomic(t *testing.T) {
	boom := errors.New("database unavailable")

	tests := []struct {
		name string
		wrap func(r repository.Repositories) repository.Repositories
	}{
		{
			name: "сбой при удалении ответов",
			wrap: func(r repository.Repositories) repository.Repositories {
				r.Answers = &failingAnswers{AnswerRepository: r.Answers, err: boom}
				return r
			},
		},
		{
			name: "сбой при сбросе статуса",
			wrap: func(r repository.Repositories) repository.Repositories {
				r.Games = &failingGames{GameRepository: r.Games, err: boom}
				return r
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ts := newTestServices()
			startTestGame(t, ts)
			_, err := ts.progression.SetAcceptingAnswers(context.Background(), testGameID, true)
			require.NoError(t, err)
			submitAndGrade(t, ts, teamAID, questionOneID, true, nil)

			uow := &failingUnitOfWork{store: ts.store, wrap: tt.wrap}
			svc := NewProgressionService(ts.store.Repositories(), uow, nil, ts.notifier, testGameConfig())

			// Act
			err = svc.Reset(context.Background(), testGameID)

			// Assert
			assert.ErrorIs(t, err, boom)
			game, err := ts.store.Repositories().Games.GetByID(context.Background(), testGameID)
			require.NoError(t, err)
			assert.Equal(t, entity.GameStatusLive, game.Status, "Статус не должен измениться")
			_, err = ts.progression.GetState(context.Background(), testGameID)
			assert.NoError(t, err, "Состояние не должно быть удалено")
			scores, err := ts.scores.ComputeScores(context.Background(), testGameID)
			require.NoError(t, err)
			assert.Equal(t, []entity.TeamScore{{TeamID: teamAID, Score: 2}}, scores, "Ответы не должны быть удалены")
			ts.notifier.AssertNotCalled(t, "BroadcastToGame", testGameID, EventGameReset, mock.Anything)
		})
	}
}

func TestProgressionService_Reset_UnknownGame(t *testing.T) {
	// Arrange
	ts := newTestServices()

	// Act
	err := ts.progression.Reset(context.Background(), 999)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProgressionService_OperationsHonorCanceledContext(t *testing.T) {
	// Arrange
	ts := newTestServices()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	_, err := ts.progression.Start(ctx, testGameID, hostActor)

	// Assert
	assert.ErrorIs(t, err, context.Canceled)
	_, stateErr := ts.progression.GetState(context.Background(), testGameID)
	assert.ErrorIs(t, stateErr, ErrGameNotStarted)
}
