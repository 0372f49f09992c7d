package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/domain/repository"
	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
)

// seedTwoGames создает две игры с вопросами, чтобы проверять, что операции не задевают чужую игру
func seedTwoGames(t *testing.T) (*Store, uint, uint, uint, uint) {
	t.Helper()
	s := NewStore()

	g1 := &entity.Game{Title: "Квиз 1", JoinCode: "AAAA", SiteID: 1}
	g2 := &entity.Game{Title: "Квиз 2", JoinCode: "BBBB", SiteID: 1}
	s.AddGame(g1)
	s.AddGame(g2)

	r1 := &entity.Round{GameID: g1.ID}
	r2 := &entity.Round{GameID: g2.ID}
	s.AddRound(r1)
	s.AddRound(r2)

	q1 := &entity.Question{RoundID: r1.ID, Text: "Q1", Points: 10}
	q2 := &entity.Question{RoundID: r2.ID, Text: "Q2", Points: 5}
	s.AddQuestion(q1)
	s.AddQuestion(q2)

	return s, g1.ID, g2.ID, q1.ID, q2.ID
}

func TestStore_DoRollsBackOnError(t *testing.T) {
	// Arrange
	s, gameID, _, _, _ := seedTwoGames(t)
	ctx := context.Background()
	boom := errors.New("boom")

	// Act
	err := s.Do(ctx, func(r repository.Repositories) error {
		require.NoError(t, r.States.Create(ctx, &entity.GameState{GameID: gameID}))
		require.NoError(t, r.Games.ResetToDraft(ctx, gameID, 0))
		return boom
	})

	// Assert
	assert.ErrorIs(t, err, boom)
	_, err = s.Repositories().States.GetByGameID(ctx, gameID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "Состояние не должно появиться после отката")
}

func TestStore_DoCommits(t *testing.T) {
	s, gameID, _, _, _ := seedTwoGames(t)
	ctx := context.Background()

	err := s.Do(ctx, func(r repository.Repositories) error {
		return r.States.Create(ctx, &entity.GameState{GameID: gameID})
	})

	require.NoError(t, err)
	state, err := s.Repositories().States.GetByGameID(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Version)
}

func TestGameStateRepo_CompareAndSwap(t *testing.T) {
	// Arrange
	s, gameID, _, _, _ := seedTwoGames(t)
	ctx := context.Background()
	states := s.Repositories().States
	require.NoError(t, states.Create(ctx, &entity.GameState{GameID: gameID}))

	// Act: первая запись с версией 1 проходит
	next := &entity.GameState{GameID: gameID, IsAcceptingAnswers: true}
	err := states.CompareAndSwap(ctx, next, 1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Version)

	// Act: повторная запись с устаревшей версией отклоняется
	stale := &entity.GameState{GameID: gameID}
	err = states.CompareAndSwap(ctx, stale, 1)

	// Assert
	assert.ErrorIs(t, err, repository.ErrStaleGameState)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	current, err := states.GetByGameID(ctx, gameID)
	require.NoError(t, err)
	assert.True(t, current.IsAcceptingAnswers, "Устаревшая запись не должна применяться")
}

func TestGameStateRepo_CreateTwiceConflicts(t *testing.T) {
	s, gameID, _, _, _ := seedTwoGames(t)
	ctx := context.Background()
	states := s.Repositories().States

	require.NoError(t, states.Create(ctx, &entity.GameState{GameID: gameID}))
	err := states.Create(ctx, &entity.GameState{GameID: gameID})

	assert.ErrorIs(t, err, apperrors.ErrConflict, "Не более одного состояния на игру")
}

func TestGameStateRepo_RecreatedStateContinuesVersion(t *testing.T) {
	// Arrange
	s, gameID, _, _, _ := seedTwoGames(t)
	ctx := context.Background()
	repos := s.Repositories()
	require.NoError(t, repos.States.Create(ctx, &entity.GameState{GameID: gameID}))
	require.NoError(t, repos.States.CompareAndSwap(ctx, &entity.GameState{GameID: gameID, ScoresVisibleToPlayers: true}, 1))
	require.NoError(t, repos.States.DeleteByGameID(ctx, gameID))
	require.NoError(t, repos.Games.ResetToDraft(ctx, gameID, 2))
	require.NoError(t, repos.Games.ResetToDraft(ctx, gameID, 0))

	// Act
	game, err := repos.Games.GetByID(ctx, gameID)
	require.NoError(t, err)
	recreated := &entity.GameState{GameID: gameID, Version: game.LastStateVersion}
	require.NoError(t, repos.States.Create(ctx, recreated))
	staleErr := repos.States.CompareAndSwap(ctx, &entity.GameState{GameID: gameID, ScoresVisibleToPlayers: true}, 1)

	// Assert
	assert.Equal(t, int64(2), game.LastStateVersion, "Сохраненная версия не уменьшается")
	assert.Equal(t, int64(3), recreated.Version)
	assert.ErrorIs(t, staleErr, repository.ErrStaleGameState, "Версия, прочитанная до сброса, не подходит новому состоянию")
	current, err := repos.States.GetByGameID(ctx, gameID)
	require.NoError(t, err)
	assert.False(t, current.ScoresVisibleToPlayers)
}

func TestGameRepo_MarkLive(t *testing.T) {
	s, gameID, _, _, _ := seedTwoGames(t)
	ctx := context.Background()
	games := s.Repositories().Games

	require.NoError(t, games.MarkLive(ctx, gameID, 42, s.now()))
	game, err := games.GetByID(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, entity.GameStatusLive, game.Status)
	assert.Equal(t, uint(42), *game.HostUserID)

	err = games.MarkLive(ctx, gameID, 43, s.now())
	assert.ErrorIs(t, err, repository.ErrGameAlreadyLive)
}

func TestAnswerRepo_DuplicateAnswer(t *testing.T) {
	s, _, _, q1, _ := seedTwoGames(t)
	ctx := context.Background()
	answers := s.Repositories().Answers

	require.NoError(t, answers.Create(ctx, &entity.Answer{QuestionID: q1, TeamID: 7}))
	err := answers.Create(ctx, &entity.Answer{QuestionID: q1, TeamID: 7})

	assert.ErrorIs(t, err, repository.ErrDuplicateAnswer)
}

func TestAnswerRepo_DeleteByGameAndSum(t *testing.T) {
	// Arrange
	s, g1, g2, q1, q2 := seedTwoGames(t)
	ctx := context.Background()
	answers := s.Repositories().Answers
	for _, a := range []*entity.Answer{
		{QuestionID: q1, TeamID: 7, IsCorrect: true, AwardedPoints: 10},
		{QuestionID: q1, TeamID: 8, IsCorrect: false},
		{QuestionID: q2, TeamID: 7, IsCorrect: true, AwardedPoints: 5},
	} {
		require.NoError(t, answers.Create(ctx, a))
	}

	// Act & Assert: сумма считается только по вопросам игры
	scores, err := answers.SumCorrectByTeam(ctx, g1)
	require.NoError(t, err)
	assert.Equal(t, []entity.TeamScore{{TeamID: 7, Score: 10}}, scores)

	// Act & Assert: удаление не задевает другую игру
	deleted, err := answers.DeleteByGame(ctx, g1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	scores, err = answers.SumCorrectByTeam(ctx, g2)
	require.NoError(t, err)
	assert.Equal(t, []entity.TeamScore{{TeamID: 7, Score: 5}}, scores)
}

func TestQuestionRepo_GetInGame(t *testing.T) {
	s, g1, _, q1, q2 := seedTwoGames(t)
	ctx := context.Background()
	questions := s.Repositories().Questions

	q, err := questions.GetInGame(ctx, g1, q1)
	require.NoError(t, err)
	assert.Equal(t, "Q1", q.Text)

	_, err = questions.GetInGame(ctx, g1, q2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "Вопрос другой игры не принадлежит этой игре")
}

func TestStore_LoadFixture(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "fixture.json")
	fixture := `{
		"games": [{"id": 1, "title": "Пятничный квиз", "joinCode": "FRI1", "siteId": 3}],
		"rounds": [{"id": 10, "gameId": 1, "sortOrder": 0}],
		"questions": [{"id": 100, "roundId": 10, "text": "Столица Франции?", "correctAnswer": "Париж", "points": 2}],
		"teams": [{"id": 7, "name": "Совы"}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))
	s := NewStore()
	ctx := context.Background()

	// Act
	err := s.LoadFixture(path)

	// Assert
	require.NoError(t, err)
	game, err := s.Repositories().Games.GetByJoinCode(ctx, "FRI1")
	require.NoError(t, err)
	assert.Equal(t, entity.GameStatusDraft, game.Status)
	q, err := s.Repositories().Questions.GetInGame(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, "Париж", q.CorrectAnswer)
	assert.Equal(t, 2, q.Points)

	// Новые записи получают ID после загруженных
	team := &entity.Team{Name: "Лисы"}
	s.AddTeam(team)
	assert.Greater(t, team.ID, uint(100))
}
