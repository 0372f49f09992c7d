package service

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/trivia-host/internal/config"
	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/domain/repository"
	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
	"github.com/yourusername/trivia-host/internal/repository/memory"
)

// ============================================================================
// Моки
// ============================================================================

// MockNotifier реализует Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) BroadcastToGame(gameID uint, eventType string, data interface{}) error {
	args := m.Called(gameID, eventType, data)
	return args.Error(0)
}

func (m *MockNotifier) BroadcastToHosts(gameID uint, eventType string, data interface{}) error {
	args := m.Called(gameID, eventType, data)
	return args.Error(0)
}

func newAcceptingNotifier() *MockNotifier {
	n := new(MockNotifier)
	n.On("BroadcastToGame", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	n.On("BroadcastToHosts", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return n
}

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheRepository) Increment(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

// memoryCache - кеш в памяти с поведением CacheRepo (JSON значения, счетчики)
type memoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.values[key]
	c.mu.Unlock()
	if !ok {
		return apperrors.ErrNotFound
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *memoryCache) Increment(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if data, ok := c.values[key]; ok {
		if err := json.Unmarshal(data, &n); err != nil {
			return 0, err
		}
	}
	n++
	c.values[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

// barrierStates задерживает каждое чтение состояния, пока его не выполнят все участники гонки
type barrierStates struct {
	repository.GameStateRepository
	ready *sync.WaitGroup
}

func (b *barrierStates) GetByGameID(ctx context.Context, gameID uint) (*entity.GameState, error) {
	state, err := b.GameStateRepository.GetByGameID(ctx, gameID)
	b.ready.Done()
	b.ready.Wait()
	return state, err
}

// flakyStates отклоняет первые failures попыток CompareAndSwap как конкурентные
type flakyStates struct {
	repository.GameStateRepository
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyStates) CompareAndSwap(ctx context.Context, state *entity.GameState, expectedVersion int64) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return repository.ErrStaleGameState
	}
	return f.GameStateRepository.CompareAndSwap(ctx, state, expectedVersion)
}

// failingUnitOfWork подменяет репозитории внутри транзакции хранилища
type failingUnitOfWork struct {
	store *memory.Store
	wrap  func(r repository.Repositories) repository.Repositories
}

func (u *failingUnitOfWork) Do(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return u.store.Do(ctx, func(r repository.Repositories) error {
		return fn(u.wrap(r))
	})
}

// failingStates возвращает err при чтении состояния
type failingStates struct {
	repository.GameStateRepository
	err error
}

func (f *failingStates) GetByGameID(ctx context.Context, gameID uint) (*entity.GameState, error) {
	return nil, f.err
}

// readHookStates вызывает afterRead один раз после первого чтения состояния
type readHookStates struct {
	repository.GameStateRepository
	once      sync.Once
	afterRead func()
}

func (h *readHookStates) GetByGameID(ctx context.Context, gameID uint) (*entity.GameState, error) {
	state, err := h.GameStateRepository.GetByGameID(ctx, gameID)
	h.once.Do(h.afterRead)
	return state, err
}

// lockHookStates вызывает onLock один раз сразу после блокировки состояния в транзакции
type lockHookStates struct {
	repository.GameStateRepository
	once   *sync.Once
	onLock func()
}

func (h *lockHookStates) LockByGameID(ctx context.Context, gameID uint) (*entity.GameState, error) {
	state, err := h.GameStateRepository.LockByGameID(ctx, gameID)
	h.once.Do(h.onLock)
	return state, err
}

// sumHookAnswers вызывает afterSum один раз после первого подсчета очков
type sumHookAnswers struct {
	repository.AnswerRepository
	once     sync.Once
	afterSum func()
}

func (h *sumHookAnswers) SumCorrectByTeam(ctx context.Context, gameID uint) ([]entity.TeamScore, error) {
	scores, err := h.AnswerRepository.SumCorrectByTeam(ctx, gameID)
	h.once.Do(h.afterSum)
	return scores, err
}

// lookupHookTeams вызывает afterLookup после каждого чтения команды
type lookupHookTeams struct {
	repository.TeamRepository
	afterLookup func()
}

func (h *lookupHookTeams) GetByID(ctx context.Context, id uint) (*entity.Team, error) {
	team, err := h.TeamRepository.GetByID(ctx, id)
	h.afterLookup()
	return team, err
}

type failingAnswers struct {
	repository.AnswerRepository
	err error
}

func (f *failingAnswers) DeleteByGame(ctx context.Context, gameID uint) (int64, error) {
	return 0, f.err
}

type failingGames struct {
	repository.GameRepository
	err error
}

func (f *failingGames) ResetToDraft(ctx context.Context, id uint, lastStateVersion int64) error {
	return f.err
}

// ============================================================================
// Тестовые данные
// ============================================================================

const (
	testGameID     uint = 1
	otherGameID    uint = 2
	emptyGameID    uint = 3
	testSiteID     uint = 10
	testJoinCode        = "QUIZ01"
	otherJoinCode       = "QUIZ02"
	roundOneID     uint = 11
	roundTwoID     uint = 12
	questionOneID  uint = 101
	questionTwoID  uint = 102
	questionLastID uint = 103
	otherQuestion  uint = 104
	teamAID        uint = 201
	teamBID        uint = 202
)

var (
	hostActor  = &entity.Actor{UserID: 7, Role: entity.RoleHost, SiteID: testSiteID}
	adminActor = &entity.Actor{UserID: 1, Role: entity.RoleAdmin}
)

func testGameConfig() config.GameConfig {
	return config.GameConfig{
		OperationTimeout:    2 * time.Second,
		ToggleRetryAttempts: 3,
		ToggleRetryMin:      time.Millisecond,
		ToggleRetryMax:      2 * time.Millisecond,
		ScoreboardCacheTTL:  5 * time.Second,
	}
}

// newTestStore создает игру: раунд 1 (Q101, Q102), раунд 2 (Q103).
// Вопросы и раунды добавляются не по порядку, чтобы порядок определяла сортировка.
func newTestStore() *memory.Store {
	store := memory.NewStore()
	store.AddGame(&entity.Game{ID: testGameID, Title: "Пятничный квиз", JoinCode: testJoinCode, SiteID: testSiteID})
	store.AddGame(&entity.Game{ID: otherGameID, Title: "Другая игра", JoinCode: otherJoinCode, SiteID: testSiteID})
	store.AddGame(&entity.Game{ID: emptyGameID, Title: "Пустая игра", JoinCode: "EMPTY1", SiteID: testSiteID})

	store.AddRound(&entity.Round{ID: roundTwoID, GameID: testGameID, Title: "Раунд 2", SortOrder: 1})
	store.AddRound(&entity.Round{ID: roundOneID, GameID: testGameID, Title: "Раунд 1", SortOrder: 0})
	store.AddRound(&entity.Round{ID: 21, GameID: otherGameID, Title: "Раунд", SortOrder: 0})

	store.AddQuestion(&entity.Question{ID: questionLastID, RoundID: roundTwoID, Text: "Q3", SortOrder: 0})
	store.AddQuestion(&entity.Question{ID: questionTwoID, RoundID: roundOneID, Text: "Q2", SortOrder: 1})
	store.AddQuestion(&entity.Question{ID: questionOneID, RoundID: roundOneID, Text: "Q1", SortOrder: 0, Points: 2})
	store.AddQuestion(&entity.Question{ID: otherQuestion, RoundID: 21, Text: "Q4", SortOrder: 0})

	store.AddTeam(&entity.Team{ID: teamAID, Name: "Альфа"})
	store.AddTeam(&entity.Team{ID: teamBID, Name: "Бета"})
	return store
}

type testServices struct {
	store       *memory.Store
	notifier    *MockNotifier
	progression *ProgressionService
	scores      *ScoreService
	answers     *AnswerService
}

func newTestServices() *testServices {
	store := newTestStore()
	notifier := newAcceptingNotifier()
	repos := store.Repositories()
	scores := NewScoreService(repos, nil, testGameConfig())
	return &testServices{
		store:       store,
		notifier:    notifier,
		progression: NewProgressionService(repos, store, nil, notifier, testGameConfig()),
		scores:      scores,
		answers:     NewAnswerService(repos, store, scores, notifier, testGameConfig()),
	}
}
