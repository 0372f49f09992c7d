package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/domain/repository"
)

// dataset - все данные хранилища. Транзакция работает с копией и подменяет оригинал при успехе.
type dataset struct {
	games     map[uint]entity.Game
	states    map[uint]entity.GameState
	rounds    map[uint]entity.Round
	questions map[uint]entity.Question
	answers   map[uint]entity.Answer
	teams     map[uint]entity.Team
	lastID    uint
}

func newDataset() *dataset {
	return &dataset{
		games:     make(map[uint]entity.Game),
		states:    make(map[uint]entity.GameState),
		rounds:    make(map[uint]entity.Round),
		questions: make(map[uint]entity.Question),
		answers:   make(map[uint]entity.Answer),
		teams:     make(map[uint]entity.Team),
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		games:     make(map[uint]entity.Game, len(d.games)),
		states:    make(map[uint]entity.GameState, len(d.states)),
		rounds:    make(map[uint]entity.Round, len(d.rounds)),
		questions: make(map[uint]entity.Question, len(d.questions)),
		answers:   make(map[uint]entity.Answer, len(d.answers)),
		teams:     make(map[uint]entity.Team, len(d.teams)),
		lastID:    d.lastID,
	}
	// Значения хранятся по значению; указатели внутри (время, ID) никогда не изменяются на месте.
	for k, v := range d.games {
		c.games[k] = v
	}
	for k, v := range d.states {
		c.states[k] = v
	}
	for k, v := range d.rounds {
		c.rounds[k] = v
	}
	for k, v := range d.questions {
		c.questions[k] = v
	}
	for k, v := range d.answers {
		c.answers[k] = v
	}
	for k, v := range d.teams {
		c.teams[k] = v
	}
	return c
}

func (d *dataset) nextID() uint {
	d.lastID++
	return d.lastID
}

// questionInGame проверяет, что вопрос принадлежит раунду игры
func (d *dataset) questionInGame(gameID, questionID uint) (entity.Question, bool) {
	q, ok := d.questions[questionID]
	if !ok {
		return entity.Question{}, false
	}
	r, ok := d.rounds[q.RoundID]
	if !ok || r.GameID != gameID {
		return entity.Question{}, false
	}
	return q, true
}

// Store - хранилище в памяти процесса. Используется драйвером "memory" и в тестах.
type Store struct {
	mu   sync.Mutex
	data *dataset
	now  func() time.Time
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		data: newDataset(),
		now:  time.Now,
	}
}

// read выполняет fn над текущими данными под мьютексом (вне транзакции)
// или над данными транзакции (мьютекс уже захвачен в Do).
func (s *Store) read(tx *dataset, fn func(d *dataset) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Repositories возвращает репозитории, работающие вне транзакции
func (s *Store) Repositories() repository.Repositories {
	return s.bind(nil)
}

func (s *Store) bind(tx *dataset) repository.Repositories {
	return repository.Repositories{
		Games:     &GameRepo{store: s, tx: tx},
		States:    &GameStateRepo{store: s, tx: tx},
		Questions: &QuestionRepo{store: s, tx: tx},
		Answers:   &AnswerRepo{store: s, tx: tx},
		Teams:     &TeamRepo{store: s, tx: tx},
	}
}

// Do реализует repository.UnitOfWork. Транзакции выполняются последовательно,
// изменения видны другим только после успешного завершения fn.
func (s *Store) Do(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(s.bind(work)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = work
	return nil
}

// AddGame добавляет игру. Пустой статус становится DRAFT.
func (s *Store) AddGame(game *entity.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game.ID = s.assignID(game.ID)
	if game.Status == "" {
		game.Status = entity.GameStatusDraft
	}
	game.CreatedAt = s.now()
	game.UpdatedAt = game.CreatedAt
	s.data.games[game.ID] = *game
}

// AddRound добавляет раунд
func (s *Store) AddRound(round *entity.Round) {
	s.mu.Lock()
	defer s.mu.Unlock()
	round.ID = s.assignID(round.ID)
	s.data.rounds[round.ID] = *round
}

// AddQuestion добавляет вопрос. Нулевая стоимость становится 1.
func (s *Store) AddQuestion(question *entity.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	question.ID = s.assignID(question.ID)
	if question.Points == 0 {
		question.Points = 1
	}
	question.CreatedAt = s.now()
	s.data.questions[question.ID] = *question
}

// AddTeam добавляет команду
func (s *Store) AddTeam(team *entity.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team.ID = s.assignID(team.ID)
	s.data.teams[team.ID] = *team
}

func (s *Store) assignID(id uint) uint {
	if id == 0 {
		return s.data.nextID()
	}
	if id > s.data.lastID {
		s.data.lastID = id
	}
	return id
}

// fixtureQuestion читает correctAnswer, который в entity.Question скрыт из JSON
type fixtureQuestion struct {
	entity.Question
	CorrectAnswer string `json:"correctAnswer"`
}

// LoadFixture загружает начальные данные из JSON файла
func (s *Store) LoadFixture(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", path, err)
	}
	var fx struct {
		Games     []entity.Game     `json:"games"`
		Rounds    []entity.Round    `json:"rounds"`
		Questions []fixtureQuestion `json:"questions"`
		Teams     []entity.Team     `json:"teams"`
	}
	if err := json.Unmarshal(raw, &fx); err != nil {
		return fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for i := range fx.Games {
		s.AddGame(&fx.Games[i])
	}
	for i := range fx.Rounds {
		s.AddRound(&fx.Rounds[i])
	}
	for i := range fx.Questions {
		q := fx.Questions[i].Question
		q.CorrectAnswer = fx.Questions[i].CorrectAnswer
		s.AddQuestion(&q)
	}
	for i := range fx.Teams {
		s.AddTeam(&fx.Teams[i])
	}
	return nil
}
