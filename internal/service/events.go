package service

import (
	"time"

	"github.com/yourusername/trivia-host/internal/domain/entity"
)

// Типы событий, которые сервисы рассылают подключенным клиентам игры
const (
	EventGameStarted      = "game:started"
	EventQuestionChanged  = "game:questionChanged"
	EventQuestionAdvanced = "game:questionAdvanced"
	EventGameStateUpdated = "game:stateUpdated"
	EventGameEnded        = "game:ended"
	EventGameReset        = "game:reset"
	EventAnswerReceived   = "answer:received"
	EventAnswerGraded     = "answer:graded"
	EventScoresUpdated    = "scores:updated"
)

// Notifier рассылает события игры клиентам реального времени.
// Вызывается только после фиксации изменений.
type Notifier interface {
	// BroadcastToGame отправляет событие всем клиентам игры
	BroadcastToGame(gameID uint, eventType string, data interface{}) error
	// BroadcastToHosts отправляет событие только ведущим игры
	BroadcastToHosts(gameID uint, eventType string, data interface{}) error
}

// GameStateEvent - данные событий об изменении состояния
type GameStateEvent struct {
	GameID uint              `json:"gameId"`
	Status string            `json:"status,omitempty"`
	State  *entity.GameState `json:"state,omitempty"`
}

// QuestionAdvancedEvent - данные события перехода к следующему вопросу
type QuestionAdvancedEvent struct {
	GameID            uint       `json:"gameId"`
	CurrentQuestionID *uint      `json:"currentQuestionId"`
	CurrentRoundID    *uint      `json:"currentRoundId"`
	QuestionStartedAt *time.Time `json:"questionStartedAt"`
	Version           int64      `json:"version"`
}

// ScoresEvent - данные события обновления очков
type ScoresEvent struct {
	GameID uint               `json:"gameId"`
	Scores []entity.TeamScore `json:"scores"`
}

// AnswerEvent - данные событий о ответах команд
type AnswerEvent struct {
	GameID uint           `json:"gameId"`
	Answer *entity.Answer `json:"answer"`
}
