package dto

import "github.com/yourusername/trivia-host/internal/domain/entity"

// SetCurrentQuestionRequest - запрос на переход к произвольному вопросу
type SetCurrentQuestionRequest struct {
	QuestionID uint `json:"questionId" binding:"required"`
}

// SetAcceptingAnswersRequest - открыть или закрыть прием ответов
type SetAcceptingAnswersRequest struct {
	Accepting *bool `json:"accepting" binding:"required"`
}

// SetScoresVisibleRequest - показать или скрыть очки игрокам
type SetScoresVisibleRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// SetCurrentQuestionResponse - ответ на смену текущего вопроса
type SetCurrentQuestionResponse struct {
	Message          string            `json:"message"`
	UpdatedGameState *entity.GameState `json:"updatedGameState"`
}

// AdvanceResponse - новый указатель после перехода к следующему вопросу
type AdvanceResponse struct {
	CurrentQuestionID *uint `json:"currentQuestionId"`
	CurrentRoundID    *uint `json:"currentRoundId"`
}

// LiveTeamsResponse - команды, подключенные к игре
type LiveTeamsResponse struct {
	GameID  uint   `json:"gameId"`
	TeamIDs []uint `json:"teamIds"`
}

// MessageResponse - ответ с текстовым сообщением
type MessageResponse struct {
	Message string `json:"message"`
}
