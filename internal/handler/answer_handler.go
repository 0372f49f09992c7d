package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/trivia-host/internal/handler/dto"
	"github.com/yourusername/trivia-host/internal/middleware"
	"github.com/yourusername/trivia-host/internal/service"
)

// AnswerHandler принимает ответы команд и оценки ведущего
type AnswerHandler struct {
	answers *service.AnswerService
}

// NewAnswerHandler создает новый обработчик ответов
func NewAnswerHandler(answers *service.AnswerService) *AnswerHandler {
	return &AnswerHandler{answers: answers}
}

// Submit принимает ответ команды на текущий вопрос
// POST /api/play/:joinCode/answers
func (h *AnswerHandler) Submit(c *gin.Context) {
	joinCode := c.GetString(middleware.ContextJoinCode)

	var req dto.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	answer, err := h.answers.Submit(c.Request.Context(), joinCode, req.TeamID, req.QuestionID, req.Response)
	if err != nil {
		handleGameError(c, "AnswerHandler", err)
		return
	}
	c.JSON(http.StatusCreated, answer)
}

// Grade отмечает ответ верным или неверным
// PUT /api/games/:id/answers/:answerId/grade
func (h *AnswerHandler) Grade(c *gin.Context) {
	gameID := c.MustGet(middleware.ContextGameID).(uint)
	answerID := c.MustGet(contextAnswerID).(uint)

	var req dto.GradeAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	answer, err := h.answers.Grade(c.Request.Context(), gameID, answerID, *req.Correct, req.Points)
	if err != nil {
		handleGameError(c, "AnswerHandler", err)
		return
	}
	c.JSON(http.StatusOK, answer)
}
