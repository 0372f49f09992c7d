package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/handler/dto"
	"github.com/yourusername/trivia-host/internal/live"
	"github.com/yourusername/trivia-host/internal/middleware"
	"github.com/yourusername/trivia-host/internal/service"
)

const qrCodeSize = 320

// GameHandler обрабатывает запросы ведущего на управление ходом игры
type GameHandler struct {
	progression *service.ProgressionService
	registry    *live.Registry
	joinURLBase string
}

// NewGameHandler создает новый обработчик игр
func NewGameHandler(progression *service.ProgressionService, registry *live.Registry, joinURLBase string) *GameHandler {
	return &GameHandler{
		progression: progression,
		registry:    registry,
		joinURLBase: joinURLBase,
	}
}

// Start запускает игру
// POST /api/games/:id/start
func (h *GameHandler) Start(c *gin.Context) {
	gameID := c.MustGet(middleware.ContextGameID).(uint)

	game, err := h.progression.Start(c.Request.Context(), gameID, middleware.ActorFromContext(c))
	if err != nil {
		handleGameError(c, "GameHandler", err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// End завершает игру
// POST /api/games/:id/end
func (h *GameHandler) End(c *gin.Context) {
	gameID := c.MustGet(middleware.ContextGameID).(uint)

	game, err := h.progression.End(c.Request.Context(), gameID)
	if err != nil {
		handleGameError(c, "GameHandler", err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// Reset возвращает игру в черновик, удаляя состояние и ответы
// POST /api/games/:id/reset
func (h *GameHandler) Reset(c *gin.Context) {
	gameID := c.MustGet(middleware.ContextGameID).(uint)

	if err := h.progression.Reset(c.Request.Context(), gameID); err != nil {
		handleGameError(c, "GameHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Game reset successfully"})
}

// GetState возвращает текущее состояние игры
// GET /api/games/:id/state
func (h *GameHandler) GetState(c *gin.Context) {
	gameID := c.MustGet(middleware.ContextGameID).(uint)

	state, err := h.progression.GetState(c.Request.Context(), gameID)
	if err != nil {
		handleGameError(c, "GameHandler", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// SetCurrentQuestion переводит игру на произвольный вопрос
// PUT /api/games/:id/current-question
func (h *GameHandler) SetCurrentQuestion(c *gin.Context) {
	gameID := c.MustGet(middleware.ContextGameID).(uint)

	var req dto.SetCurrentQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	state, err := h.progression.SetCurrentQuestion(c.Request.Context(), gameID, req.QuestionID)
	if err != nil {
		handleGameError(c, "GameHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.SetCurrentQuestionResponse{
		Message:          "Current question updated",
		UpdatedGameState: state,
	})
}

// Advance переводит игру на следующий вопрос
// POST /api/games/:id/advance
func (h *GameHandler) Advance(c *gin.Context) {
	gameID := c.MustGet(middleware.ContextGameID).(uint)

	state, err := h.progression.Advance(c.Request.Context(), gameID)
	if err != nil {
		handleGameError(c, "GameHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.AdvanceResponse{
		CurrentQuestionID: state.CurrentQuestionID,
		CurrentRoundID:    state.CurrentRoundID,
	})
}

// SetAcceptingAnswers открывает или закрывает прием ответов
// PUT /api/games/:id/accepting-answers
func (h *GameHandler) SetAcceptingAnswers(c *gin.Context) {
	gameID := c.MustGet(middleware.ContextGameID).(uint)

	var req dto.SetAcceptingAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	state, err := h.progression.SetAcceptingAnswers(c.Request.Context(), gameID, *req.Accepting)
	if err != nil {
		handleGameError(c, "GameHandler", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// SetScoresVisible показывает или скрывает очки игрокам
// PUT /api/games/:id/scores-visible
func (h *GameHandler) SetScoresVisible(c *gin.Context) {
	gameID := c.MustGet(middleware.ContextGameID).(uint)

	var req dto.SetScoresVisibleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	state, err := h.progression.SetScoresVisible(c.Request.Context(), gameID, *req.Visible)
	if err != nil {
		handleGameError(c, "GameHandler", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// LiveTeams возвращает команды, подключенные к игре сейчас
// GET /api/games/:id/live-teams
func (h *GameHandler) LiveTeams(c *gin.Context) {
	gameID := c.MustGet(middleware.ContextGameID).(uint)
	c.JSON(http.StatusOK, dto.LiveTeamsResponse{
		GameID:  gameID,
		TeamIDs: h.registry.Snapshot(gameID),
	})
}

// JoinQRCode отдает PNG с QR-кодом ссылки подключения к игре
// GET /api/games/:id/qr
func (h *GameHandler) JoinQRCode(c *gin.Context) {
	game := c.MustGet(middleware.ContextGame).(*entity.Game)

	png, err := qrcode.Encode(h.joinURL(game.JoinCode), qrcode.Medium, qrCodeSize)
	if err != nil {
		log.Error().Err(err).Uint("game_id", game.ID).Msg("[GameHandler] Ошибка генерации QR-кода")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code", "error_type": "internal"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *GameHandler) joinURL(joinCode string) string {
	if h.joinURLBase == "" {
		return joinCode
	}
	return strings.TrimRight(h.joinURLBase, "/") + "/" + joinCode
}
