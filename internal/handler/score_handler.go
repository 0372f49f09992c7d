package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/middleware"
	"github.com/yourusername/trivia-host/internal/service"
)

// ScoreHandler отдает очки команд ведущему и игрокам
type ScoreHandler struct {
	scores *service.ScoreService
}

// NewScoreHandler создает новый обработчик очков
func NewScoreHandler(scores *service.ScoreService) *ScoreHandler {
	return &ScoreHandler{scores: scores}
}

// GetScores возвращает суммы очков команд
// GET /api/games/:id/scores
func (h *ScoreHandler) GetScores(c *gin.Context) {
	gameID := c.MustGet(middleware.ContextGameID).(uint)

	scores, err := h.scores.ComputeScores(c.Request.Context(), gameID)
	if err != nil {
		handleGameError(c, "ScoreHandler", err)
		return
	}
	c.JSON(http.StatusOK, scores)
}

// PublicScoreboard возвращает очки игрокам, если ведущий их открыл
// GET /api/play/:joinCode/scoreboard
func (h *ScoreHandler) PublicScoreboard(c *gin.Context) {
	joinCode := c.GetString(middleware.ContextJoinCode)

	scores, err := h.scores.PublicScoreboard(c.Request.Context(), joinCode)
	if err != nil {
		handleGameError(c, "ScoreHandler", err)
		return
	}
	c.JSON(http.StatusOK, scores)
}

// ExportStandings выгружает турнирную таблицу в Excel
// GET /api/games/:id/scores/export
func (h *ScoreHandler) ExportStandings(c *gin.Context) {
	gameID := c.MustGet(middleware.ContextGameID).(uint)

	standings, err := h.scores.Standings(c.Request.Context(), gameID)
	if err != nil {
		handleGameError(c, "ScoreHandler", err)
		return
	}

	filename := fmt.Sprintf("game_%d_standings_%s", gameID, time.Now().Format("2006-01-02"))
	h.exportXLSX(c, standings, filename)
}

// exportXLSX пишет таблицу через StreamWriter
func (h *ScoreHandler) exportXLSX(c *gin.Context, standings []entity.Standing, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Итоги"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		log.Error().Err(err).Msg("[ScoreHandler] Ошибка переименования листа")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file", "error_type": "internal"})
		return
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Error().Err(err).Msg("[ScoreHandler] Ошибка создания StreamWriter")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file", "error_type": "internal"})
		return
	}

	if err := sw.SetRow("A1", []interface{}{"Место", "Команда", "Очки"}); err != nil {
		log.Error().Err(err).Msg("[ScoreHandler] Ошибка записи заголовков")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file", "error_type": "internal"})
		return
	}
	for i, s := range standings {
		cell := fmt.Sprintf("A%d", i+2)
		if err := sw.SetRow(cell, []interface{}{s.Rank, sanitizeForExcel(s.TeamName), s.Score}); err != nil {
			log.Error().Err(err).Int("row", i+2).Msg("[ScoreHandler] Ошибка записи строки")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file", "error_type": "internal"})
			return
		}
	}
	if err := sw.Flush(); err != nil {
		log.Error().Err(err).Msg("[ScoreHandler] Ошибка при Flush")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file", "error_type": "internal"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		log.Error().Err(err).Msg("[ScoreHandler] Ошибка записи Excel в response")
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
