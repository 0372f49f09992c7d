package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/trivia-host/internal/domain/entity"
	"github.com/yourusername/trivia-host/internal/domain/repository"
	"github.com/yourusername/trivia-host/internal/live"
	"github.com/yourusername/trivia-host/internal/middleware"
	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
	"github.com/yourusername/trivia-host/internal/websocket"
	"github.com/yourusername/trivia-host/pkg/auth"
)

const wsLookupTimeout = 5 * time.Second

// lobbyEvent - данные событий лобби {gameId, teamId?, teamName?}
type lobbyEvent struct {
	GameID   uint   `json:"gameId"`
	TeamID   uint   `json:"teamId,omitempty"`
	TeamName string `json:"teamName,omitempty"`
}

// liveTeamsEvent - ответ на запрос присутствия
type liveTeamsEvent struct {
	GameID  uint   `json:"gameId"`
	TeamIDs []uint `json:"teamIds"`
}

// WSHandler обрабатывает WebSocket соединения ведущих и команд
type WSHandler struct {
	manager    *websocket.Manager
	authorizer middleware.HostAuthorizer
	games      repository.GameRepository
	teams      repository.TeamRepository
	registry   *live.Registry
	jwtService *auth.JWTService
	clientCfg  websocket.ClientConfig
	upgrader   gorillaws.Upgrader
}

// NewWSHandler создает обработчик и регистрирует обработчики сообщений
func NewWSHandler(
	manager *websocket.Manager,
	authorizer middleware.HostAuthorizer,
	repos repository.Repositories,
	registry *live.Registry,
	jwtService *auth.JWTService,
	clientCfg websocket.ClientConfig,
	allowedOrigins []string,
) *WSHandler {
	h := &WSHandler{
		manager:    manager,
		authorizer: authorizer,
		games:      repos.Games,
		teams:      repos.Teams,
		registry:   registry,
		jwtService: jwtService,
		clientCfg:  clientCfg,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:    4096,
			WriteBufferSize:   4096,
			CheckOrigin:       originChecker(allowedOrigins),
			EnableCompression: true,
		},
	}

	h.registerMessageHandlers()
	manager.Hub().SetDisconnectHandler(h.onDisconnect)
	return h
}

// originChecker разрешает origin из списка. Пустой Origin - не браузерный клиент.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	allowAll := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		log.Warn().Str("origin", origin).Msg("[WSHandler] Отклонен неразрешенный origin")
		return false
	}
}

// HandleConnection обрабатывает входящее WebSocket соединение.
// Токен (?token=...) обязателен только для событий ведущего.
// GET /ws
func (h *WSHandler) HandleConnection(c *gin.Context) {
	var actor *entity.Actor
	if token := c.Query("token"); token != "" {
		claims, err := h.jwtService.ParseToken(token)
		if err != nil {
			log.Warn().Err(err).Msg("[WSHandler] Недействительный токен при подключении")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			return
		}
		actor = claims.Actor()
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		log.Warn().Err(err).Msg("[WSHandler] Ошибка upgrade соединения")
		return
	}

	client := websocket.NewClient(h.manager.Hub(), conn, actor, h.clientCfg)
	log.Info().Str("client", client.String()).Msg("[WSHandler] Соединение установлено")

	client.StartPumps(h.manager.HandleMessage)
}

// registerMessageHandlers регистрирует обработчики для различных типов сообщений
func (h *WSHandler) registerMessageHandlers() {
	h.manager.RegisterHandler(websocket.EventHostJoin, h.handleHostJoin)
	h.manager.RegisterHandler(websocket.EventHostLeave, h.handleHostLeave)
	h.manager.RegisterHandler(websocket.EventHostRequestLiveTeams, h.handleRequestLiveTeams)
	h.manager.RegisterHandler(websocket.EventTeamJoin, h.handleTeamJoin)
	h.manager.RegisterHandler(websocket.EventTeamLeaveLobby, h.handleTeamLeave)
	h.manager.RegisterHandler(websocket.EventUserHeartbeat, h.handleHeartbeat)
}

// handleHostJoin подписывает ведущего на комнату игры и отвечает списком команд онлайн
func (h *WSHandler) handleHostJoin(data json.RawMessage, client *websocket.Client) error {
	var ev lobbyEvent
	if err := h.decode(data, &ev, websocket.EventHostJoin, client); err != nil {
		return err
	}
	if ev.GameID == 0 {
		h.manager.SendErrorToClient(client, "validation", "gameId is required")
		return nil
	}
	if !client.Actor().CanHost() {
		h.manager.SendErrorToClient(client, "forbidden", "Host rights required")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsLookupTimeout)
	defer cancel()
	if _, err := h.authorizer.AuthorizeHost(ctx, ev.GameID, client.Actor()); err != nil {
		log.Warn().Err(err).Uint("game_id", ev.GameID).Str("client", client.String()).Msg("[WSHandler] Отказ в доступе ведущему")
		h.manager.SendErrorToClient(client, wsErrorCode(err), err.Error())
		return nil
	}

	h.releaseTeam(client)
	h.manager.Hub().JoinRoom(client, ev.GameID, true)
	log.Info().Uint("game_id", ev.GameID).Str("client", client.String()).Msg("[WSHandler] Ведущий подключился к игре")
	h.sendLiveTeams(client, ev.GameID)
	return nil
}

// handleHostLeave отписывает ведущего от комнаты
func (h *WSHandler) handleHostLeave(data json.RawMessage, client *websocket.Client) error {
	h.manager.Hub().LeaveRoom(client)
	return nil
}

// handleRequestLiveTeams отвечает ведущему текущим списком команд
func (h *WSHandler) handleRequestLiveTeams(data json.RawMessage, client *websocket.Client) error {
	var ev lobbyEvent
	if err := h.decode(data, &ev, websocket.EventHostRequestLiveTeams, client); err != nil {
		return err
	}
	if !h.manager.Hub().IsHostIn(client, ev.GameID) {
		h.manager.SendErrorToClient(client, "forbidden", "Join the game as host first")
		return nil
	}
	h.sendLiveTeams(client, ev.GameID)
	return nil
}

// handleTeamJoin добавляет команду в лобби игры
func (h *WSHandler) handleTeamJoin(data json.RawMessage, client *websocket.Client) error {
	var ev lobbyEvent
	if err := h.decode(data, &ev, websocket.EventTeamJoin, client); err != nil {
		return err
	}
	if ev.GameID == 0 || ev.TeamID == 0 {
		h.manager.SendErrorToClient(client, "validation", "gameId and teamId are required")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsLookupTimeout)
	defer cancel()
	if _, err := h.games.GetByID(ctx, ev.GameID); err != nil {
		log.Warn().Err(err).Uint("game_id", ev.GameID).Str("client", client.String()).Msg("[WSHandler] Игра для входа команды недоступна")
		h.manager.SendErrorToClient(client, wsErrorCode(err), fmt.Sprintf("game %d is not available", ev.GameID))
		return nil
	}
	team, err := h.teams.GetByID(ctx, ev.TeamID)
	if err != nil {
		log.Warn().Err(err).Uint("team_id", ev.TeamID).Str("client", client.String()).Msg("[WSHandler] Команда не найдена")
		h.manager.SendErrorToClient(client, wsErrorCode(err), fmt.Sprintf("team %d is not available", ev.TeamID))
		return nil
	}

	if client.GameID() != ev.GameID || client.TeamID() != ev.TeamID {
		h.releaseTeam(client)
	}
	h.registry.Join(ev.GameID, ev.TeamID)
	client.SetTeam(ev.GameID, ev.TeamID)
	h.manager.Hub().JoinRoom(client, ev.GameID, false)
	log.Info().Uint("game_id", ev.GameID).Uint("team_id", ev.TeamID).Msg("[WSHandler] Команда вошла в лобби")

	h.notifyHosts(ev.GameID, websocket.EventTeamJoined, lobbyEvent{GameID: ev.GameID, TeamID: team.ID, TeamName: team.Name})
	h.broadcastLiveTeams(ev.GameID)
	return nil
}

// handleTeamLeave убирает команду соединения из лобби
func (h *WSHandler) handleTeamLeave(data json.RawMessage, client *websocket.Client) error {
	h.releaseTeam(client)
	h.manager.Hub().LeaveRoom(client)
	return nil
}

// handleHeartbeat отвечает server:heartbeat. Ошибка отправки не закрывает соединение.
func (h *WSHandler) handleHeartbeat(data json.RawMessage, client *websocket.Client) error {
	if err := h.manager.SendEvent(client, websocket.EventServerHeartbeat, map[string]int64{
		"timestamp": time.Now().UnixMilli(),
	}); err != nil {
		log.Warn().Err(err).Str("client", client.String()).Msg("[WSHandler] Ошибка отправки server:heartbeat")
	}
	return nil
}

// onDisconnect убирает команду закрытого соединения из лобби
func (h *WSHandler) onDisconnect(client *websocket.Client) {
	h.releaseTeam(client)
}

// releaseTeam отвязывает соединение от команды и сообщает ведущим об уходе
func (h *WSHandler) releaseTeam(client *websocket.Client) {
	gameID, teamID := client.ClearTeam()
	if teamID == 0 {
		return
	}
	if !h.registry.Leave(gameID, teamID) {
		return
	}
	log.Info().Uint("game_id", gameID).Uint("team_id", teamID).Msg("[WSHandler] Команда покинула лобби")
	h.notifyHosts(gameID, websocket.EventTeamLeft, lobbyEvent{GameID: gameID, TeamID: teamID})
	h.broadcastLiveTeams(gameID)
}

func (h *WSHandler) sendLiveTeams(client *websocket.Client, gameID uint) {
	if err := h.manager.SendEvent(client, websocket.EventLiveTeams, liveTeamsEvent{
		GameID:  gameID,
		TeamIDs: h.registry.Snapshot(gameID),
	}); err != nil {
		log.Warn().Err(err).Uint("game_id", gameID).Str("client", client.String()).Msg("[WSHandler] Ошибка отправки liveTeams")
	}
}

func (h *WSHandler) broadcastLiveTeams(gameID uint) {
	h.notifyHosts(gameID, websocket.EventLiveTeams, liveTeamsEvent{
		GameID:  gameID,
		TeamIDs: h.registry.Snapshot(gameID),
	})
}

func (h *WSHandler) notifyHosts(gameID uint, eventType string, data interface{}) {
	if err := h.manager.BroadcastToHosts(gameID, eventType, data); err != nil {
		log.Error().Err(err).Uint("game_id", gameID).Str("event", eventType).Msg("[WSHandler] Ошибка рассылки ведущим")
	}
}

// decode разбирает данные события. Некорректный JSON закрывает соединение.
func (h *WSHandler) decode(data json.RawMessage, dest interface{}, eventType string, client *websocket.Client) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Warn().Err(err).Str("type", eventType).Str("client", client.String()).Msg("[WSHandler] Ошибка парсинга события")
		h.manager.SendErrorToClient(client, "invalid_format", fmt.Sprintf("Failed to parse %s event", eventType))
		return fmt.Errorf("failed to parse %s event: %w", eventType, err)
	}
	return nil
}

// wsErrorCode - код ошибки для server:error
func wsErrorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	case errors.Is(err, apperrors.ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}
