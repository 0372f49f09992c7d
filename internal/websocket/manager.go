package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// inboundEvent - входящее сообщение; data разбирается обработчиком типа
type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Manager обрабатывает входящие WebSocket сообщения и рассылает события игр.
// Реализует service.Notifier.
type Manager struct {
	hub            *Hub
	messageHandler map[string]func(data json.RawMessage, client *Client) error
}

// NewManager создает новый менеджер WebSocket
func NewManager(hub *Hub) *Manager {
	return &Manager{
		hub:            hub,
		messageHandler: make(map[string]func(data json.RawMessage, client *Client) error),
	}
}

// Hub возвращает хаб менеджера
func (m *Manager) Hub() *Hub {
	return m.hub
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений.
// Регистрация выполняется до начала приема соединений.
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.messageHandler[eventType] = handler
	log.Debug().Str("type", eventType).Msg("[WebSocketManager] Зарегистрирован обработчик")
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	m.hub.metrics.AddMessageReceived()

	var event inboundEvent
	if err := json.Unmarshal(message, &event); err != nil {
		log.Warn().Err(err).Str("client", client.String()).Msg("[WebSocketManager] Некорректный JSON от клиента")
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err
	}

	handler, ok := m.messageHandler[event.Type]
	if !ok {
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}

	if err := handler(event.Data, client); err != nil {
		log.Warn().Err(err).Str("type", event.Type).Str("client", client.String()).Msg("[WebSocketManager] Обработчик вернул ошибку")
		return err
	}
	return nil
}

// SendErrorToClient отправляет клиенту server:error. Соединение не закрывается.
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	if err := m.SendEvent(client, EventServerError, map[string]string{
		"code":    code,
		"message": message,
	}); err != nil {
		log.Warn().Err(err).Str("client", client.String()).Msg("[WebSocketManager] Не удалось отправить ошибку клиенту")
	}
}

// SendEvent отправляет событие одному клиенту
func (m *Manager) SendEvent(client *Client, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", eventType, err)
	}
	if !m.hub.SendToClient(client, payload) {
		return fmt.Errorf("client %s send buffer unavailable", client.ConnectionID)
	}
	return nil
}

// BroadcastToGame отправляет событие всем клиентам игры
func (m *Manager) BroadcastToGame(gameID uint, eventType string, data interface{}) error {
	return m.broadcast(gameID, eventType, data, false)
}

// BroadcastToHosts отправляет событие только ведущим игры
func (m *Manager) BroadcastToHosts(gameID uint, eventType string, data interface{}) error {
	return m.broadcast(gameID, eventType, data, true)
}

func (m *Manager) broadcast(gameID uint, eventType string, data interface{}, hostsOnly bool) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s for game %d: %w", eventType, gameID, err)
	}
	m.hub.BroadcastToGame(gameID, payload, hostsOnly)
	return nil
}

// GetMetrics возвращает текущие метрики WebSocket-подсистемы
func (m *Manager) GetMetrics() map[string]interface{} {
	return m.hub.GetMetrics()
}
