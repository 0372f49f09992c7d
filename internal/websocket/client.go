package websocket

import (
	"bytes"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/trivia-host/internal/config"
	"github.com/yourusername/trivia-host/internal/domain/entity"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту молчать до следующего pong.
	pongWait = 30 * time.Second

	// Максимальный размер входящего сообщения
	maxMessageSize = 4096

	// Размер буфера по умолчанию для канала отправки сообщений клиенту
	defaultClientBufferSize = 128

	// Максимальное количество переполнений буфера подряд до отключения
	maxBufferWarnings = 3
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// ClientConfig содержит настройки клиента
type ClientConfig struct {
	BufferSize     int
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// DefaultClientConfig возвращает конфигурацию клиента по умолчанию
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BufferSize:     defaultClientBufferSize,
		PongWait:       pongWait,
		WriteWait:      writeWait,
		MaxMessageSize: maxMessageSize,
	}
}

// ClientConfigFrom переносит настройки из конфигурации приложения, заполняя пропуски значениями по умолчанию
func ClientConfigFrom(cfg config.WebSocketConfig) ClientConfig {
	c := DefaultClientConfig()
	if cfg.ClientBuffer > 0 {
		c.BufferSize = cfg.ClientBuffer
	}
	if cfg.PongWait > 0 {
		c.PongWait = cfg.PongWait
	}
	if cfg.WriteWait > 0 {
		c.WriteWait = cfg.WriteWait
	}
	if cfg.MaxMessageSize > 0 {
		c.MaxMessageSize = cfg.MaxMessageSize
	}
	return c
}

// pingPeriod - периодичность ping, чуть меньше времени ожидания pong
func (c ClientConfig) pingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// Client является посредником между WebSocket соединением и Hub.
// Анонимный клиент (без токена) может только присоединиться командой.
type Client struct {
	// Уникальный ID соединения
	ConnectionID string

	// Пользователь из токена сессии, nil для анонимной команды
	actor *entity.Actor

	hub  *Hub
	conn *websocket.Conn
	cfg  ClientConfig

	// Буферизованный канал исходящих сообщений
	send       chan []byte
	sendClosed atomic.Bool

	// Игра и команда, к которым привязано соединение (0 - нет)
	gameID atomic.Uint32
	teamID atomic.Uint32

	bufferWarnings atomic.Int32
}

// NewClient создает клиента. actor может быть nil.
func NewClient(hub *Hub, conn *websocket.Conn, actor *entity.Actor, cfg ClientConfig) *Client {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultClientBufferSize
	}
	return &Client{
		ConnectionID: uuid.New().String(),
		actor:        actor,
		hub:          hub,
		conn:         conn,
		cfg:          cfg,
		send:         make(chan []byte, cfg.BufferSize),
	}
}

// Actor возвращает пользователя соединения или nil
func (c *Client) Actor() *entity.Actor {
	return c.actor
}

// UserID возвращает ID пользователя или 0 для анонимного клиента
func (c *Client) UserID() uint {
	if c.actor == nil {
		return 0
	}
	return c.actor.UserID
}

// GameID возвращает игру, к комнате которой подключен клиент
func (c *Client) GameID() uint {
	return uint(c.gameID.Load())
}

// TeamID возвращает команду, от имени которой подключен клиент
func (c *Client) TeamID() uint {
	return uint(c.teamID.Load())
}

// SetTeam привязывает соединение к команде игры
func (c *Client) SetTeam(gameID, teamID uint) {
	c.gameID.Store(uint32(gameID))
	c.teamID.Store(uint32(teamID))
}

// ClearTeam отвязывает соединение от команды и возвращает прежние значения
func (c *Client) ClearTeam() (gameID, teamID uint) {
	return uint(c.gameID.Swap(0)), uint(c.teamID.Swap(0))
}

// String используется в логах
func (c *Client) String() string {
	return fmt.Sprintf("user=%d conn=%s", c.UserID(), c.ConnectionID)
}

// trySend кладет сообщение в буфер без блокировки.
// После maxBufferWarnings переполнений подряд клиент считается зависшим и отключается.
func (c *Client) trySend(message []byte) bool {
	if c.sendClosed.Load() {
		return false
	}
	defer func() {
		// Гонка с CloseSend: канал закрыли между проверкой и отправкой
		if r := recover(); r != nil {
			log.Debug().Str("conn", c.ConnectionID).Msg("[Client] Отправка в закрытый канал пропущена")
		}
	}()

	select {
	case c.send <- message:
		c.bufferWarnings.Store(0)
		return true
	default:
		warnings := c.bufferWarnings.Add(1)
		log.Warn().Str("conn", c.ConnectionID).Int32("warnings", warnings).Msg("[Client] Буфер отправки переполнен, сообщение отброшено")
		if warnings >= maxBufferWarnings && c.hub != nil {
			go c.hub.Unregister(c)
		}
		return false
	}
}

// CloseSend закрывает канал send ровно один раз.
// Возвращает true, если канал закрыт этим вызовом.
func (c *Client) CloseSend() bool {
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
		return true
	}
	return false
}

// IsSendClosed проверяет, закрыт ли канал send
func (c *Client) IsSendClosed() bool {
	return c.sendClosed.Load()
}

// readPump читает сообщения от клиента и передает их обработчику
func (c *Client) readPump(messageHandler func(message []byte, client *Client) error) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		log.Debug().Str("client", c.String()).Msg("[Client] Read pump остановлен")
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("client", c.String()).Msg("[Client] Ошибка чтения")
			}
			return
		}

		if handlerErr := safeHandleMessage(message, c, messageHandler); handlerErr != nil {
			log.Warn().Err(handlerErr).Str("client", c.String()).Msg("[Client] Обработчик вернул ошибку, соединение закрывается")
			return
		}
	}
}

// safeHandleMessage вызывает обработчик с recover. Паника считается фатальной для соединения.
func safeHandleMessage(message []byte, client *Client, messageHandler func(message []byte, client *Client) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("client", client.String()).Str("stack", string(debug.Stack())).
				Msgf("[Client] PANIC в обработчике сообщения: %v", r)
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
	if messageHandler == nil {
		return nil
	}
	return messageHandler(message, client)
}

// writePump отправляет клиенту сообщения из канала send и ping
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				return
			}
			if !ok {
				// Канал закрыт хабом
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("client", c.String()).Msg("[Client] Ошибка записи")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// StartPumps регистрирует клиента в хабе и запускает горутины чтения и записи
func (c *Client) StartPumps(messageHandler func(message []byte, client *Client) error) {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump(messageHandler)
}
