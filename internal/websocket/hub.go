package websocket

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/trivia-host/internal/config"
)

// Hub хранит подключенных клиентов и комнаты игр.
// Клиент находится не более чем в одной комнате: ведущим или командой.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	// rooms: игра -> клиент -> является ли ведущим
	rooms map[uint]map[*Client]bool

	metrics *HubMetrics
	cluster *ClusterRelay

	onDisconnect func(client *Client)
}

// NewHub создает хаб. provider может быть nil, тогда события не выходят за пределы экземпляра.
func NewHub(cfg config.WebSocketConfig, provider PubSubProvider) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[uint]map[*Client]bool),
		metrics: NewHubMetrics(),
	}
	h.cluster = NewClusterRelay(h, cfg.Cluster, provider)
	return h
}

// SetDisconnectHandler задает функцию, вызываемую после отключения клиента.
// Вызывается не больше одного раза на клиента, вне блокировок хаба.
func (h *Hub) SetDisconnectHandler(fn func(client *Client)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDisconnect = fn
}

// Start запускает прием событий от других экземпляров
func (h *Hub) Start() error {
	return h.cluster.Start()
}

// Close останавливает кластерную рассылку и отключает всех клиентов
func (h *Hub) Close() {
	h.cluster.Stop()

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}

// Register добавляет клиента
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.metrics.IncrementTotalConnections()
	log.Debug().Str("client", client.String()).Msg("[Hub] Клиент подключен")
}

// Unregister удаляет клиента из хаба и комнаты и закрывает его канал отправки
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	h.leaveRoomLocked(client)
	onDisconnect := h.onDisconnect
	h.mu.Unlock()

	client.CloseSend()
	h.metrics.DecrementActiveConnections()
	log.Debug().Str("client", client.String()).Msg("[Hub] Клиент отключен")

	if onDisconnect != nil {
		onDisconnect(client)
	}
}

// JoinRoom переводит клиента в комнату игры. Прежняя комната покидается.
func (h *Hub) JoinRoom(client *Client, gameID uint, asHost bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveRoomLocked(client)
	room, ok := h.rooms[gameID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[gameID] = room
	}
	room[client] = asHost
}

// LeaveRoom убирает клиента из его комнаты
func (h *Hub) LeaveRoom(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(client)
}

func (h *Hub) leaveRoomLocked(client *Client) {
	for gameID, room := range h.rooms {
		if _, ok := room[client]; !ok {
			continue
		}
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, gameID)
		}
		return
	}
}

// IsHostIn проверяет, находится ли клиент в комнате игры в роли ведущего
func (h *Hub) IsHostIn(client *Client, gameID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	isHost, ok := h.rooms[gameID][client]
	return ok && isHost
}

// BroadcastToGame отправляет сообщение клиентам комнаты на этом экземпляре и
// публикует его для остальных экземпляров кластера.
func (h *Hub) BroadcastToGame(gameID uint, message []byte, hostsOnly bool) {
	h.BroadcastToGameLocal(gameID, message, hostsOnly)
	if err := h.cluster.Publish(gameID, hostsOnly, message); err != nil {
		log.Warn().Err(err).Uint("game_id", gameID).Msg("[Hub] Не удалось опубликовать событие в кластер")
	}
}

// BroadcastToGameLocal отправляет сообщение только локальным клиентам комнаты
func (h *Hub) BroadcastToGameLocal(gameID uint, message []byte, hostsOnly bool) {
	h.mu.RLock()
	recipients := make([]*Client, 0, len(h.rooms[gameID]))
	for c, isHost := range h.rooms[gameID] {
		if hostsOnly && !isHost {
			continue
		}
		recipients = append(recipients, c)
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		if c.trySend(message) {
			h.metrics.AddMessageSent(1)
		} else {
			h.metrics.AddMessageDropped()
		}
	}
}

// SendToClient отправляет сообщение одному клиенту
func (h *Hub) SendToClient(client *Client, message []byte) bool {
	ok := client.trySend(message)
	if ok {
		h.metrics.AddMessageSent(1)
	} else {
		h.metrics.AddMessageDropped()
	}
	return ok
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount возвращает количество игр с подключенными клиентами
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// GetMetrics возвращает метрики хаба
func (h *Hub) GetMetrics() map[string]interface{} {
	m := h.metrics.Snapshot()
	m["client_count"] = h.ClientCount()
	m["room_count"] = h.RoomCount()
	m["instance_id"] = h.cluster.InstanceID()
	m["cluster_enabled"] = h.cluster.Enabled()
	return m
}
