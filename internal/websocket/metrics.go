package websocket

import (
	"sync"
	"time"
)

// HubMetrics хранит счетчики WebSocket-подсистемы
type HubMetrics struct {
	totalConnections  int64     // Общее количество подключений за все время
	activeConnections int64     // Текущее количество активных подключений
	messagesSent      int64     // Сообщения, поставленные в буфер клиентов
	messagesDropped   int64     // Сообщения, отброшенные из-за переполнения буфера
	messagesReceived  int64     // Входящие сообщения клиентов
	clusterReceived   int64     // События, полученные от других экземпляров
	startTime         time.Time // Время запуска

	mu sync.RWMutex
}

// NewHubMetrics создает новый экземпляр метрик
func NewHubMetrics() *HubMetrics {
	return &HubMetrics{
		startTime: time.Now(),
	}
}

// IncrementTotalConnections увеличивает счетчики подключений
func (m *HubMetrics) IncrementTotalConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalConnections++
	m.activeConnections++
}

// DecrementActiveConnections уменьшает счетчик активных подключений
func (m *HubMetrics) DecrementActiveConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeConnections > 0 {
		m.activeConnections--
	}
}

// AddMessageSent увеличивает счетчик отправленных сообщений
func (m *HubMetrics) AddMessageSent(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesSent += count
}

// AddMessageDropped увеличивает счетчик отброшенных сообщений
func (m *HubMetrics) AddMessageDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesDropped++
}

// AddMessageReceived увеличивает счетчик входящих сообщений
func (m *HubMetrics) AddMessageReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesReceived++
}

// AddClusterReceived увеличивает счетчик событий из кластера
func (m *HubMetrics) AddClusterReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusterReceived++
}

// Snapshot возвращает копию счетчиков
func (m *HubMetrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"total_connections":  m.totalConnections,
		"active_connections": m.activeConnections,
		"messages_sent":      m.messagesSent,
		"messages_dropped":   m.messagesDropped,
		"messages_received":  m.messagesReceived,
		"cluster_received":   m.clusterReceived,
		"uptime_seconds":     int64(time.Since(m.startTime).Seconds()),
	}
}
