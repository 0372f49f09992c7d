package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/trivia-host/internal/config"
)

const clusterMessageRoom = "room"

// ClusterMessage представляет событие комнаты, передаваемое между экземплярами
type ClusterMessage struct {
	MessageType string `json:"type"`

	// InstanceID отправителя, чтобы не доставлять сообщение повторно
	InstanceID string `json:"instance_id"`

	GameID    uint            `json:"game_id"`
	HostsOnly bool            `json:"hosts_only,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// ClusterRelay пересылает события комнат между экземплярами через Pub/Sub
type ClusterRelay struct {
	cfg      config.ClusterConfig
	hub      *Hub
	provider PubSubProvider

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClusterRelay создает ретранслятор. Без провайдера используется NoOpPubSub.
func NewClusterRelay(hub *Hub, cfg config.ClusterConfig, provider PubSubProvider) *ClusterRelay {
	if cfg.InstanceID == "" {
		cfg.InstanceID = "instance_" + uuid.New().String()
	}
	if provider == nil {
		provider = &NoOpPubSub{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ClusterRelay{
		cfg:      cfg,
		hub:      hub,
		provider: provider,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// InstanceID возвращает ID этого экземпляра
func (r *ClusterRelay) InstanceID() string {
	return r.cfg.InstanceID
}

// Enabled сообщает, включен ли кластерный режим
func (r *ClusterRelay) Enabled() bool {
	return r.cfg.Enabled
}

// Start подписывается на канал событий кластера
func (r *ClusterRelay) Start() error {
	if !r.cfg.Enabled {
		log.Info().Msg("[ClusterRelay] Кластерный режим отключен, работаем одним экземпляром")
		return nil
	}

	msgCh, err := r.provider.Subscribe(r.ctx, r.cfg.BroadcastChannel)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.cfg.BroadcastChannel, err)
	}
	log.Info().Str("instance_id", r.cfg.InstanceID).Str("channel", r.cfg.BroadcastChannel).
		Msg("[ClusterRelay] Кластерный режим запущен")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.consume(msgCh)
	}()
	return nil
}

// Stop останавливает прием событий
func (r *ClusterRelay) Stop() {
	r.cancel()
	r.wg.Wait()
}

// Publish отправляет событие комнаты остальным экземплярам
func (r *ClusterRelay) Publish(gameID uint, hostsOnly bool, payload []byte) error {
	if !r.cfg.Enabled {
		return nil
	}
	data, err := json.Marshal(ClusterMessage{
		MessageType: clusterMessageRoom,
		InstanceID:  r.cfg.InstanceID,
		GameID:      gameID,
		HostsOnly:   hostsOnly,
		Payload:     payload,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal cluster message: %w", err)
	}
	return r.provider.Publish(r.cfg.BroadcastChannel, data)
}

func (r *ClusterRelay) consume(msgCh <-chan []byte) {
	for {
		select {
		case <-r.ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				log.Warn().Msg("[ClusterRelay] Канал событий кластера закрыт")
				return
			}
			r.deliver(data)
		}
	}
}

// deliver доставляет событие другого экземпляра локальным клиентам комнаты
func (r *ClusterRelay) deliver(data []byte) {
	var msg ClusterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Err(err).Msg("[ClusterRelay] Ошибка десериализации сообщения кластера")
		return
	}
	if msg.InstanceID == r.cfg.InstanceID {
		return
	}
	if msg.MessageType != clusterMessageRoom {
		log.Warn().Str("type", msg.MessageType).Str("from", msg.InstanceID).Msg("[ClusterRelay] Неизвестный тип сообщения")
		return
	}
	r.hub.metrics.AddClusterReceived()
	r.hub.BroadcastToGameLocal(msg.GameID, msg.Payload, msg.HostsOnly)
}
