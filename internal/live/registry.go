// Package live отслеживает команды, подключенные к игре в реальном времени.
// Данные живут только в памяти процесса и теряются при перезапуске:
// клиенты заново сообщают о себе после переподключения.
package live

import (
	"sort"
	"sync"
)

// Registry - набор подключенных команд для каждой игры. Безопасен для конкурентного использования.
type Registry struct {
	mu    sync.RWMutex
	games map[uint]map[uint]struct{}
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		games: make(map[uint]map[uint]struct{}),
	}
}

// Join добавляет команду в игру. Возвращает false, если команда уже была в игре.
func (r *Registry) Join(gameID, teamID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	teams, ok := r.games[gameID]
	if !ok {
		teams = make(map[uint]struct{})
		r.games[gameID] = teams
	}
	if _, exists := teams[teamID]; exists {
		return false
	}
	teams[teamID] = struct{}{}
	return true
}

// Leave удаляет команду из игры. Возвращает false, если команды в игре не было.
func (r *Registry) Leave(gameID, teamID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	teams, ok := r.games[gameID]
	if !ok {
		return false
	}
	if _, exists := teams[teamID]; !exists {
		return false
	}
	delete(teams, teamID)
	if len(teams) == 0 {
		delete(r.games, gameID)
	}
	return true
}

// Snapshot возвращает команды игры по возрастанию ID. Никогда не nil.
func (r *Registry) Snapshot(gameID uint) []uint {
	r.mu.RLock()
	teams := r.games[gameID]
	ids := make([]uint, 0, len(teams))
	for id := range teams {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count возвращает количество подключенных команд игры
func (r *Registry) Count(gameID uint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games[gameID])
}
