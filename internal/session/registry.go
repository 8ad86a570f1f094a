// Package session tracks the display name and joined rooms of every live
// connection. Sessions are ephemeral and die with their connection.
package session

import (
	"sort"
	"sync"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
)

type Session struct {
	ID    string
	Name  string
	Rooms map[string]struct{}
}

// Registry is keyed by connection id. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Open creates an empty session for a new connection.
func (r *Registry) Open(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[connID]; !ok {
		r.sessions[connID] = &Session{ID: connID, Rooms: make(map[string]struct{})}
	}
}

// Join binds name to the connection and records room membership. Joining a
// room twice is harmless; the latest name wins.
func (r *Registry) Join(connID, room, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connID]
	if !ok {
		s = &Session{ID: connID, Rooms: make(map[string]struct{})}
		r.sessions[connID] = s
	}
	s.Name = name
	s.Rooms[room] = struct{}{}
}

// Name returns the bound display name, or message.DefaultSender.
func (r *Registry) Name(connID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[connID]; ok && s.Name != "" {
		return s.Name
	}
	return message.DefaultSender
}

func (r *Registry) InRoom(connID, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	if !ok {
		return false
	}
	_, in := s.Rooms[room]
	return in
}

// Rooms returns the joined rooms in sorted order.
func (r *Registry) Rooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(s.Rooms))
	for room := range s.Rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Close drops the session and returns the rooms it had joined.
func (r *Registry) Close(connID string) []string {
	rooms := r.Rooms(connID)
	r.mu.Lock()
	delete(r.sessions, connID)
	r.mu.Unlock()
	return rooms
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
