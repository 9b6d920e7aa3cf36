// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config controls workspace lifecycle.
type Config struct {
	// IdleTimeout evicts workspaces with no activity for this long.
	IdleTimeout time.Duration
	// MaxSessions caps live workspaces (0 = unlimited). When full, the
	// longest-idle workspace is evicted to make room.
	MaxSessions int
	// SweepInterval is how often the janitor scans for idle workspaces.
	SweepInterval time.Duration
}

// DefaultConfig returns the default lifecycle settings.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:   time.Hour,
		MaxSessions:   256,
		SweepInterval: time.Minute,
	}
}

// Manager owns the workspace registry and expires idle sessions.
type Manager struct {
	cfg Config

	mu         sync.Mutex
	workspaces map[string]*Workspace

	done chan struct{}
	once sync.Once
}

// NewManager creates a manager and starts the idle janitor.
func NewManager(cfg Config) *Manager {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	m := &Manager{
		cfg:        cfg,
		workspaces: make(map[string]*Workspace),
		done:       make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Close stops the janitor.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.done) })
}

// Get returns the workspace for id, creating one when absent. An empty id
// allocates a new session. The returned id is the session id the client
// must present on subsequent requests.
func (m *Manager) Get(id string) (*Workspace, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if ws, ok := m.workspaces[id]; ok {
			ws.Touch()
			return ws, id
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	if m.cfg.MaxSessions > 0 && len(m.workspaces) >= m.cfg.MaxSessions {
		m.evictIdlestLocked()
	}

	ws := newWorkspace(id)
	m.workspaces[id] = ws
	log.Printf("SESSION_CREATE | id=%s total=%d", id, len(m.workspaces))
	return ws, id
}

// Lookup returns the workspace for id without creating one.
func (m *Manager) Lookup(id string) (*Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[id]
	return ws, ok
}

// Workspaces returns every live workspace. The slice is a snapshot; the
// workspaces themselves are shared.
func (m *Manager) Workspaces() []*Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Workspace, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		out = append(out, ws)
	}
	return out
}

// Len reports the number of live workspaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

func (m *Manager) evictIdlestLocked() {
	var victim string
	var oldest time.Time
	for id, ws := range m.workspaces {
		if last := ws.LastActive(); victim == "" || last.Before(oldest) {
			victim = id
			oldest = last
		}
	}
	if victim != "" {
		delete(m.workspaces, victim)
		log.Printf("SESSION_EVICT | id=%s idle=%s", victim, time.Since(oldest).Round(time.Second))
	}
}

func (m *Manager) janitor() {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	if m.cfg.IdleTimeout <= 0 {
		return
	}
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ws := range m.workspaces {
		if ws.LastActive().Before(cutoff) {
			delete(m.workspaces, id)
			log.Printf("SESSION_EXPIRE | id=%s", id)
		}
	}
}
