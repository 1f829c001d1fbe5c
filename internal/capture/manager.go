package capture

import (
	"errors"
	"log/slog"
	"sync"
)

// SourceFactory возвращает источник кадров для пользователя
type SourceFactory func(ownerID string) Source

// Manager хранит сессии захвата по пользователям
type Manager struct {
	sources SourceFactory
	encoder Encoder
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(sources SourceFactory, encoder Encoder, logger *slog.Logger) *Manager {
	return &Manager{
		sources:  sources,
		encoder:  encoder,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Session возвращает сессию пользователя, создавая ее при необходимости
func (m *Manager) Session(ownerID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[ownerID]; ok {
		return s
	}
	s := NewSession(m.sources(ownerID), m.encoder, m.logger.With("owner_id", ownerID))
	m.sessions[ownerID] = s
	return s
}

// Release останавливает и забывает сессию пользователя
func (m *Manager) Release(ownerID string) error {
	m.mu.Lock()
	s, ok := m.sessions[ownerID]
	delete(m.sessions, ownerID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Stop()
}

// Close останавливает все сессии (при завершении приложения)
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		m.logger.Error("failed to stop some capture sessions", "count", len(errs))
	}
	return errors.Join(errs...)
}
