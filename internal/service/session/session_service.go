// Package session owns the ticketing backend token for one range
// controller. Controllers do not share sessions: each range class
// authenticates independently.
package session

import (
	"context"
	"sync"

	"railboard/pkg/logger"
)

// LoginClient performs the backend login call.
type LoginClient interface {
	Login(ctx context.Context) (string, error)
}

// Manager holds at most one token and performs at most one login at a time.
// The token lives in memory only and is never persisted across restarts.
type Manager struct {
	client LoginClient
	logger *logger.Logger

	mu    sync.Mutex
	token string
}

// NewManager creates a session manager around the given login client.
func NewManager(client LoginClient, log *logger.Logger) *Manager {
	return &Manager{
		client: client,
		logger: log,
	}
}

// Token returns the held token, logging in first if none is held. The lock
// is held across the login call so concurrent callers within a refresh
// cycle observe the same in-flight login instead of issuing duplicates.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" {
		return m.token, nil
	}

	token, err := m.client.Login(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("Login failed, session left empty")
		return "", err
	}

	m.token = token
	m.logger.Debug("Session established")
	return token, nil
}

// Held reports whether a token is currently held.
func (m *Manager) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != ""
}

// Invalidate clears the held token, forcing the next Token call to
// re-authenticate.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != "" {
		m.logger.Debug("Session invalidated")
	}
	m.token = ""
}
