package user

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NewSessionManager creates a new session manager.
// It uses in-memory storage.
func NewSessionManager[T any](sessionLifetime time.Duration) *SessionManager[T] {
	return &SessionManager[T]{
		sessionLifetime: sessionLifetime,
		store: &sessionStore[T]{
			sessions: make(map[string]*Session[T]),
			mux:      &sync.Mutex{},
		},
	}
}

type Session[T any] struct {
	Data    T
	Expires time.Time
}

type SessionManager[T any] struct {
	sessionLifetime time.Duration
	store           *sessionStore[T]
}

type sessionStore[T any] struct {
	sessions map[string]*Session[T]
	mux      *sync.Mutex
}

// Create creates a new session and sets a session cookie.
// The given value is stored in the session, which can be retrieved later using Get.
func (m *SessionManager[T]) Create(response http.ResponseWriter, value T) {
	id, _ := m.store.create(value, m.sessionLifetime)
	setSessionCookie(id, response, m.sessionLifetime)
}

// Get retrieves the session for the given request.
// The session is retrieved using the session cookie.
// If no session is found, nil is returned.
func (m *SessionManager[T]) Get(request *http.Request) *T {
	sessionID := getSessionCookie(request)
	if sessionID == "" {
		return nil
	}
	session := m.store.get(sessionID)
	if session == nil {
		return nil
	}
	return &session.Data
}

func (m *SessionManager[T]) Destroy(response http.ResponseWriter, request *http.Request) {
	sessionID := getSessionCookie(request)
	if sessionID != "" {
		m.store.destroy(sessionID)
	} else {
		log.Warn().Msg("No session to destroy")
	}
	cookie := http.Cookie{
		Name:     "sid",
		Value:    "",
		HttpOnly: true,
		Expires:  time.Now().Add(-time.Minute),
	}
	http.SetCookie(response, &cookie)
}

// PruneSessions removes expired sessions.
func (m *SessionManager[T]) PruneSessions() {
	m.store.mux.Lock()
	defer m.store.mux.Unlock()
	m.store.prune()
}

// SessionCount returns the number of currently stored sessions.
func (m *SessionManager[T]) SessionCount() int {
	m.store.mux.Lock()
	defer m.store.mux.Unlock()
	m.store.prune()
	return len(m.store.sessions)
}

func (s *sessionStore[T]) create(value T, lifetime time.Duration) (string, *Session[T]) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.prune()
	result := &Session[T]{
		Data:    value,
		Expires: time.Now().Add(lifetime),
	}
	id := uuid.NewString()
	s.sessions[id] = result
	return id, result
}

func (s *sessionStore[T]) get(id string) *Session[T] {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.prune()
	return s.sessions[id]
}

func (s *sessionStore[T]) prune() {
	for id, session := range s.sessions {
		if session.Expires.Before(time.Now()) {
			delete(s.sessions, id)
		}
	}
}

func (s *sessionStore[T]) destroy(id string) {
	log.Info().Msgf("Destroying user session (id=%s)", id)
	s.mux.Lock()
	defer s.mux.Unlock()
	delete(s.sessions, id)
}

func setSessionCookie(sessionID string, response http.ResponseWriter, lifetime time.Duration) {
	cookie := http.Cookie{
		Name:     "sid",
		Value:    sessionID,
		HttpOnly: true,
		Expires:  time.Now().Add(lifetime),
	}
	http.SetCookie(response, &cookie)
}

func getSessionCookie(request *http.Request) string {
	cookie, err := request.Cookie("sid")
	if err != nil {
		return ""
	}
	return cookie.Value
}
