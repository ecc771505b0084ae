package server

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/alexraskin/linktree/internal/app"
)

const (
	sessionCookie = "session"
	sessionTTL    = 24 * time.Hour

	SchemeLight = "light"
	SchemeDark  = "dark"
)

// visitor is the per-browser page state: which page of which document the
// visitor is on and the color scheme they picked.
type visitor struct {
	view    app.View
	scheme  string
	expires time.Time
}

func (s *Server) createSession() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic("failed to generate session token: " + err.Error())
	}
	token := hex.EncodeToString(bytes)

	s.sessionsMu.Lock()
	s.pruneSessionsLocked()
	s.sessions[token] = &visitor{
		scheme:  SchemeLight,
		expires: s.now().Add(sessionTTL),
	}
	s.sessionsMu.Unlock()

	return token
}

// getVisitor returns a copy of the visitor state for a live session.
func (s *Server) getVisitor(token string) (visitor, bool) {
	s.sessionsMu.RLock()
	v, exists := s.sessions[token]
	var snapshot visitor
	if exists {
		snapshot = *v
	}
	s.sessionsMu.RUnlock()

	if !exists {
		return visitor{}, false
	}

	if s.now().After(snapshot.expires) {
		s.deleteSession(token)
		return visitor{}, false
	}

	return snapshot, true
}

func (s *Server) updateVisitor(token string, fn func(v *visitor)) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	v, exists := s.sessions[token]
	if !exists {
		return
	}
	fn(v)
	v.expires = s.now().Add(sessionTTL)
}

func (s *Server) deleteSession(token string) {
	s.sessionsMu.Lock()
	delete(s.sessions, token)
	s.sessionsMu.Unlock()
}

func (s *Server) pruneSessionsLocked() {
	now := s.now()
	for token, v := range s.sessions {
		if now.After(v.expires) {
			delete(s.sessions, token)
		}
	}
}

func (s *Server) getSessionFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// ensureSession returns the visitor's session token, starting a new session
// when the request carries none or an expired one.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (string, visitor) {
	token := s.getSessionFromRequest(r)
	if v, ok := s.getVisitor(token); ok {
		return token, v
	}

	token = s.createSession()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(sessionTTL.Seconds()),
		SameSite: http.SameSiteStrictMode,
	})

	v, _ := s.getVisitor(token)
	return token, v
}
