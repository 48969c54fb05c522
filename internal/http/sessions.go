package http

import (
	"net/http"

	"github.com/google/uuid"

	"halya/internal/log"
	"halya/internal/lookup"
)

const sessionCookie = "halya_session"

// session returns the lookup session for the request's cookie, creating
// one (and setting the cookie) when the cookie is missing, malformed or
// refers to an expired session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *lookup.Session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			if sess, ok := s.sessions.Get(c.Value); ok {
				return sess
			}
		}
	}

	id := uuid.NewString()
	sess, _ := s.sessions.GetOrCreate(id, func() *lookup.Session {
		return lookup.NewSessionWithID(id, s.store, s.sessionOpts...)
	})
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	log.FromContext(r.Context()).DebugContext(r.Context(), "Session created", log.FieldSessionID, id)
	return sess
}
