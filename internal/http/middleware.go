package http

import (
	"context"
	"net/http"

	"spendwise/internal/auth"
	"spendwise/internal/log"
)

type contextKey string

const sessionContextKey contextKey = "session"

// requireAuth redirects anonymous visitors to the landing page and puts the
// session into the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Get(r)
		if !ok || !sess.Authenticated() {
			s.sessions.AddFlash(w, r, auth.FlashInfo, "Please log in to access this page.")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, sess.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentSession returns the session stored by requireAuth.
func currentSession(r *http.Request) auth.Session {
	sess, _ := r.Context().Value(sessionContextKey).(auth.Session)
	return sess
}
