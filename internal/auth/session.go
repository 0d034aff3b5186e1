package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/cache"
	"spendwise/internal/core"
)

const (
	SessionCookieName = "spendwise_session"

	stateTTL    = 10 * time.Minute
	maxSessions = 10000
	maxStates   = 1000
)

// Flash kinds, matching the template alert classes.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

type Flash struct {
	Kind    string
	Message string
}

// Session is server-side state keyed by the cookie value. A session without a
// UserID only carries flash messages.
type Session struct {
	ID          string
	UserID      string
	Email       string
	DisplayName string
	Demo        bool
	Flashes     []Flash
	CreatedAt   time.Time
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// SessionStore keeps sessions and pending OAuth states in TTL-bound LRU caches.
type SessionStore struct {
	mu       sync.Mutex
	sessions *cache.LRUCache[Session]
	states   *cache.LRUCache[struct{}]
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl. secure marks
// the cookie Secure.
func NewSessionStore(ttl time.Duration, secure bool) *SessionStore {
	return &SessionStore{
		sessions: cache.NewLRUCache[Session](maxSessions, ttl),
		states:   cache.NewLRUCache[struct{}](maxStates, stateTTL),
		ttl:      ttl,
		secure:   secure,
		now:      time.Now,
	}
}

// RegisterCaches hands both caches to m for periodic expiry sweeps.
func (s *SessionStore) RegisterCaches(m *cache.Manager) {
	m.Register("sessions", s.sessions)
	m.Register("oauth_states", s.states)
}

// Login starts a fresh session for u and sets the cookie. Pending flashes of
// the previous session come first, followed by flashes.
func (s *SessionStore) Login(w http.ResponseWriter, r *http.Request, u core.User, flashes ...Flash) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.lookup(r); ok {
		flashes = append(old.Flashes, flashes...)
		s.sessions.Delete(old.ID)
	}

	sess := Session{
		ID:          uuid.NewString(),
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Demo:        u.Provider == core.ProviderDemo,
		Flashes:     flashes,
		CreatedAt:   s.now(),
	}
	s.sessions.Set(sess.ID, sess)
	s.setCookie(w, sess.ID)
	return sess
}

// Get returns the session named by the request cookie.
func (s *SessionStore) Get(r *http.Request) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(r)
}

func (s *SessionStore) lookup(r *http.Request) (Session, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return Session{}, false
	}
	return s.sessions.Get(c.Value)
}

// Logout drops the session and expires the cookie.
func (s *SessionStore) Logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if sess, ok := s.lookup(r); ok {
		s.sessions.Delete(sess.ID)
	}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// AddFlash queues a message for the next page render, creating an anonymous
// session when the request has none.
func (s *SessionStore) AddFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(r)
	if !ok {
		sess = Session{ID: uuid.NewString(), CreatedAt: s.now()}
		s.setCookie(w, sess.ID)
	}
	sess.Flashes = append(sess.Flashes, Flash{Kind: kind, Message: message})
	s.sessions.Set(sess.ID, sess)
}

// PopFlashes returns and clears the queued messages.
func (s *SessionStore) PopFlashes(r *http.Request) []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(r)
	if !ok || len(sess.Flashes) == 0 {
		return nil
	}
	flashes := sess.Flashes
	sess.Flashes = nil
	s.sessions.Set(sess.ID, sess)
	return flashes
}

// NewState issues a single-use OAuth state token.
func (s *SessionStore) NewState() string {
	state := uuid.NewString()
	s.states.Set(state, struct{}{})
	return state
}

// ConsumeState reports whether state was issued and not yet used.
func (s *SessionStore) ConsumeState(state string) bool {
	if state == "" {
		return false
	}
	_, ok := s.states.Take(state)
	return ok
}

func (s *SessionStore) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
