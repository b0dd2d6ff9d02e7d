package security

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "wiki_session"
	userIDKey   = "user_id"
)

// ErrNoSession is returned by UserID when the request carries no valid
// login cookie.
var ErrNoSession = errors.New("no session")

// SessionStore keeps the logged-in user's id in a signed cookie.
type SessionStore struct {
	store *sessions.CookieStore
}

func NewSessionStore(secret []byte, maxAge int, secure bool) *SessionStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

// Login starts a session for userID and writes the cookie to w.
func (s *SessionStore) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, _ := s.store.Get(r, sessionName)
	session.Values[userIDKey] = userID
	return session.Save(r, w)
}

// UserID returns the id stored in the request's session.
func (s *SessionStore) UserID(r *http.Request) (int64, error) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		return 0, ErrNoSession
	}
	id, ok := session.Values[userIDKey].(int64)
	if !ok || id <= 0 {
		return 0, ErrNoSession
	}
	return id, nil
}

// Logout expires the session cookie.
func (s *SessionStore) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, sessionName)
	session.Options.MaxAge = -1
	delete(session.Values, userIDKey)
	return session.Save(r, w)
}
