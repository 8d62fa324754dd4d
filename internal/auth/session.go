package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/Billy-Davies-2/futdraw/internal/logger"
)

const sessionCookie = "session_id"

// User represents an authenticated user. ID is the roster owner.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email,omitempty"`
	Name     string   `json:"name"`
	Username string   `json:"username,omitempty"`
	Groups   []string `json:"groups,omitempty"`
	Guest    bool     `json:"guest,omitempty"`
}

// Session represents a user session
type Session struct {
	ID        string
	User      *User
	Token     *oauth2.Token
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AuthProvider is a common interface for authentication providers
type AuthProvider interface {
	LoginHandler(w http.ResponseWriter, r *http.Request)
	CallbackHandler(w http.ResponseWriter, r *http.Request)
	LogoutHandler(w http.ResponseWriter, r *http.Request)
	Middleware(next http.Handler) http.Handler
}

type contextKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(contextKey{}).(*User)
	return user
}

// GetUser retrieves the authenticated user from the request context
func GetUser(r *http.Request) *User {
	return UserFromContext(r.Context())
}

// IsAdmin checks if the user has admin privileges
func IsAdmin(user *User) bool {
	if user == nil {
		return false
	}
	for _, group := range user.Groups {
		if group == "admins" {
			return true
		}
	}
	return false
}

// sessions is the cookie session table shared by the providers, plus
// bearer-token verification for API clients.
type sessions struct {
	mu          sync.RWMutex
	byID        map[string]*Session
	tokenSecret string
	secure      bool
}

func newSessions(tokenSecret string, secure bool) *sessions {
	return &sessions{
		byID:        make(map[string]*Session),
		tokenSecret: tokenSecret,
		secure:      secure,
	}
}

func (s *sessions) create(w http.ResponseWriter, user *User, token *oauth2.Token, expires time.Time) *Session {
	session := &Session{
		ID:        generateSessionID(),
		User:      user,
		Token:     token,
		CreatedAt: time.Now(),
		ExpiresAt: expires,
	}
	s.mu.Lock()
	s.byID[session.ID] = session
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	return session
}

func (s *sessions) lookup(id string) (*Session, bool) {
	s.mu.RLock()
	session, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.byID, id)
		s.mu.Unlock()
		return nil, false
	}
	return session, true
}

func (s *sessions) destroy(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.byID, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// authenticate resolves the request's user from a bearer token or the
// session cookie.
func (s *sessions) authenticate(r *http.Request) *User {
	if token := BearerToken(r.Header.Get("Authorization")); token != "" {
		claims, err := ParseToken(s.tokenSecret, token)
		if err != nil {
			logger.Debug("Rejected bearer token", "error", err, "path", r.URL.Path)
			return nil
		}
		return claims.User()
	}
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	session, ok := s.lookup(cookie.Value)
	if !ok {
		return nil
	}
	return session.User
}

func (s *sessions) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := s.authenticate(r)
		if user == nil {
			deny(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// deny answers API and stream requests with a JSON 401 and sends browsers to
// the login page.
func deny(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/images/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "unauthenticated",
			"message": "authentication required",
		})
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// BearerToken extracts the token from an "Authorization: Bearer" value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func randomString() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

// generateState generates a random state string for CSRF protection
func generateState() string {
	return randomString()
}

func generateSessionID() string {
	return randomString()
}
