package auth

import (
	"net/http"
	"strings"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"

	"github.com/Billy-Davies-2/futdraw/internal/logger"
)

// GuestSessionTTL is how long a guest session cookie lives.
const GuestSessionTTL = 30 * 24 * time.Hour

// GuestAuth signs users in without an identity provider. A custom token
// (?token= or a bearer header) signs in as the token's subject; with no
// token a fresh anonymous owner is created with a generated display name.
type GuestAuth struct {
	sessions *sessions
}

// NewGuestAuth creates a guest provider verifying custom tokens with tokenSecret.
func NewGuestAuth(tokenSecret string) *GuestAuth {
	return &GuestAuth{sessions: newSessions(tokenSecret, false)}
}

// LoginHandler creates a session and redirects to the app.
func (g *GuestAuth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = BearerToken(r.Header.Get("Authorization"))
	}

	var user *User
	if token != "" {
		claims, err := ParseToken(g.sessions.tokenSecret, token)
		if err != nil {
			logger.Warn("Custom token sign-in failed", "error", err)
			http.Error(w, "Invalid sign-in token", http.StatusUnauthorized)
			return
		}
		user = claims.User()
	} else {
		user = NewGuest()
	}

	g.sessions.create(w, user, nil, time.Now().Add(GuestSessionTTL))
	logger.Info("User signed in", "owner", user.ID, "name", user.Name, "guest", user.Guest)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// CallbackHandler is not needed for guest auth
func (g *GuestAuth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LogoutHandler ends the session.
func (g *GuestAuth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	g.sessions.destroy(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Middleware requires a guest session or a bearer custom token.
func (g *GuestAuth) Middleware(next http.Handler) http.Handler {
	return g.sessions.middleware(next)
}

// NewGuest creates an anonymous user with a fresh owner id.
func NewGuest() *User {
	name := petname.Generate(2, " ")
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return &User{
		ID:       uuid.NewString(),
		Name:     name,
		Username: strings.ReplaceAll(strings.ToLower(name), " ", "-"),
		Guest:    true,
	}
}
