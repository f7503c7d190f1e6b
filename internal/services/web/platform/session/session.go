// Package session issues and verifies the signed session and OAuth state
// cookies.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prestigeprep/prep/internal/platform/requestctx"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
	"github.com/prestigeprep/prep/internal/services/web/platform/sessioncookie"
)

const (
	issuer        = "prep"
	sessionAud    = "session"
	stateAud      = "oauth-state"
	stateTTL      = 10 * time.Minute
	minSecretSize = 16
)

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 720 * time.Hour

// Config configures a Manager.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Policy requestmeta.SchemePolicy
	Now    func() time.Time
}

// Manager signs and verifies HS256 cookies.
type Manager struct {
	secret []byte
	ttl    time.Duration
	policy requestmeta.SchemePolicy
	now    func() time.Time
}

// OAuthState is the sign-in round-trip state held in a cookie between the
// start and callback requests.
type OAuthState struct {
	State    string
	Verifier string
	Next     string
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

type stateClaims struct {
	jwt.RegisteredClaims
	State    string `json:"state"`
	Verifier string `json:"verifier"`
	Next     string `json:"next,omitempty"`
}

// NewManager validates cfg.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretSize {
		return nil, fmt.Errorf("session secret must be at least %d bytes", minSecretSize)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{secret: cfg.Secret, ttl: cfg.TTL, policy: cfg.Policy, now: cfg.Now}, nil
}

// Policy returns the scheme policy used for cookies.
func (m *Manager) Policy() requestmeta.SchemePolicy { return m.policy }

// Issue writes a session cookie for principal.
func (m *Manager) Issue(w http.ResponseWriter, r *http.Request, principal requestctx.Principal) error {
	if !principal.Authenticated() {
		return errors.New("principal user id is required")
	}
	now := m.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{sessionAud},
			Subject:   principal.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Email:   principal.Email,
		Name:    principal.Name,
		Picture: principal.Picture,
	}
	token, err := m.sign(claims)
	if err != nil {
		return err
	}
	sessioncookie.Write(w, r, sessioncookie.Name, token, m.ttl, m.policy)
	return nil
}

// Read verifies the session cookie and returns its principal.
func (m *Manager) Read(r *http.Request) (requestctx.Principal, bool) {
	raw, ok := sessioncookie.Read(r)
	if !ok {
		return requestctx.Principal{}, false
	}
	var claims sessionClaims
	if err := m.parse(raw, sessionAud, &claims); err != nil {
		return requestctx.Principal{}, false
	}
	principal := requestctx.Principal{
		UserID:  claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}
	return principal, principal.Authenticated()
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) {
	sessioncookie.Clear(w, r, sessioncookie.Name, m.policy)
}

// IssueOAuthState writes a short-lived signed state cookie.
func (m *Manager) IssueOAuthState(w http.ResponseWriter, r *http.Request, state OAuthState) error {
	if strings.TrimSpace(state.State) == "" || strings.TrimSpace(state.Verifier) == "" {
		return errors.New("oauth state and verifier are required")
	}
	now := m.now()
	token, err := m.sign(stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{stateAud},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
		State:    state.State,
		Verifier: state.Verifier,
		Next:     state.Next,
	})
	if err != nil {
		return err
	}
	sessioncookie.Write(w, r, sessioncookie.StateName, token, stateTTL, m.policy)
	return nil
}

// ConsumeOAuthState verifies and clears the state cookie.
func (m *Manager) ConsumeOAuthState(w http.ResponseWriter, r *http.Request) (OAuthState, bool) {
	raw, ok := sessioncookie.ReadNamed(r, sessioncookie.StateName)
	if !ok {
		return OAuthState{}, false
	}
	sessioncookie.Clear(w, r, sessioncookie.StateName, m.policy)
	var claims stateClaims
	if err := m.parse(raw, stateAud, &claims); err != nil {
		return OAuthState{}, false
	}
	return OAuthState{State: claims.State, Verifier: claims.Verifier, Next: claims.Next}, true
}

// Middleware stores the verified principal, if any, in the request context.
func (m *Manager) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, ok := m.Read(r); ok {
				r = r.WithContext(requestctx.WithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Manager) sign(claims jwt.Claims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (m *Manager) parse(raw, audience string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	return err
}

// SafeNext returns next when it is a local absolute path, else fallback.
func SafeNext(next, fallback string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}
