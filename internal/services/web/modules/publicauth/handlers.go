package publicauth

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/platform/id"
	"github.com/prestigeprep/prep/internal/platform/requestctx"
	"github.com/prestigeprep/prep/internal/services/web/platform/authz"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
	"github.com/prestigeprep/prep/internal/services/web/platform/session"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
	"github.com/prestigeprep/prep/internal/services/web/templates"
)

const defaultNext = routepath.Dashboard

type handlers struct {
	pages    pagerender.Renderer
	sessions *session.Manager
	provider Provider
	client   *http.Client
	baseURL  string
	devLogin bool
	logger   *zap.Logger
}

type loginView struct {
	Error         string
	GoogleEnabled bool
	GoogleURL     string
	DevLogin      bool
	Next          string
}

func (h handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	next := session.SafeNext(r.URL.Query().Get("next"), defaultNext)
	if authz.Authenticated(r) {
		httpx.WriteRedirect(w, r, next)
		return
	}
	view := loginView{
		Error:         loginErrorMessage(r.URL.Query().Get("error")),
		GoogleEnabled: h.provider.Enabled(),
		GoogleURL:     routepath.GoogleStart + "?next=" + url.QueryEscape(next),
		DevLogin:      h.devLogin,
		Next:          next,
	}
	h.pages.Write(w, r, pagerender.Page{Title: "Sign in", Body: templates.Page("login", view)})
}

func (h handlers) handleDevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.devLogin {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	email := strings.ToLower(strings.TrimSpace(r.PostFormValue("email")))
	if email == "" || !strings.Contains(email, "@") {
		httpx.WriteRedirect(w, r, routepath.Login+"?error=email")
		return
	}
	principal := requestctx.Principal{
		UserID: "dev:" + email,
		Email:  email,
		Name:   strings.TrimSpace(r.PostFormValue("name")),
	}
	if err := h.sessions.Issue(w, r, principal); err != nil {
		h.log().Error("issue dev session", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	httpx.WriteRedirect(w, r, session.SafeNext(r.PostFormValue("next"), defaultNext))
}

func (h handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w, r)
	httpx.WriteRedirect(w, r, routepath.Home)
}

func (h handlers) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	if !h.provider.Enabled() {
		http.NotFound(w, r)
		return
	}
	verifier, err := newCodeVerifier()
	if err != nil {
		http.Error(w, "failed to generate code verifier", http.StatusInternalServerError)
		return
	}
	state := id.NewToken()
	err = h.sessions.IssueOAuthState(w, r, session.OAuthState{
		State:    state,
		Verifier: verifier,
		Next:     session.SafeNext(r.URL.Query().Get("next"), defaultNext),
	})
	if err != nil {
		h.log().Error("issue oauth state", zap.Error(err))
		http.Error(w, "failed to start sign-in", http.StatusInternalServerError)
		return
	}
	target, err := h.provider.authCodeURL(h.redirectURI(r), state, s256Challenge(verifier))
	if err != nil {
		http.Error(w, "invalid provider config", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h handlers) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	state, ok := h.sessions.ConsumeOAuthState(w, r)
	if errParam := query.Get("error"); errParam != "" {
		h.log().Warn("google sign-in declined", zap.String("error", errParam))
		httpx.WriteRedirect(w, r, routepath.Login+"?error=denied")
		return
	}
	if !ok || query.Get("state") == "" || query.Get("state") != state.State {
		httpx.WriteRedirect(w, r, routepath.Login+"?error=state")
		return
	}
	code := query.Get("code")
	if code == "" {
		httpx.WriteRedirect(w, r, routepath.Login+"?error=state")
		return
	}

	ctx := r.Context()
	token, err := h.provider.exchange(ctx, h.client, h.redirectURI(r), code, state.Verifier)
	if err != nil {
		h.log().Warn("google token exchange", zap.Error(err))
		httpx.WriteRedirect(w, r, routepath.Login+"?error=exchange")
		return
	}
	profile, err := h.provider.profile(ctx, h.client, token)
	if err != nil {
		h.log().Warn("google profile", zap.Error(err))
		httpx.WriteRedirect(w, r, routepath.Login+"?error=exchange")
		return
	}
	principal := requestctx.Principal{
		UserID:  profile.Sub,
		Email:   profile.Email,
		Name:    profile.Name,
		Picture: profile.Picture,
	}
	if err := h.sessions.Issue(w, r, principal); err != nil {
		h.log().Error("issue session", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.log().Info("signed in", zap.String("user", principal.UserID))
	httpx.WriteRedirect(w, r, session.SafeNext(state.Next, defaultNext))
}

func (h handlers) redirectURI(r *http.Request) string {
	return requestmeta.Origin(r, h.baseURL, h.sessions.Policy()) + routepath.GoogleCallback
}

func (h handlers) log() *zap.Logger {
	if h.logger == nil {
		return zap.NewNop()
	}
	return h.logger
}

func loginErrorMessage(code string) string {
	switch code {
	case "":
		return ""
	case "denied":
		return "Google sign-in was cancelled."
	case "state":
		return "Your sign-in link expired. Please try again."
	case "email":
		return "Enter a valid email address."
	default:
		return "Sign-in failed. Please try again."
	}
}
