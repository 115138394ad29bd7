package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/nexcart/commerce-core/internal/auth"
	"github.com/nexcart/commerce-core/internal/domain/user"
	"github.com/nexcart/commerce-core/internal/httputil"
	"github.com/nexcart/commerce-core/internal/middleware"
)

const stateCookie = "oauth_state"

type tokenResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	u, err := s.resolver.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		s.recordAuth("register", false)
		httputil.WriteServiceError(w, r, err)
		return
	}

	token, err := s.issuer.Issue(u, auth.TierPassword)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	s.recordAuth("register", true)
	httputil.WriteJSON(w, http.StatusCreated, tokenResponse{Token: token, User: u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	u, err := s.resolver.ResolveLocal(r.Context(), payload.Email, payload.Password)
	if err != nil {
		s.recordAuth("password", false)
		httputil.WriteServiceError(w, r, err)
		return
	}

	token, err := s.issuer.Issue(u, auth.TierPassword)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	s.recordAuth("password", true)
	httputil.WriteJSON(w, http.StatusOK, tokenResponse{Token: token, User: u})
}

// handleLogout exists for client symmetry. Tokens are stateless, so the
// server has nothing to invalidate; clients drop the token.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// handleVerify checks the bearer token and echoes its claims.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	claims, err := s.gate.Admit(middleware.BearerToken(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": claims})
}

// handleCurrentUser returns the authenticated user's stored profile.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.GetByID(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": u})
}

func (s *Server) handleGoogleRedirect(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.google.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || state == "" || cookie.Value != state {
		http.Redirect(w, r, "/login?error=google_auth_failed", http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login?error=google_auth_failed", http.StatusFound)
		return
	}

	assertion, err := s.google.FetchAssertion(r.Context(), code)
	if err != nil {
		s.recordAuth("federated", false)
		s.log.WithContext(r.Context()).WithError(err).Warn("Google code exchange failed")
		http.Redirect(w, r, "/login?error=google_auth_failed", http.StatusFound)
		return
	}

	u, err := s.resolver.ResolveFederated(r.Context(), assertion)
	if err != nil {
		s.recordAuth("federated", false)
		httputil.WriteServiceError(w, r, err)
		return
	}

	token, err := s.issuer.Issue(u, auth.TierFederated)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	s.recordAuth("federated", true)
	http.Redirect(w, r, "/?token="+token, http.StatusFound)
}

func (s *Server) recordAuth(method string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordAuthAttempt(method, success)
	}
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
