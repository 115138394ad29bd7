package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/nexcart/commerce-core/internal/errors"
)

func newTestGoogleProvider(t *testing.T) *GoogleProvider {
	t.Helper()
	p, err := NewGoogleProvider(GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://shop.example.com/auth/google/callback",
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func TestGoogleProvider_RequiresRegistration(t *testing.T) {
	if _, err := NewGoogleProvider(GoogleConfig{ClientID: "only-id"}); err == nil {
		t.Fatal("expected error for incomplete registration")
	}
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	p := newTestGoogleProvider(t)

	raw := p.AuthCodeURL("state-abc")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	q := parsed.Query()
	if q.Get("client_id") != "client-id" {
		t.Errorf("unexpected client_id %q", q.Get("client_id"))
	}
	if q.Get("state") != "state-abc" {
		t.Errorf("unexpected state %q", q.Get("state"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("unexpected response_type %q", q.Get("response_type"))
	}
	if q.Get("scope") != "openid profile email" {
		t.Errorf("unexpected scope %q", q.Get("scope"))
	}
}

func TestGoogleProvider_FetchAssertion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			if r.PostForm.Get("code") != "auth-code" {
				t.Errorf("unexpected code %q", r.PostForm.Get("code"))
			}
			if r.PostForm.Get("grant_type") != "authorization_code" {
				t.Errorf("unexpected grant_type %q", r.PostForm.Get("grant_type"))
			}
			fmt.Fprint(w, `{"access_token":"at-123"}`)
		case "/userinfo":
			if got := r.Header.Get("Authorization"); got != "Bearer at-123" {
				t.Errorf("unexpected authorization header %q", got)
			}
			fmt.Fprint(w, `{"sub":"goog-1","email":"grace@example.com","name":"Grace"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := newTestGoogleProvider(t)
	p.tokenURL = srv.URL + "/token"
	p.userinfoURL = srv.URL + "/userinfo"

	assertion, err := p.FetchAssertion(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("fetch assertion: %v", err)
	}
	if assertion.ExternalID != "goog-1" || assertion.Email != "grace@example.com" || assertion.Name != "Grace" {
		t.Errorf("unexpected assertion %+v", assertion)
	}
}

func TestGoogleProvider_ExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	defer srv.Close()

	p := newTestGoogleProvider(t)
	p.tokenURL = srv.URL

	_, err := p.FetchAssertion(context.Background(), "revoked-code")
	if !errors.HasCode(err, errors.CodeDependency) {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
}
