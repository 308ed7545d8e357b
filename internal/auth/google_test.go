package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGoogleProviderExchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"g-123","email":"ada@example.com","name":"Ada","picture":"https://img/ada.png"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	g := NewGoogleProvider("cid", "secret", "http://localhost/api/auth/google/callback")
	g.cfg.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	g.userInfoURL = srv.URL + "/userinfo"

	p, err := g.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, &OAuthProfile{Provider: "google", ID: "g-123", Email: "ada@example.com", Name: "Ada", Avatar: "https://img/ada.png"}, p)
}

func TestGoogleProviderAuthCodeURL(t *testing.T) {
	g := NewGoogleProvider("cid", "secret", "http://localhost/cb")
	u, err := url.Parse(g.AuthCodeURL("xyz"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "xyz", q.Get("state"))
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "http://localhost/cb", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "email")
}
