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

// fakeGitHub serves the token endpoint and the two user APIs.
func fakeGitHub(t *testing.T, userJSON, emailsJSON string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			http.Error(w, `{"error":"bad_verification_code"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gh-token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(userJSON))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		if emailsJSON == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(emailsJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(srv *httptest.Server) *GitHubProvider {
	return newGitHubProvider("client-id", "client-secret", "http://localhost/api/auth/github/callback",
		oauth2.Endpoint{
			AuthURL:   srv.URL + "/login/oauth/authorize",
			TokenURL:  srv.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		srv.URL,
	)
}

func TestAuthURL(t *testing.T) {
	p := NewGitHubProvider("client-id", "secret", "http://localhost:5001/api/auth/github/callback")

	u, err := url.Parse(p.AuthURL("state-123"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "http://localhost:5001/api/auth/github/callback", q.Get("redirect_uri"))
}

func TestExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("public email", func(t *testing.T) {
		srv := fakeGitHub(t, `{"id":7,"login":"octo","email":"octo@example.com"}`, "")
		u, err := testProvider(srv).Exchange(ctx, "good-code")
		require.NoError(t, err)
		assert.Equal(t, int64(7), u.ID)
		assert.Equal(t, "octo@example.com", u.AccountEmail())
	})

	t.Run("hidden email uses primary verified", func(t *testing.T) {
		srv := fakeGitHub(t, `{"id":7,"login":"octo","email":null}`,
			`[{"email":"old@example.com","primary":false,"verified":true},
			  {"email":"main@example.com","primary":true,"verified":true}]`)
		u, err := testProvider(srv).Exchange(ctx, "good-code")
		require.NoError(t, err)
		assert.Equal(t, "main@example.com", u.AccountEmail())
	})

	t.Run("hidden email falls back to noreply", func(t *testing.T) {
		srv := fakeGitHub(t, `{"id":7,"login":"octo"}`, "")
		u, err := testProvider(srv).Exchange(ctx, "good-code")
		require.NoError(t, err)
		assert.Equal(t, "octo@users.noreply.github.com", u.AccountEmail())
	})

	t.Run("bad code", func(t *testing.T) {
		srv := fakeGitHub(t, `{"id":7,"login":"octo"}`, "")
		_, err := testProvider(srv).Exchange(ctx, "bad-code")
		assert.Error(t, err)
	})

	t.Run("zero id", func(t *testing.T) {
		srv := fakeGitHub(t, `{"id":0,"login":"ghost"}`, "")
		_, err := testProvider(srv).Exchange(ctx, "good-code")
		assert.Error(t, err)
	})
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
