package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CallJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/activities/Chess Club/signup":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "a@mergington.edu", r.URL.Query().Get("email"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":"ok"}`))
		case "/":
			http.Redirect(w, r, "/static/index.html", http.StatusTemporaryRedirect)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Activity not found"}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 2*time.Second)
	ctx := context.Background()

	var body map[string]string
	status, err := c.CallJSON(ctx, http.MethodPost, SignupPath("Chess Club"), url.Values{"email": {"a@mergington.edu"}}, &body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["message"])

	body = nil
	status, err = c.CallJSON(ctx, http.MethodGet, "/nope", nil, &body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Activity not found", body["detail"])

	status, err = c.CallJSON(ctx, http.MethodGet, "/", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTemporaryRedirect, status)
}

func TestSignupPath(t *testing.T) {
	assert.Equal(t, "/activities/Gym%20Class/signup", SignupPath("Gym Class"))
}
