package googleauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTokeninfoServer(t *testing.T, status int, info tokenInfo) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.NotEmpty(t, r.URL.Query().Get("id_token"))
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(info)
	}))
}

func TestVerifyReturnsProfile(t *testing.T) {
	server := newTokeninfoServer(t, http.StatusOK, tokenInfo{
		Aud:     "client-1",
		Sub:     "google-123",
		Email:   "alice@example.com",
		Name:    "Alice",
		Picture: "https://example.com/alice.png",
	})
	defer server.Close()

	client := New("client-1")
	client.Endpoint = server.URL

	profile, err := client.Verify(context.Background(), "credential-token")
	require.NoError(t, err)
	require.Equal(t, "google-123", profile.ID)
	require.Equal(t, "alice@example.com", profile.Email)
	require.Equal(t, "Alice", profile.Name)
	require.Equal(t, "https://example.com/alice.png", profile.PictureURL)
}

func TestVerifyRejectsAudienceMismatch(t *testing.T) {
	server := newTokeninfoServer(t, http.StatusOK, tokenInfo{Aud: "someone-else", Sub: "google-123"})
	defer server.Close()

	client := New("client-1")
	client.Endpoint = server.URL

	_, err := client.Verify(context.Background(), "credential-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifySkipsAudienceCheckWithoutClientID(t *testing.T) {
	server := newTokeninfoServer(t, http.StatusOK, tokenInfo{Aud: "someone-else", Sub: "google-123"})
	defer server.Close()

	client := New("")
	client.Endpoint = server.URL

	profile, err := client.Verify(context.Background(), "credential-token")
	require.NoError(t, err)
	require.Equal(t, "google-123", profile.ID)
}

func TestVerifyRejectsBadToken(t *testing.T) {
	server := newTokeninfoServer(t, http.StatusBadRequest, tokenInfo{})
	defer server.Close()

	client := New("client-1")
	client.Endpoint = server.URL

	_, err := client.Verify(context.Background(), "expired-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = client.Verify(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken)
}
