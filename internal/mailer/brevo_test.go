package mailer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shift-sync-backend/config"
)

func testMessage() Message {
	return Message{
		ReplyTo:    Recipient{Email: "ops@example.com"},
		To:         []Recipient{{Email: "manager@example.com", Name: "Manager"}},
		Subject:    "Jane Doe clocked in at Depot",
		TemplateID: 7,
		Params:     map[string]any{"status": "on time"},
	}
}

func newTestClient(url string) *Client {
	cfg := &config.MailerConfig{URL: url, APIKey: "secret-key", Timeout: 5 * time.Second}
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSend_Accepted(t *testing.T) {
	var gotBody map[string]any
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	err := newTestClient(server.URL).Send(context.Background(), testMessage())
	require.NoError(t, err)

	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, float64(7), gotBody["templateId"])
	assert.Equal(t, "Jane Doe clocked in at Depot", gotBody["subject"])
	params := gotBody["params"].(map[string]any)
	assert.Equal(t, "on time", params["status"])
}

func TestSend_NonCreatedStatus(t *testing.T) {
	// Even a 200 is not acceptance; the provider answers 201 for queued mail.
	for _, status := range []int{http.StatusOK, http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		err := newTestClient(server.URL).Send(context.Background(), testMessage())
		var serr *SendError
		require.ErrorAs(t, err, &serr, "status %d", status)
		assert.Equal(t, status, serr.StatusCode)
		server.Close()
	}
}

func TestSend_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	err := newTestClient(server.URL).Send(context.Background(), testMessage())
	var serr *SendError
	require.ErrorAs(t, err, &serr)
}
