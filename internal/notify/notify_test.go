package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhook_PostsEvent(t *testing.T) {
	received := make(chan Event, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var event Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		received <- event
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	occurred := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	webhook := NewWebhook(server.URL, time.Second, zap.NewNop())
	err := webhook.Notify(context.Background(), Event{
		Event:          EventClientCreated,
		OrganizationID: "org1",
		ClientID:       "c1",
		OccurredAt:     occurred,
	})
	require.NoError(t, err)

	got := <-received
	assert.Equal(t, EventClientCreated, got.Event)
	assert.Equal(t, "org1", got.OrganizationID)
	assert.Equal(t, "c1", got.ClientID)
	assert.True(t, occurred.Equal(got.OccurredAt))
}

func TestWebhook_ErrorStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	webhook := NewWebhook(server.URL, time.Second, zap.NewNop())
	err := webhook.Notify(context.Background(), Event{Event: EventClientTagged})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhook_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	webhook := NewWebhook(url, 200*time.Millisecond, zap.NewNop())
	assert.Error(t, webhook.Notify(context.Background(), Event{Event: EventClientCreated}))
}
