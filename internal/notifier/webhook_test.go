package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/models"
)

func webhookAlert() models.Alert {
	return models.Alert{
		AlertID:     "alert-1",
		HouseholdID: "house-1",
		Resident:    "margaret",
		Type:        models.AnomalyProlongedInactivity,
		Severity:    models.SeverityCritical,
		Title:       "No Movement Detected",
		Timestamp:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestNotify_PostsAlertJSON(t *testing.T) {
	var received models.Alert
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(config.NotifierConfig{
		WebhookURL: server.URL,
		Timeout:    5 * time.Second,
	}, zap.NewNop())
	require.NotNil(t, n)

	err := n.Notify(context.Background(), webhookAlert())
	require.NoError(t, err)
	assert.Equal(t, "alert-1", received.AlertID)
	assert.Equal(t, models.SeverityCritical, received.Severity)
}

func TestNotify_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhookNotifier(config.NotifierConfig{
		WebhookURL: server.URL,
		Timeout:    5 * time.Second,
	}, zap.NewNop())

	err := n.Notify(context.Background(), webhookAlert())
	assert.Error(t, err)
}

func TestNotify_RetriesUntilSuccess(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(config.NotifierConfig{
		WebhookURL: server.URL,
		Timeout:    5 * time.Second,
		RetryCount: 3,
	}, zap.NewNop())

	err := n.Notify(context.Background(), webhookAlert())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestNotifier_DisabledWhenNoURL(t *testing.T) {
	n := NewWebhookNotifier(config.NotifierConfig{}, zap.NewNop())
	assert.Nil(t, n)

	// The nil receiver is valid and does nothing.
	assert.NoError(t, n.Notify(context.Background(), webhookAlert()))
}
