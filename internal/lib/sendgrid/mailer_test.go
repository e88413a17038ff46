package sendgrid

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/lms-platform/internal/config"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMailer_Send(t *testing.T) {
	var got struct {
		From struct {
			Email string `json:"email"`
		} `json:"from"`
		Personalizations []struct {
			Subject string `json:"subject"`
			To      []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
	}
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, endpoint, r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	mailer := NewMailer(config.Email{
		EmailFrom:      "noreply@lms.local",
		EmailFromName:  "LMS",
		SendGridAPIKey: "SG.test",
		SendGridHost:   srv.URL,
	}, newNoopLogger())

	err := mailer.Send(context.Background(), models.Email{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Отчёт",
		Body:    "2 users deactivated",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer SG.test", authHeader)
	assert.Equal(t, "noreply@lms.local", got.From.Email)
	require.Len(t, got.Personalizations, 2)
	assert.Equal(t, "a@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "Отчёт", got.Personalizations[1].Subject)
	require.Len(t, got.Content, 1)
	assert.Equal(t, "2 users deactivated", got.Content[0].Value)
}

func TestMailer_SendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	mailer := NewMailer(config.Email{EmailFrom: "noreply@lms.local", SendGridHost: srv.URL}, newNoopLogger())
	err := mailer.Send(context.Background(), models.Email{To: []string{"a@example.com"}, Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
