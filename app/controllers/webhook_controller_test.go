package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitwatch-app/gitwatch/app/models"
	"github.com/gitwatch-app/gitwatch/internal/pkg/webhook"
)

const webhookTestSecret = "hook-secret"

type fakeWatchStore struct {
	watches []models.WatchedRepo
	err     error

	lookups  int
	gotOwner string
	gotRepo  string

	resetUpdated int64
	resetErr     error
	resetUserID  uint
	resetOwner   string
	resetRepo    string
}

func (s *fakeWatchStore) FindActiveByRepo(owner, repo string) ([]models.WatchedRepo, error) {
	s.lookups++
	s.gotOwner, s.gotRepo = owner, repo
	return s.watches, s.err
}

func (s *fakeWatchStore) Create(*models.WatchedRepo) error               { return nil }
func (s *fakeWatchStore) GetByID(uint) (*models.WatchedRepo, error)      { return nil, nil }
func (s *fakeWatchStore) GetByUserID(uint) ([]models.WatchedRepo, error) { return nil, nil }
func (s *fakeWatchStore) Update(*models.WatchedRepo) error               { return nil }
func (s *fakeWatchStore) Delete(uint) error                              { return nil }
func (s *fakeWatchStore) Count() (int64, error)                          { return 0, nil }
func (s *fakeWatchStore) ResetLastPolled(userID uint, owner, repo string, _ time.Time) (int64, error) {
	s.resetUserID, s.resetOwner, s.resetRepo = userID, owner, repo
	return s.resetUpdated, s.resetErr
}

type sentMessage struct {
	chatID    int64
	text      string
	parseMode string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *fakeSender) SendMessage(_ context.Context, chatID int64, text, parseMode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text, parseMode: parseMode})
	return s.err
}

func (s *fakeSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

func newWebhookTestApp(store *fakeWatchStore, sender *fakeSender) *fiber.App {
	wf := &webhookWorkflow{
		watches:    store,
		dispatcher: webhook.NewDispatcherWithOptions(sender, 2, time.Second),
	}
	app := fiber.New()
	app.Post("/api/webhooks/github", wf.run)
	return app
}

func signedWebhookRequest(eventType string, body []byte, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/github", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", eventType)
	req.Header.Set("X-GitHub-Delivery", "test-delivery-1")
	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}
	return req
}

func issuesOpenedBody() []byte {
	return []byte(`{
		"action": "opened",
		"issue": {"number": 42, "title": "Crash on startup", "html_url": "https://github.com/acme/widgets/issues/42"},
		"repository": {"name": "widgets", "owner": {"login": "acme"}},
		"sender": {"login": "mona"}
	}`)
}

func TestWebhook_MissingSecretConfig(t *testing.T) {
	t.Setenv("GITHUB_WEBHOOK_SECRET", "")
	app := newWebhookTestApp(&fakeWatchStore{}, &fakeSender{})

	resp, err := app.Test(signedWebhookRequest("issues", issuesOpenedBody(), webhookTestSecret))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestWebhook_MissingSignature(t *testing.T) {
	t.Setenv("GITHUB_WEBHOOK_SECRET", webhookTestSecret)
	store := &fakeWatchStore{}
	app := newWebhookTestApp(store, &fakeSender{})

	resp, err := app.Test(signedWebhookRequest("issues", issuesOpenedBody(), ""))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, store.lookups, "unauthenticated deliveries must not reach the store")
}

func TestWebhook_InvalidSignature(t *testing.T) {
	t.Setenv("GITHUB_WEBHOOK_SECRET", webhookTestSecret)
	store := &fakeWatchStore{}
	app := newWebhookTestApp(store, &fakeSender{})

	resp, err := app.Test(signedWebhookRequest("issues", issuesOpenedBody(), "a-different-secret"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, store.lookups)
}

func TestWebhook_MalformedPayload(t *testing.T) {
	t.Setenv("GITHUB_WEBHOOK_SECRET", webhookTestSecret)
	app := newWebhookTestApp(&fakeWatchStore{}, &fakeSender{})

	resp, err := app.Test(signedWebhookRequest("issues", []byte(`{not json`), webhookTestSecret))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWebhook_UnknownEventTypeAccepted(t *testing.T) {
	t.Setenv("GITHUB_WEBHOOK_SECRET", webhookTestSecret)
	store := &fakeWatchStore{}
	app := newWebhookTestApp(store, &fakeSender{})

	resp, err := app.Test(signedWebhookRequest("star", []byte(`{"action":"created"}`), webhookTestSecret))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Zero(t, store.lookups)
}

func TestWebhook_NoSubscribers(t *testing.T) {
	t.Setenv("GITHUB_WEBHOOK_SECRET", webhookTestSecret)
	store := &fakeWatchStore{}
	sender := &fakeSender{}
	app := newWebhookTestApp(store, sender)

	resp, err := app.Test(signedWebhookRequest("issues", issuesOpenedBody(), webhookTestSecret))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, store.lookups)
	assert.Equal(t, "acme", store.gotOwner)
	assert.Equal(t, "widgets", store.gotRepo)
	assert.Empty(t, sender.messages())
}

func TestWebhook_FanOutRespectsNotifyFlags(t *testing.T) {
	t.Setenv("GITHUB_WEBHOOK_SECRET", webhookTestSecret)
	store := &fakeWatchStore{watches: []models.WatchedRepo{
		{
			ID:           1,
			Owner:        "acme",
			Repo:         "widgets",
			Active:       true,
			NotifyIssues: true,
			User:         models.User{TelegramID: 111},
		},
		{
			ID:           2,
			Owner:        "acme",
			Repo:         "widgets",
			Active:       true,
			NotifyIssues: false,
			User:         models.User{TelegramID: 222},
		},
	}}
	sender := &fakeSender{}
	app := newWebhookTestApp(store, sender)

	resp, err := app.Test(signedWebhookRequest("issues", issuesOpenedBody(), webhookTestSecret))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	sent := sender.messages()
	require.Len(t, sent, 1, "only the subscriber with issues enabled gets a message")
	assert.Equal(t, int64(111), sent[0].chatID)
	assert.Equal(t, webhook.ParseModeHTML, sent[0].parseMode)
	assert.Contains(t, sent[0].text, "Crash on startup")
	assert.Contains(t, sent[0].text, "acme/widgets")
}

func TestWebhook_DeliveryFailureStillAccepted(t *testing.T) {
	t.Setenv("GITHUB_WEBHOOK_SECRET", webhookTestSecret)
	store := &fakeWatchStore{watches: []models.WatchedRepo{
		{ID: 1, Owner: "acme", Repo: "widgets", Active: true, NotifyIssues: true, User: models.User{TelegramID: 111}},
	}}
	sender := &fakeSender{err: errors.New("chat not found")}
	app := newWebhookTestApp(store, sender)

	resp, err := app.Test(signedWebhookRequest("issues", issuesOpenedBody(), webhookTestSecret))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, sender.messages(), 1)
}

func TestWebhook_StoreFailure(t *testing.T) {
	t.Setenv("GITHUB_WEBHOOK_SECRET", webhookTestSecret)
	store := &fakeWatchStore{err: errors.New("connection refused")}
	app := newWebhookTestApp(store, &fakeSender{})

	resp, err := app.Test(signedWebhookRequest("issues", issuesOpenedBody(), webhookTestSecret))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
