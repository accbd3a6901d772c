package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbly/notification-service/internal/config"
	"github.com/nimbly/notification-service/internal/domain"
	"github.com/nimbly/notification-service/internal/mailer"
	"github.com/nimbly/notification-service/internal/service/suppression"
	"github.com/nimbly/notification-service/internal/snswebhook"
)

// memRepo is an in-memory suppression.Repository for handler tests.
type memRepo struct {
	mu      sync.Mutex
	entries map[string]domain.Suppression
}

func newMemRepo() *memRepo {
	return &memRepo{entries: map[string]domain.Suppression{}}
}

func (m *memRepo) Put(_ context.Context, entry *domain.Suppression) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.EmailHash] = *entry
	return nil
}

func (m *memRepo) IsSuppressed(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[hash]
	return ok, nil
}

func (m *memRepo) Remove(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[hash]; !ok {
		return suppression.ErrNotFound
	}
	delete(m.entries, hash)
	return nil
}

func (m *memRepo) List(_ context.Context, f suppression.ListFilter) ([]domain.Suppression, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Suppression
	for _, e := range m.entries {
		if f.Reason != "" && string(e.Reason) != f.Reason {
			continue
		}
		if f.Source != "" && string(e.Source) != f.Source {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *memRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

type stubTransport struct {
	sent []*domain.ComposedEmail
}

func (s *stubTransport) Name() string { return "stub" }

func (s *stubTransport) Send(_ context.Context, email *domain.ComposedEmail) (*domain.SendResult, error) {
	s.sent = append(s.sent, email)
	return &domain.SendResult{MessageID: "stub-1", Provider: "stub", AcceptedAt: time.Now().UTC()}, nil
}

type testEnv struct {
	handler   http.Handler
	repo      *memRepo
	transport *stubTransport
	svc       *suppression.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newMemRepo()
	svc := suppression.NewService(repo)

	transport := &stubTransport{}
	mailSvc := mailer.NewService(
		mailer.NewComposer(config.EmailConfig{From: "ops@nimbly.example"}),
		transport, svc)

	webhookCfg := config.WebhookConfig{
		Enabled:                  true,
		Path:                     "/internal/webhooks/ses",
		VerifySignature:          false,
		AutoConfirmSubscriptions: false,
		TimeoutSeconds:           1,
	}
	processor := snswebhook.NewProcessor(svc, webhookCfg)

	h := NewHandlers(mailSvc, svc, processor)
	return &testEnv{
		handler:   SetupRoutes(h, webhookCfg),
		repo:      repo,
		transport: transport,
		svc:       svc,
	}
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestWebhookHardBounce(t *testing.T) {
	env := newTestEnv(t)

	body := `{"Type":"Notification","MessageId":"m1","TopicArn":"arn:topic",` +
		`"Message":"{\"notificationType\":\"Bounce\",\"bounce\":{\"bounceType\":\"Permanent\",\"bouncedRecipients\":[{\"emailAddress\":\"gone@example.com\"}]}}"}`
	rec := env.do(http.MethodPost, "/internal/webhooks/ses", body,
		map[string]string{"x-amz-sns-message-type": "Notification"})

	assert.Equal(t, http.StatusNoContent, rec.Code)

	hit, err := env.svc.IsAddressSuppressed(context.Background(), "gone@example.com")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestWebhookMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/internal/webhooks/ses", "{broken", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// No internals in the body.
	assert.NotContains(t, rec.Body.String(), "json")
}

func TestWebhookDisabledNotMounted(t *testing.T) {
	repo := newMemRepo()
	svc := suppression.NewService(repo)
	h := NewHandlers(nil, svc, nil)
	handler := SetupRoutes(h, config.WebhookConfig{Enabled: false, Path: "/internal/webhooks/ses"})

	req := httptest.NewRequest(http.MethodPost, "/internal/webhooks/ses", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendEmail(t *testing.T) {
	env := newTestEnv(t)

	body := `{"to":[{"address":"ana@example.com"}],"subject":"hi","text_body":"hello"}`
	rec := env.do(http.MethodPost, "/api/notifications/email", body,
		map[string]string{"Content-Type": "application/json"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message_id":"stub-1"`)
	require.Len(t, env.transport.sent, 1)
}

func TestSendEmailValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/notifications/email",
		`{"subject":"hi","text_body":"hello"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/notifications/email",
		`{"to":[{"address":"ana@example.com"}],"subject":"hi"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/notifications/email", "{broken", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendEmailAllSuppressed(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.svc.SuppressAddress(context.Background(), "gone@example.com",
		domain.ReasonBounceHard, domain.SourceSESBounce, "test"))

	body := `{"to":[{"address":"gone@example.com"}],"subject":"hi","text_body":"hello"}`
	rec := env.do(http.MethodPost, "/api/notifications/email", body, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, env.transport.sent)
}

func TestSuppressionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// Add
	rec := env.do(http.MethodPost, "/api/suppressions/",
		`{"email":"spam@example.com","notes":"operator request"}`, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Check positive
	rec = env.do(http.MethodGet, "/api/suppressions/check?email=spam@example.com", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"suppressed":true`)

	// List
	rec = env.do(http.MethodGet, "/api/suppressions/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
	// Raw address never appears in stored entries.
	assert.NotContains(t, rec.Body.String(), "spam@example.com")

	// Stats
	rec = env.do(http.MethodGet, "/api/suppressions/stats", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"manual":1`)

	// Remove
	rec = env.do(http.MethodDelete, "/api/suppressions/?email=spam@example.com", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Check negative
	rec = env.do(http.MethodGet, "/api/suppressions/check?email=spam@example.com", "", nil)
	assert.Contains(t, rec.Body.String(), `"suppressed":false`)
}

func TestSuppressionValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/suppressions/", `{"notes":"no email"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/suppressions/", `{"email":"not-an-address"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/suppressions/check", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodDelete, "/api/suppressions/?email=unknown@example.com", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
