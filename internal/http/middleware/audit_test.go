package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/http/middleware"
	"github.com/integrateisp/ops-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingAuditLogger struct {
	mu      sync.Mutex
	entries []service.LogEntry
}

func (l *recordingAuditLogger) Record(_ context.Context, entry service.LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func auditedRouter(recorder *recordingAuditLogger, status int) http.Handler {
	mw := middleware.NewAuditMiddleware(recorder, nil, zap.NewNop())
	respond := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(status) }

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.Audit)
		r.Post("/auth/login-json", respond)
		r.Post("/finance/expenses", respond)
		r.Get("/finance/expenses", respond)
		r.Put("/tasks/{id}", respond)
		r.Delete("/users/{id}", respond)
		r.Put("/clients/{id}/contacts/{contactId}", respond)
		r.Put("/clients/{id}/quotations/{quotationId}", respond)
	})
	return r
}

func TestAuditMiddleware_RecordsMutations(t *testing.T) {
	taskID := uuid.New()
	clientID := uuid.New()
	contactID := uuid.New()
	quotationID := uuid.New()

	tests := []struct {
		name       string
		method     string
		path       string
		action     domain.AuditAction
		entityType string
		entityID   *uuid.UUID
	}{
		{"create expense", http.MethodPost, "/api/finance/expenses", domain.AuditActionCreate, "expense", nil},
		{"update task", http.MethodPut, "/api/tasks/" + taskID.String(), domain.AuditActionUpdate, "task", &taskID},
		{"delete user", http.MethodDelete, "/api/users/" + taskID.String(), domain.AuditActionDelete, "user", &taskID},
		{"nested contact", http.MethodPut, "/api/clients/" + clientID.String() + "/contacts/" + contactID.String(), domain.AuditActionUpdate, "contact", &contactID},
		{"nested quotation", http.MethodPut, "/api/clients/" + clientID.String() + "/quotations/" + quotationID.String(), domain.AuditActionUpdate, "quotation", &quotationID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &recordingAuditLogger{}
			handler := auditedRouter(recorder, http.StatusOK)

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{"title":"x"}`)))

			require.Len(t, recorder.entries, 1)
			entry := recorder.entries[0]
			assert.Equal(t, tt.action, entry.Action)
			assert.Equal(t, tt.entityType, entry.EntityType)
			assert.Equal(t, tt.entityID, entry.EntityID)
			assert.Equal(t, http.StatusOK, entry.StatusCode)
		})
	}
}

func TestAuditMiddleware_Skips(t *testing.T) {
	t.Run("reads", func(t *testing.T) {
		recorder := &recordingAuditLogger{}
		auditedRouter(recorder, http.StatusOK).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/finance/expenses", nil))
		assert.Empty(t, recorder.entries)
	})

	t.Run("login", func(t *testing.T) {
		recorder := &recordingAuditLogger{}
		body := strings.NewReader(`{"email":"a@b.c","password":"secret"}`)
		auditedRouter(recorder, http.StatusOK).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/auth/login-json", body))
		assert.Empty(t, recorder.entries)
	})

	t.Run("failed requests", func(t *testing.T) {
		recorder := &recordingAuditLogger{}
		auditedRouter(recorder, http.StatusConflict).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/finance/expenses", nil))
		assert.Empty(t, recorder.entries)
	})
}

func TestAuditMiddleware_SanitizesNestedSecrets(t *testing.T) {
	recorder := &recordingAuditLogger{}
	handler := auditedRouter(recorder, http.StatusCreated)

	body := `{"description":"router","password":"p","meta":{"Token":"t","keep":1},"items":[{"api_key":"k","name":"n"}]}`
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/finance/expenses", strings.NewReader(body)))

	require.Len(t, recorder.entries, 1)
	values, ok := recorder.entries[0].NewValues.(map[string]interface{})
	require.True(t, ok)

	assert.Equal(t, "router", values["description"])
	assert.NotContains(t, values, "password")

	meta := values["meta"].(map[string]interface{})
	assert.NotContains(t, meta, "Token")
	assert.Equal(t, float64(1), meta["keep"])

	items := values["items"].([]interface{})
	item := items[0].(map[string]interface{})
	assert.NotContains(t, item, "api_key")
	assert.Equal(t, "n", item["name"])
}

func TestAuditMiddleware_PassesBodyThrough(t *testing.T) {
	mw := middleware.NewAuditMiddleware(&recordingAuditLogger{}, nil, zap.NewNop())

	var seen string
	handler := mw.Audit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		seen = string(data)
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{"title":"t"}`)))
	assert.Equal(t, `{"title":"t"}`, seen)
}

func TestAuditMiddleware_RecordsOrigin(t *testing.T) {
	recorder := &recordingAuditLogger{}
	h := auditedRouter(recorder, http.StatusCreated)

	req := httptest.NewRequest(http.MethodPost, "/api/finance/expenses", strings.NewReader(`{}`))
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	req.Header.Set("User-Agent", "ops-cli/1.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	assert.Equal(t, "/api/finance/expenses", entry.Path)
	assert.Equal(t, "203.0.113.7", entry.IPAddress)
	assert.Equal(t, "req-42", entry.RequestID)
	assert.Equal(t, "ops-cli/1.0", entry.UserAgent)
}
