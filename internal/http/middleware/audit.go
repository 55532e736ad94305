package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/service"
	"go.uber.org/zap"
)

// AuditConfig holds configuration for audit middleware
type AuditConfig struct {
	// PathPrefix limits auditing to requests under this prefix
	PathPrefix string
	// SkipPaths are exact or prefix paths that are never audited
	SkipPaths []string
	// SensitiveFields are removed from the recorded request body at any depth
	SensitiveFields []string
}

// DefaultAuditConfig returns default audit configuration
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		PathPrefix: "/api/",
		SkipPaths: []string{
			"/api/auth/login",
		},
		SensitiveFields: []string{
			"password", "new_password", "current_password",
			"token", "access_token", "refresh_token",
			"secret", "api_key",
		},
	}
}

// AuditLogger is the subset of the audit service used by the middleware
type AuditLogger interface {
	Record(ctx context.Context, entry service.LogEntry) error
}

// AuditMiddleware records successful mutating requests
type AuditMiddleware struct {
	auditService AuditLogger
	config       *AuditConfig
	sensitive    map[string]bool
	logger       *zap.Logger
}

// NewAuditMiddleware creates a new audit middleware
func NewAuditMiddleware(auditService AuditLogger, config *AuditConfig, logger *zap.Logger) *AuditMiddleware {
	if config == nil {
		config = DefaultAuditConfig()
	}
	sensitive := make(map[string]bool, len(config.SensitiveFields))
	for _, f := range config.SensitiveFields {
		sensitive[strings.ToLower(f)] = true
	}
	return &AuditMiddleware{
		auditService: auditService,
		config:       config,
		sensitive:    sensitive,
		logger:       logger,
	}
}

// Audit must be mounted after authentication so the actor is on the context.
// The entry is written before the response returns to the caller.
func (m *AuditMiddleware) Audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := methodToAction(r.Method)
		if action == "" || !m.shouldAudit(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		var requestBody []byte
		if r.Body != nil && action != domain.AuditActionDelete {
			requestBody, _ = io.ReadAll(r.Body)
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		rw := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < 200 || rw.statusCode >= 300 {
			return
		}
		m.logAudit(r, action, rw.statusCode, requestBody)
	})
}

func (m *AuditMiddleware) shouldAudit(path string) bool {
	if !strings.HasPrefix(path, m.config.PathPrefix) {
		return false
	}
	for _, skip := range m.config.SkipPaths {
		if strings.HasPrefix(path, skip) {
			return false
		}
	}
	return true
}

func (m *AuditMiddleware) logAudit(r *http.Request, action domain.AuditAction, statusCode int, requestBody []byte) {
	if m.auditService == nil {
		return
	}

	entityType, entityID := extractEntityInfo(r)

	var values interface{}
	if len(requestBody) > 0 {
		var parsed interface{}
		if json.Unmarshal(requestBody, &parsed) == nil {
			values = m.sanitize(parsed)
		}
	}

	entry := service.LogEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		StatusCode: statusCode,
		NewValues:  values,
		Path:       r.URL.Path,
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
		RequestID:  r.Header.Get(RequestIDHeader),
	}

	ctx := context.WithoutCancel(r.Context())
	if err := m.auditService.Record(ctx, entry); err != nil {
		m.logger.Warn("failed to create audit log entry",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Error(err))
	}
}

// sanitize drops sensitive keys from decoded JSON objects, recursing into
// nested objects and arrays
func (m *AuditMiddleware) sanitize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if m.sensitive[strings.ToLower(k)] {
				delete(val, k)
				continue
			}
			val[k] = m.sanitize(inner)
		}
		return val
	case []interface{}:
		for i := range val {
			val[i] = m.sanitize(val[i])
		}
		return val
	default:
		return v
	}
}

func methodToAction(method string) domain.AuditAction {
	switch method {
	case http.MethodPost:
		return domain.AuditActionCreate
	case http.MethodPut, http.MethodPatch:
		return domain.AuditActionUpdate
	case http.MethodDelete:
		return domain.AuditActionDelete
	default:
		return ""
	}
}

// entityMap maps path segments to audit entity types. The last matching
// segment wins so nested resources are attributed to the child.
var entityMap = map[string]string{
	"users":           "user",
	"expenses":        "expense",
	"tasks":           "task",
	"clients":         "client",
	"contacts":        "contact",
	"quotations":      "quotation",
	"service-history": "service_history",
	"technical-docs":  "technical_doc",
	"notifications":   "notification",
}

// entityParams lists, per entity type, the route parameter holding its id
var entityParams = map[string]string{
	"contact":       "contactId",
	"quotation":     "quotationId",
	"technical_doc": "docId",
}

func extractEntityInfo(r *http.Request) (string, *uuid.UUID) {
	path := r.URL.Path
	routeCtx := chi.RouteContext(r.Context())
	if routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			path = pattern
		}
	}

	entityType := parseEntityFromPath(path)
	if routeCtx == nil {
		return entityType, nil
	}

	param := "id"
	if p, ok := entityParams[entityType]; ok {
		param = p
	}
	if idStr := routeCtx.URLParam(param); idStr != "" {
		if id, err := uuid.Parse(idStr); err == nil {
			return entityType, &id
		}
	}
	return entityType, nil
}

func parseEntityFromPath(path string) string {
	entityType := "unknown"
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if t, ok := entityMap[part]; ok {
			entityType = t
		}
	}
	return entityType
}

// responseCapture wraps ResponseWriter to capture the status code
type responseCapture struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseCapture) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseCapture) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
