package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
	"github.com/aryan0dhankhar/companyhub/internal/security/audit"
	"github.com/aryan0dhankhar/companyhub/internal/security/ratelimit"
)

type stubAuthenticator struct {
	users map[string]*domain.User
	err   error
}

func (s *stubAuthenticator) ResolveCurrentUser(_ context.Context, token string) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, domain.ErrUnauthorized
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func whoami() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := UserFromContext(r.Context()); ok {
			io.WriteString(w, user.ID)
			return
		}
		io.WriteString(w, "anonymous")
	})
}

func newAuthn() *stubAuthenticator {
	return &stubAuthenticator{users: map[string]*domain.User{"good": {ID: "user-1"}}}
}

func TestRequireUser(t *testing.T) {
	h := RequireUser(newAuthn(), audit.NewLogger(discard()), discard())(whoami())

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "user-1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "could not validate credentials", body["error"])
				return
			}
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestRequireUser_StorageFailure(t *testing.T) {
	authn := &stubAuthenticator{err: fmt.Errorf("%w: ping", domain.ErrStorageUnavailable)}
	h := RequireUser(authn, audit.NewLogger(discard()), discard())(whoami())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOptionalUser(t *testing.T) {
	h := OptionalUser(newAuthn(), discard())(whoami())

	for header, want := range map[string]string{
		"Bearer good": "user-1",
		"Bearer bad":  "anonymous",
		"":            "anonymous",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, rec.Body.String(), "header %q", header)
	}
}

func TestLoginRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(2, time.Minute)
	defer limiter.Stop()
	h := LoginRateLimit(limiter, discard())(whoami())

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:5001").Code)
	limited := send("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:5000").Code)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = audit.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "given")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "given", seen)
}

func TestAudit_LogsMutations(t *testing.T) {
	var buf bytes.Buffer
	auditLog := audit.NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	mux := http.NewServeMux()
	mux.Handle("DELETE /companies/{id}", Audit(auditLog, "company")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))
	mux.Handle("GET /companies/{id}", Audit(auditLog, "company")(whoami()))

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/companies/c-1", nil))
	assert.Zero(t, buf.Len(), "reads are not audited")

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/companies/c-1", nil))
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "delete", rec["action"])
	assert.Equal(t, "company", rec["resource"])
	assert.Equal(t, "c-1", rec["resource_id"])
	assert.Equal(t, "failure", rec["status"])
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:3000"})(whoami())

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestValidateContentType(t *testing.T) {
	h := ValidateContentType(discard(), "application/json", "application/x-www-form-urlencoded")(whoami())

	cases := map[string]int{
		"application/json":                  http.StatusOK,
		"application/json; charset=utf-8":   http.StatusOK,
		"application/x-www-form-urlencoded": http.StatusOK,
		"text/plain":                        http.StatusUnsupportedMediaType,
		"":                                  http.StatusUnsupportedMediaType,
	}
	for contentType, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "content type %q", contentType)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(whoami(), mark("outer"), mark("inner")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, order)
}
