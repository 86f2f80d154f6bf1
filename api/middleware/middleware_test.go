package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/greengate/pkg/auth"
	"github.com/angelmondragon/greengate/pkg/config"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/logger"
	"github.com/angelmondragon/greengate/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret: "secret",
		Issuer:    "https://identity.example/auth/v1",
		Audience:  "authenticated",
	}
}

func mintToken(t *testing.T, cfg config.AuthConfig, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.MintIdentityToken(cfg, time.Now().UTC(), auth.Principal{UserID: userID, Email: "patient@example.com"}, time.Hour)
	require.NoError(t, err)
	return token
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) types.Envelope {
	t.Helper()
	var env types.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := PrincipalFromContext(r.Context()); p != nil {
			_, _ = w.Write([]byte(p.UserID.String()))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	})
}

func TestOptionalAuth(t *testing.T) {
	cfg := testAuthConfig()
	handler := OptionalAuth(cfg, testLogger())(principalEcho())
	userID := uuid.New()

	t.Run("anonymous passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "anonymous", rec.Body.String())
	})

	t.Run("valid token resolves principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, userID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID.String(), rec.Body.String())
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		other := cfg
		other.JWTSecret = "other"
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+mintToken(t, other, userID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, string(pkgerrors.CodeUnauthorized), env.Error.Code)
	})
}

func TestAuthRequiresToken(t *testing.T) {
	handler := Auth(testAuthConfig(), testLogger())(principalEcho())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "", bearerToken(""))
}

type fakeRoles struct {
	admins map[uuid.UUID]bool
	err    error
}

func (f fakeRoles) IsAdmin(_ context.Context, userID uuid.UUID) (bool, error) {
	return f.admins[userID], f.err
}

func TestRequireAdmin(t *testing.T) {
	admin := uuid.New()
	patient := uuid.New()
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		name      string
		principal *auth.Principal
		roles     fakeRoles
		status    int
	}{
		{name: "anonymous", status: http.StatusUnauthorized},
		{name: "admin", principal: &auth.Principal{UserID: admin}, roles: fakeRoles{admins: map[uuid.UUID]bool{admin: true}}, status: http.StatusNoContent},
		{name: "patient", principal: &auth.Principal{UserID: patient}, roles: fakeRoles{admins: map[uuid.UUID]bool{admin: true}}, status: http.StatusForbidden},
		{name: "lookup failure", principal: &auth.Principal{UserID: admin}, roles: fakeRoles{err: errors.New("db down")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), tc.principal))
			}
			rec := httptest.NewRecorder()
			RequireAdmin(tc.roles, testLogger())(ok).ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memoryCounter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if m.err != nil {
		return false, 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

func TestPublicRateLimit(t *testing.T) {
	policy := NewRateLimitPolicy("Proxy", time.Minute, 2)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("blocks anonymous callers over the limit", func(t *testing.T) {
		store := &memoryCounter{}
		handler := PublicRateLimit(policy, store, testLogger())(ok)
		var codes []int
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = "203.0.113.9:5555"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
			if rec.Code == http.StatusTooManyRequests {
				assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			}
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
		assert.Contains(t, store.counts, "ip:proxy:203.0.113.9")
	})

	t.Run("authenticated callers bypass", func(t *testing.T) {
		store := &memoryCounter{}
		handler := PublicRateLimit(policy, store, testLogger())(ok)
		for i := 0; i < 5; i++ {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req = req.WithContext(WithPrincipal(req.Context(), &auth.Principal{UserID: uuid.New()}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
		assert.Empty(t, store.counts)
	})

	t.Run("store failure allows the request", func(t *testing.T) {
		handler := PublicRateLimit(policy, &memoryCounter{err: errors.New("redis down")}, testLogger())(ok)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", " 198.51.100.1, 10.0.0.1")
	assert.Equal(t, "198.51.100.1", clientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.4:1234"
	assert.Equal(t, "192.0.2.4", clientIP(req))
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	handler := Recoverer(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(pkgerrors.CodeInternal), env.Error.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestRequestIDEchoesOrGenerates(t *testing.T) {
	handler := RequestID(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "bad id\nforged=1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "bad id\nforged=1", rec.Header().Get(requestIDHeader))
	_, err = uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)
}
