package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret"

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestRequestID_GeneratesNew(t *testing.T) {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)

	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	headerID := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, headerID)
	assert.Equal(t, headerID, w.Body.String())
}

func TestRequestID_UsesExisting(t *testing.T) {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)

	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "existing-request-id-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, "existing-request-id-123", w.Body.String())
}

func TestJWTAuth(t *testing.T) {
	cfg := &AuthConfig{Secret: testSecret, Issuer: "parking-service"}

	valid := signToken(t, &Claims{
		UserID: "user-1",
		Roles:  []string{"REGISTER"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "parking-service",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	expired := signToken(t, &Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "parking-service",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongIssuer := signToken(t, &Claims{
		UserID:           "user-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	})

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedBody   string
	}{
		{name: "valid token", header: "Bearer " + valid, expectedStatus: http.StatusOK, expectedBody: "user-1"},
		{name: "missing header", header: "", expectedStatus: http.StatusUnauthorized, expectedBody: "UNAUTHORIZED"},
		{name: "not bearer", header: "Basic abc", expectedStatus: http.StatusUnauthorized, expectedBody: "UNAUTHORIZED"},
		{name: "expired token", header: "Bearer " + expired, expectedStatus: http.StatusUnauthorized, expectedBody: "TOKEN_EXPIRED"},
		{name: "wrong issuer", header: "Bearer " + wrongIssuer, expectedStatus: http.StatusUnauthorized, expectedBody: "INVALID_TOKEN"},
		{name: "garbage", header: "Bearer not-a-token", expectedStatus: http.StatusUnauthorized, expectedBody: "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			_, r := gin.CreateTestContext(w)
			r.Use(JWTAuth(cfg))
			r.GET("/test", func(c *gin.Context) {
				id, _ := GetUserID(c)
				c.String(http.StatusOK, id)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}

func TestJWTAuth_Disabled(t *testing.T) {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(JWTAuth(&AuthConfig{Disabled: true}), RequireRole("AUDIT"))
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, strings.Join(GetRoles(c), ","))
	})

	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, RoleAdmin, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name           string
		roles          []string
		expectedStatus int
	}{
		{name: "matching role", roles: []string{"REGISTER"}, expectedStatus: http.StatusOK},
		{name: "case insensitive", roles: []string{"register"}, expectedStatus: http.StatusOK},
		{name: "admin passes", roles: []string{RoleAdmin}, expectedStatus: http.StatusOK},
		{name: "other role", roles: []string{"FARE"}, expectedStatus: http.StatusForbidden},
		{name: "no roles", roles: nil, expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			_, r := gin.CreateTestContext(w)
			r.Use(func(c *gin.Context) {
				if tt.roles != nil {
					c.Set(ContextKeyRoles, tt.roles)
				}
				c.Next()
			}, RequireRole("REGISTER"))
			r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "FORBIDDEN")
			}
		})
	}
}

// fakeRedis is an in-memory stand-in for the idempotency store
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStringCmd(ctx, "get", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	v, ok := f.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	cmd := redis.NewStatusCmd(ctx, "set", key)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewBoolCmd(ctx, "setnx", key)
	if _, ok := f.data[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.data[key] = value.(string)
	cmd.SetVal(true)
	return cmd
}

func TestIdempotencyMiddleware_ReplaysCompletedResponse(t *testing.T) {
	store := newFakeRedis()
	calls := 0

	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(IdempotencyMiddleware(DefaultIdempotencyConfig(store)))
	r.POST("/sessions/entry", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"call": calls})
	})

	send := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sessions/entry", strings.NewReader(body))
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		r.ServeHTTP(rec, req)
		return rec
	}

	first := send(`{"plate":"ABC123"}`)
	second := send(`{"plate":"ABC123"}`)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	reused := send(`{"plate":"XYZ999"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, reused.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyMiddleware_InProgress(t *testing.T) {
	store := newFakeRedis()
	cfg := DefaultIdempotencyConfig(store)

	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(IdempotencyMiddleware(cfg))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Simulate another replica holding the key
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(IdempotencyKeyHeader, "busy")
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	rec := &IdempotencyRecord{Key: "busy", Status: StatusProcessing, RequestHash: generateRequestHash(c, nil)}
	require.True(t, trySetIdempotencyRecord(context.Background(), store, IdempotencyKeyPrefix+"busy", rec, time.Minute))

	resp := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(IdempotencyKeyHeader, "busy")
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestIdempotencyMiddleware_OptionalAndFailOpen(t *testing.T) {
	store := newFakeRedis()
	calls := 0

	_, r := gin.CreateTestContext(httptest.NewRecorder())
	r.Use(IdempotencyMiddleware(DefaultIdempotencyConfig(store)))
	r.POST("/x", func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
	})

	// No key: passes through
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	// Redis failing: passes through
	store.err = assert.AnError
	resp = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(IdempotencyKeyHeader, "k")
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyMiddleware_RequiredKey(t *testing.T) {
	cfg := DefaultIdempotencyConfig(newFakeRedis())
	cfg.Optional = false

	_, r := gin.CreateTestContext(httptest.NewRecorder())
	r.Use(IdempotencyMiddleware(cfg))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}
