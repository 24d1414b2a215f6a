//go:build !integration

package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/domain/model"
)

const testSecret = "test-admin-jwt-secret-please-change"

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func TestAuthMiddleware(t *testing.T) {
	dummyHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	logger := newTestLogger()
	auth := NewAuthManager(testSecret, false, "", time.Minute)
	server := NewServer(nil, nil, "test-admin-key", auth, logger)
	protected := server.authMiddleware(dummyHandler)

	valid, err := auth.Mint(httptest.NewRecorder())
	if err != nil || valid == "" {
		t.Fatalf("failed to mint test token: %v", err)
	}
	otherKey, err := NewAuthManager("some-other-secret", false, "", time.Minute).Mint(httptest.NewRecorder())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, AdminClaims{Role: "promo_admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("mint none: %v", err)
	}

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"no scheme", "whatever-token", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic aaa.bbb.ccc", "", http.StatusUnauthorized},
		{"invalid jwt", "Bearer invalid.jwt.token", "", http.StatusUnauthorized},
		{"foreign secret", "Bearer " + otherKey, "", http.StatusUnauthorized},
		{"alg none", "Bearer " + noneAlg, "", http.StatusUnauthorized},
		{"raw api key is not a token", "Bearer test-admin-key", "", http.StatusUnauthorized},
		{"valid bearer", "Bearer " + valid, "", http.StatusOK},
		{"valid cookie", "", valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: sessionCookie, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}

	t.Run("no auth manager configured", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewServer(nil, nil, "test-admin-key", nil, logger).authMiddleware(dummyHandler).
			ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})
}

func TestAdminLoginLogoutFlow(t *testing.T) {
	auth := NewAuthManager(testSecret, false, "", time.Minute)
	h := NewServer(newMockAdminUC(), mockStatsUC{}, "test-admin-key", auth, newTestLogger()).Router()

	login := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", bytes.NewBufferString(`{"key":"`+key+`"}`))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusUnauthorized, login("wrong").Code)

	rr := login("test-admin-key")
	require.Equal(t, http.StatusNoContent, rr.Code)
	var session *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	req.AddCookie(session)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"codes_by_state":{"active":2,"expired":1},"remaining_uses":150,"active_trials":4,"taken_at":"2026-03-01T00:00:00Z"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/logout", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.NotEmpty(t, rr.Result().Cookies())
	assert.Equal(t, -1, rr.Result().Cookies()[0].MaxAge)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogin_DisabledWithoutAPIKey(t *testing.T) {
	auth := NewAuthManager(testSecret, false, "", time.Minute)
	h := NewServer(newMockAdminUC(), mockStatsUC{}, "", auth, newTestLogger()).Router()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", bytes.NewBufferString(`{"key":""}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_TraceIDOnEveryResponse(t *testing.T) {
	auth := NewAuthManager(testSecret, false, "", time.Minute)
	h := NewServer(newMockAdminUC(), mockStatsUC{}, "k", auth, newTestLogger()).Router()

	for _, path := range []string{"/api/v1/admin/stats", "/api/v1/admin/nope", "/elsewhere"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.NotEmpty(t, rr.Header().Get("X-Trace-ID"), path)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	req.Header.Set("X-Trace-ID", "ops-77")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "ops-77", rr.Header().Get("X-Trace-ID"))
}

type adminClient struct {
	t     *testing.T
	h     http.Handler
	token string
}

func newAdminClient(t *testing.T, uc *mockAdminUC) *adminClient {
	auth := NewAuthManager(testSecret, false, "", time.Minute)
	tok, err := auth.Mint(httptest.NewRecorder())
	require.NoError(t, err)
	return &adminClient{t: t, h: NewServer(uc, mockStatsUC{}, "k", auth, newTestLogger()).Router(), token: tok}
}

func (c *adminClient) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+c.token)
	rr := httptest.NewRecorder()
	c.h.ServeHTTP(rr, req)
	return rr
}

func TestPromoCodeLifecycle(t *testing.T) {
	c := newAdminClient(t, newMockAdminUC())

	rr := c.do(http.MethodPost, "/api/v1/admin/promo-codes",
		`{"code":"welcome7","free_days":7,"max_uses":100,"level":"Beginner","description":"First week"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created promoCodeDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "WELCOME7", created.Code)
	assert.Equal(t, "active", created.State)
	assert.Equal(t, 100, created.RemainingUses)
	assert.Equal(t, "Access to Beginner level", created.AccessDescription)

	assert.Equal(t, http.StatusConflict,
		c.do(http.MethodPost, "/api/v1/admin/promo-codes", `{"code":"WELCOME7","free_days":7,"max_uses":1}`).Code)

	for _, bad := range []string{
		`{"code":"","free_days":7,"max_uses":1}`,
		`{"code":"X","free_days":0,"max_uses":1}`,
		`{"code":"X","free_days":7,"max_uses":0}`,
		`{"code":"X","free_days":7`,
	} {
		assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/v1/admin/promo-codes", bad).Code, bad)
	}

	rr = c.do(http.MethodPost, "/api/v1/admin/promo-codes/welcome7/deactivate", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var off promoCodeDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &off))
	assert.False(t, off.Active)
	assert.Equal(t, "inactive", off.State)

	rr = c.do(http.MethodGet, "/api/v1/admin/promo-codes/WELCOME7", "")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/v1/admin/promo-codes/NOPE", "").Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/api/v1/admin/promo-codes/NOPE/activate", "").Code)

	rr = c.do(http.MethodGet, "/api/v1/admin/promo-codes?limit=10", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Data []promoCodeDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list.Data, 1)
}

func TestListRedemptionsAndErrors(t *testing.T) {
	uc := newMockAdminUC()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	uc.redemptions["WELCOME7"] = []*model.Redemption{{
		ID: "01J0000000000000000000000A", UserID: "u1", Code: "WELCOME7", FreeDays: 7,
		TrialExpiresAt: at.Add(7 * 24 * time.Hour), RedeemedAt: at,
	}}
	c := newAdminClient(t, uc)

	rr := c.do(http.MethodGet, "/api/v1/admin/promo-codes/welcome7/redemptions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"user_id":"u1"`)
	assert.Contains(t, rr.Body.String(), `"trial_expires_at":"2026-03-08T12:00:00Z"`)

	uc.ListErr = errors.New("db down")
	rr = c.do(http.MethodGet, "/api/v1/admin/promo-codes", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db down")

	assert.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/admin/users", `{"id":"u9","email":"u9@example.com"}`).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/v1/admin/users", `{"id":"u9","email":"nope"}`).Code)
}
