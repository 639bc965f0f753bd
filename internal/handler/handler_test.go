package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regkit/regkit/internal/app"
	"github.com/regkit/regkit/internal/config"
	"github.com/regkit/regkit/internal/routes"
	"github.com/regkit/regkit/internal/token"
)

const testSecret = "handler-test-secret"

type testServer struct {
	handler http.Handler
	codec   *token.Codec
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppName:                "regkit",
		AppEnv:                 "development",
		AppURL:                 "http://localhost:8090",
		Port:                   "8090",
		DBDriver:               "sqlite",
		DBConnection:           filepath.Join(t.TempDir(), "test.db"),
		JWTSecret:              testSecret,
		JWTAlgorithm:           "HS256",
		AccessTokenExpiry:      30 * time.Minute,
		EmailTokenExpiry:       time.Minute,
		VerificationCodeLength: 4,
		EmailFrom:              "noreply@example.com",
	}

	application, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { application.Close() })

	codec, err := token.New(testSecret, "HS256")
	require.NoError(t, err)

	return &testServer{
		handler: routes.SetupRoutes(application),
		codec:   codec,
	}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postJSON(t *testing.T, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req)
}

// register signs a user up and pulls the verification code out of the issued
// token, standing in for reading the mail.
func (s *testServer) register(t *testing.T, email, password string) (userID, verifyToken, code string) {
	t.Helper()

	rec := s.postJSON(t, "/api/v1/users/register", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID          string `json:"id"`
		VerifyToken string `json:"verify_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	claims, err := s.codec.Decode(resp.VerifyToken)
	require.NoError(t, err)

	return resp.ID, resp.VerifyToken, claims.Code
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()

	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := s.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "bearer", resp.TokenType)

	return resp.AccessToken
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, srv.do(t, req).Code)
}

func TestRegisterEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.postJSON(t, "/api/v1/users/register", `{"email":"alice@example.com","password":"s3cretpass"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		IsActive    bool   `json:"is_active"`
		IsVerified  bool   `json:"is_verified"`
		VerifyToken string `json:"verify_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "alice@example.com", resp.Email)
	assert.True(t, resp.IsActive)
	assert.False(t, resp.IsVerified)
	assert.NotEmpty(t, resp.VerifyToken)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterEndpointValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid email", `{"email":"not-an-email","password":"s3cretpass"}`},
		{"short password", `{"email":"alice@example.com","password":"short"}`},
		{"missing fields", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.postJSON(t, "/api/v1/users/register", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		rec := srv.postJSON(t, "/api/v1/users/register", `{"email":"alice@example.com","password":"s3cretpass","role":"admin"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRegisterEndpointConflict(t *testing.T) {
	srv := newTestServer(t)

	srv.register(t, "alice@example.com", "s3cretpass")

	rec := srv.postJSON(t, "/api/v1/users/register", `{"email":"alice@example.com","password":"s3cretpass"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyEndpoint(t *testing.T) {
	srv := newTestServer(t)

	_, verifyToken, code := srv.register(t, "alice@example.com", "s3cretpass")

	rec := srv.postJSON(t, "/api/v1/users/verify/"+verifyToken, `{"code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		IsVerified bool   `json:"is_verified"`
		Detail     string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsVerified)
	assert.Equal(t, "code successfully verified", resp.Detail)
}

func TestVerifyEndpointWrongCode(t *testing.T) {
	srv := newTestServer(t)

	_, verifyToken, code := srv.register(t, "alice@example.com", "s3cretpass")

	wrong := "AAAA"
	if wrong == code {
		wrong = "BBBB"
	}
	rec := srv.postJSON(t, "/api/v1/users/verify/"+verifyToken, `{"code":"`+wrong+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "wrong verification code")
}

func TestVerifyEndpointBadToken(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.postJSON(t, "/api/v1/users/verify/garbage", `{"code":"AAAA"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired verification token")
}

func TestTokenEndpoint(t *testing.T) {
	srv := newTestServer(t)

	_, verifyToken, code := srv.register(t, "alice@example.com", "s3cretpass")
	rec := srv.postJSON(t, "/api/v1/users/verify/"+verifyToken, `{"code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	form := url.Values{"username": {"alice@example.com"}, "password": {"s3cretpass"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = srv.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Token is also set as an httponly cookie with the Bearer prefix.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "access_token", cookies[0].Name)
	assert.True(t, strings.HasPrefix(cookies[0].Value, "Bearer "))
	assert.True(t, cookies[0].HttpOnly)
}

func TestTokenEndpointBadCredentials(t *testing.T) {
	srv := newTestServer(t)

	srv.register(t, "alice@example.com", "s3cretpass")

	form := url.Values{"username": {"alice@example.com"}, "password": {"wrongpass1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := srv.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "incorrect email or password")
}

func TestMeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	srv.register(t, "alice@example.com", "s3cretpass")
	accessToken := srv.login(t, "alice@example.com", "s3cretpass")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := srv.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "alice@example.com")

	// Cookie carries the same "Bearer <token>" value the login set.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "Bearer " + accessToken})
	assert.Equal(t, http.StatusOK, srv.do(t, req).Code)

	// No credentials at all.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec = srv.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	// A verification token is not a login token.
	_, verifyToken, _ := srv.register(t, "bob@example.com", "s3cretpass")
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+verifyToken)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, req).Code)
}

func TestUserCRUDEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// Empty list is a 404.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	assert.Equal(t, http.StatusNotFound, srv.do(t, req).Code)

	userID, verifyToken, code := srv.register(t, "alice@example.com", "s3cretpass")
	rec := srv.postJSON(t, "/api/v1/users/verify/"+verifyToken, `{"code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	rec = srv.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/"+userID, nil)
	rec = srv.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, srv.do(t, req).Code)

	// Update password, then log in with the new one.
	req = httptest.NewRequest(http.MethodPut, "/api/v1/users/"+userID, strings.NewReader(`{"password":"newpassword1"}`))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusOK, srv.do(t, req).Code)
	accessToken := srv.login(t, "alice@example.com", "newpassword1")

	// Delete requires a verified caller.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+userID, nil)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, req).Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+userID, nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec = srv.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/"+userID, nil)
	assert.Equal(t, http.StatusNotFound, srv.do(t, req).Code)
}

func TestUpdateEndpointValidation(t *testing.T) {
	srv := newTestServer(t)

	userID, _, _ := srv.register(t, "alice@example.com", "s3cretpass")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/"+userID, strings.NewReader(`{"password":"short"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, srv.do(t, req).Code)
}

func TestDeleteRequiresVerifiedUser(t *testing.T) {
	srv := newTestServer(t)

	userID, _, _ := srv.register(t, "alice@example.com", "s3cretpass")
	accessToken := srv.login(t, "alice@example.com", "s3cretpass")

	// Logged in but not verified.
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+userID, nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := srv.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "only verified users")
}

func TestLogoutClearsCookie(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := srv.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "access_token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].Expires.Before(time.Now()))
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{"username": {"alice@example.com"}, "password": {"s3cretpass"}}
	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		last = srv.do(t, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)

	// Other IPs are unaffected.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-For", "203.0.113.10")
	assert.NotEqual(t, http.StatusTooManyRequests, srv.do(t, req).Code)
}
