package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kindnesshome/backend/internal/auth"
	"github.com/kindnesshome/backend/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	beginLoginFn     func() (string, error)
	handleCallbackFn func(ctx context.Context, state, code string, now time.Time) (*auth.LoginResult, error)
}

func (m *mockAuthService) BeginLogin() (string, error) {
	if m.beginLoginFn != nil {
		return m.beginLoginFn()
	}
	return "", nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, state, code string, now time.Time) (*auth.LoginResult, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, state, code, now)
	}
	return nil, nil
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

type mockLoginMetrics struct {
	successCount   int
	failureReasons []string
}

func (m *mockLoginMetrics) RecordLoginSuccess() { m.successCount++ }

func (m *mockLoginMetrics) RecordLoginFailure(reason string) {
	m.failureReasons = append(m.failureReasons, reason)
}

var _ LoginMetricsRecorder = (*mockLoginMetrics)(nil)

// decodeErrorBody はエラーレスポンスのJSONボディをデコードするヘルパー。
func decodeErrorBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// --- テスト ---

func TestAuthHandler_Login_RedirectsToOAuthURL(t *testing.T) {
	svc := &mockAuthService{
		beginLoginFn: func() (string, error) {
			return "https://accounts.google.com/o/oauth2/v2/auth?state=abc123", nil
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/oauth/google/login", nil)
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}

	location := resp.Header.Get("Location")
	if !strings.Contains(location, "accounts.google.com") {
		t.Errorf("Location = %q, should contain google oauth URL", location)
	}
	if !strings.Contains(location, "state=abc123") {
		t.Errorf("Location = %q, should contain state parameter", location)
	}
}

func TestAuthHandler_Login_ServiceError_ReturnsInternalError(t *testing.T) {
	svc := &mockAuthService{
		beginLoginFn: func() (string, error) {
			return "", errors.New("entropy exhausted")
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/oauth/google/login", nil)
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
}

func TestAuthHandler_Callback_Success_ReturnsUserAndToken(t *testing.T) {
	metrics := &mockLoginMetrics{}
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, state, code string, now time.Time) (*auth.LoginResult, error) {
			if state != "valid-state" {
				t.Errorf("state = %q, want %q", state, "valid-state")
			}
			if code != "auth-code" {
				t.Errorf("code = %q, want %q", code, "auth-code")
			}
			return &auth.LoginResult{
				User: &model.User{
					ID:    "user-id-123",
					Email: "taro@example.com",
					Name:  "Taro",
				},
				Token: "signed-token",
			}, nil
		},
	}
	h := NewAuthHandler(svc, metrics)

	req := httptest.NewRequest(http.MethodGet, "/api/oauth/google/callback?state=valid-state&code=auth-code", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.User.ID != "user-id-123" {
		t.Errorf("user.id = %q, want %q", body.User.ID, "user-id-123")
	}
	if body.User.Email != "taro@example.com" {
		t.Errorf("user.email = %q, want %q", body.User.Email, "taro@example.com")
	}
	if body.Token != "signed-token" {
		t.Errorf("token = %q, want %q", body.Token, "signed-token")
	}

	if metrics.successCount != 1 {
		t.Errorf("login success count = %d, want 1", metrics.successCount)
	}
}

func TestAuthHandler_Callback_MissingState_ReturnsInvalidState(t *testing.T) {
	called := false
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, state, code string, now time.Time) (*auth.LoginResult, error) {
			called = true
			return nil, nil
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/oauth/google/callback?code=auth-code", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	body := decodeErrorBody(t, resp)
	if body["code"] != model.ErrCodeInvalidState {
		t.Errorf("error code = %q, want %q", body["code"], model.ErrCodeInvalidState)
	}
	if called {
		t.Error("service should not be called when state is missing")
	}
}

func TestAuthHandler_Callback_MissingCode_ReturnsInvalidState(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/oauth/google/callback?state=some-state", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	body := decodeErrorBody(t, resp)
	if body["code"] != model.ErrCodeInvalidState {
		t.Errorf("error code = %q, want %q", body["code"], model.ErrCodeInvalidState)
	}
}

func TestAuthHandler_Callback_InvalidState_ReturnsBadRequest(t *testing.T) {
	metrics := &mockLoginMetrics{}
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, state, code string, now time.Time) (*auth.LoginResult, error) {
			return nil, auth.ErrInvalidState
		},
	}
	h := NewAuthHandler(svc, metrics)

	req := httptest.NewRequest(http.MethodGet, "/api/oauth/google/callback?state=replayed&code=auth-code", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	body := decodeErrorBody(t, resp)
	if body["code"] != model.ErrCodeInvalidState {
		t.Errorf("error code = %q, want %q", body["code"], model.ErrCodeInvalidState)
	}

	if len(metrics.failureReasons) != 1 || metrics.failureReasons[0] != "invalid_state" {
		t.Errorf("failure reasons = %v, want [invalid_state]", metrics.failureReasons)
	}
}

func TestAuthHandler_Callback_ExchangeFailure_ReturnsUnauthorized(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, state, code string, now time.Time) (*auth.LoginResult, error) {
			return nil, auth.ErrProviderExchange
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/oauth/google/callback?state=valid&code=bad-code", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	body := decodeErrorBody(t, resp)
	if body["code"] != model.ErrCodeProviderExchangeFailed {
		t.Errorf("error code = %q, want %q", body["code"], model.ErrCodeProviderExchangeFailed)
	}
}

func TestAuthHandler_Callback_UnknownError_ReturnsInternalError(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, state, code string, now time.Time) (*auth.LoginResult, error) {
			return nil, errors.New("database connection lost")
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/oauth/google/callback?state=valid&code=auth-code", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, resp)
	if body["code"] != model.ErrCodeInternalError {
		t.Errorf("error code = %q, want %q", body["code"], model.ErrCodeInternalError)
	}
}
