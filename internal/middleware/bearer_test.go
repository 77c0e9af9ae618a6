package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kindnesshome/backend/internal/token"
)

// --- モック定義 ---

type mockVerifier struct {
	verifyFn func(tokenString string, now time.Time) (string, error)
}

func (m *mockVerifier) Verify(tokenString string, now time.Time) (string, error) {
	if m.verifyFn != nil {
		return m.verifyFn(tokenString, now)
	}
	return "", errors.New("not configured")
}

var _ TokenVerifier = (*mockVerifier)(nil)

// --- テスト ---

// Authorizationヘッダーなしのリクエストは保護対象を実行せず401になること
func TestBearerAuth_MissingHeader_Returns401WithoutCallingNext(t *testing.T) {
	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	})

	verifier := &mockVerifier{
		verifyFn: func(tokenString string, now time.Time) (string, error) {
			t.Error("verifier should not be called without a header")
			return "", nil
		},
	}

	mw := NewBearerAuthMiddleware(verifier)
	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if nextCalled {
		t.Error("next handler should not be called")
	}
}

func TestBearerAuth_NonBearerScheme_Returns401(t *testing.T) {
	mw := NewBearerAuthMiddleware(&mockVerifier{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestBearerAuth_InvalidToken_Returns401(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(tokenString string, now time.Time) (string, error) {
			return "", token.ErrInvalidSignature
		},
	}
	mw := NewBearerAuthMiddleware(verifier)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	req.Header.Set("Authorization", "Bearer forged-token")
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// 有効なトークンはsubjectをコンテキストに注入して保護対象へ進むこと
func TestBearerAuth_ValidToken_InjectsUserID(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(tokenString string, now time.Time) (string, error) {
			if tokenString != "valid-token" {
				t.Errorf("tokenString = %q, want %q", tokenString, "valid-token")
			}
			return "user-id-123", nil
		},
	}

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("UserIDFromContext failed: %v", err)
		}
		gotUserID = id
		w.WriteHeader(http.StatusOK)
	})

	mw := NewBearerAuthMiddleware(verifier)
	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotUserID != "user-id-123" {
		t.Errorf("userID = %q, want %q", gotUserID, "user-id-123")
	}
}

// 実際のCodecと組み合わせた期限切れトークンの検証
func TestBearerAuth_ExpiredToken_Returns401(t *testing.T) {
	codec, err := token.NewCodec([]byte("test-signing-secret-32bytes-long"), time.Minute)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	// 過去に発行され既に失効しているトークン
	tok, err := codec.Issue("user-id-123", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	mw := NewBearerAuthMiddleware(codec)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestUserIDFromContext_WithoutValue_ReturnsError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := UserIDFromContext(req.Context()); err == nil {
		t.Error("expected error for context without user ID")
	}
}
