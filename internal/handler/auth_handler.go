// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/kindnesshome/backend/internal/auth"
	"github.com/kindnesshome/backend/internal/middleware"
	"github.com/kindnesshome/backend/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// BeginLogin はstateを発行し、Google認証URLを返す。
	BeginLogin() (string, error)
	// HandleCallback はstate検証・コード交換・ユーザーupsert・トークン発行を行う。
	HandleCallback(ctx context.Context, state, code string, now time.Time) (*auth.LoginResult, error)
}

// LoginMetricsRecorder はログイン結果のメトリクス記録インターフェース。
// 認可コード交換のレイテンシは認証サービス側で計測する。
type LoginMetricsRecorder interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics LoginMetricsRecorder
	now     func() time.Time
}

// NewAuthHandler はAuthHandlerを生成する。
// metricsはnilを許容する（テスト用）。
func NewAuthHandler(service AuthServiceInterface, metrics LoginMetricsRecorder) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: metrics,
		now:     time.Now,
	}
}

// userResponse はログインレスポンス内のユーザー表現。
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// loginResponse はコールバック成功時のレスポンスボディ。
type loginResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

// Login はGoogle OAuthフローを開始する。
// GET /api/oauth/google/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.BeginLogin()
	if err != nil {
		slog.Error("failed to begin oauth login", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// Callback はOAuthコールバックを処理する。
// GET /api/oauth/google/callback?state=xxx&code=yyy
//
// state検証の失敗（欠落・未知・期限切れ・再利用）とcode欠落は400、
// プロバイダーとの交換失敗は401を返す。プロバイダー側のエラー詳細は
// ログのみに記録し、レスポンスには含めない。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	if state == "" || code == "" {
		slog.Warn("oauth callback missing parameters",
			slog.Bool("has_state", state != ""),
			slog.Bool("has_code", code != ""),
		)
		h.recordLoginFailure("invalid_state")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidStateError())
		return
	}

	result, err := h.service.HandleCallback(r.Context(), state, code, h.now())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidState):
			slog.Warn("oauth state validation failed", slog.String("error", err.Error()))
			h.recordLoginFailure("invalid_state")
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidStateError())
		case errors.Is(err, auth.ErrProviderExchange):
			slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
			h.recordLoginFailure("provider_exchange")
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewProviderExchangeFailedError())
		default:
			slog.Error("oauth callback failed", slog.String("error", err.Error()))
			h.recordLoginFailure("internal")
			middleware.WriteInternalServerError(w)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLoginSuccess()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		User: userResponse{
			ID:    result.User.ID,
			Email: result.User.Email,
			Name:  result.User.Name,
		},
		Token: result.Token,
	})
}

func (h *AuthHandler) recordLoginFailure(reason string) {
	if h.metrics != nil {
		h.metrics.RecordLoginFailure(reason)
	}
}
