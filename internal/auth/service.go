// Package auth はGoogle OAuth 2.0認可コードフローと
// セッショントークンの発行を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kindnesshome/backend/internal/model"
	"github.com/kindnesshome/backend/internal/repository"
)

// ログイン処理の失敗種別。
var (
	// ErrInvalidState はstate検証の失敗（CSRF・リプレイ・期限切れ）を示す。
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrProviderExchange は認可コード交換の失敗を示す。
	ErrProviderExchange = errors.New("provider exchange failed")
)

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// LoginURL はstateを埋め込んだOAuth認証URLを生成する。
	LoginURL(state string) string
	// ExchangeCode は認可コードを交換し、IdP側のユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*model.ProviderIdentity, error)
}

// TokenIssuer はセッショントークン発行のインターフェース。
// token.Codecの部分集合として定義する。
type TokenIssuer interface {
	Issue(subject string, now time.Time) (string, error)
}

// ExchangeLatencyRecorder は認可コード交換のレイテンシ記録インターフェース。
// 成否にかかわらず、交換呼び出しそのものの所要時間を観測する。
type ExchangeLatencyRecorder interface {
	RecordExchangeLatency(duration time.Duration)
}

// LoginResult はログイン成功時の結果を表す。
type LoginResult struct {
	User  *model.User
	Token string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	states   *StateStore
	userRepo repository.UserRepository
	tokens   TokenIssuer
	latency  ExchangeLatencyRecorder
}

// NewService はServiceを生成する。latencyはnilを許容する。
func NewService(oauth OAuthProvider, states *StateStore, userRepo repository.UserRepository, tokens TokenIssuer, latency ExchangeLatencyRecorder) *Service {
	return &Service{
		oauth:    oauth,
		states:   states,
		userRepo: userRepo,
		tokens:   tokens,
		latency:  latency,
	}
}

// BeginLogin は新しいstateを発行し、それを埋め込んだプロバイダーの
// 認証URLを返す。
func (s *Service) BeginLogin() (string, error) {
	state, err := s.states.Issue()
	if err != nil {
		return "", fmt.Errorf("failed to issue oauth state: %w", err)
	}
	return s.oauth.LoginURL(state), nil
}

// HandleCallback はOAuthコールバックを処理し、ユーザーとセッショントークンを返す。
//
// 処理は順に行われ、いずれかの失敗でそのリクエストは終了する:
//  1. stateの消費（失敗はErrInvalidState）
//  2. 認可コードの交換（失敗はErrProviderExchange）
//  3. provider_subjectをキーとしたユーザーのupsert
//  4. トークンの発行
//
// 各ステップの効果は独立しているため、失敗時の巻き戻しは不要。
func (s *Service) HandleCallback(ctx context.Context, state, code string, now time.Time) (*LoginResult, error) {
	// 1. stateの検証と消費（CSRF・リプレイ対策）
	if err := s.states.Consume(state, now); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	// 2. 認可コードをIdPのユーザー情報に交換。
	// レイテンシは交換呼び出しのみを計測し、失敗時も記録する。
	start := time.Now()
	identity, err := s.oauth.ExchangeCode(ctx, code)
	if s.latency != nil {
		s.latency.RecordExchangeLatency(time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderExchange, err)
	}

	// 3. provider_subjectで一意なユーザーをupsert
	user, err := s.userRepo.UpsertByProviderSubject(ctx, identity, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	// 4. セッショントークンを発行
	tok, err := s.tokens.Issue(user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("provider_subject", identity.Subject),
	)

	return &LoginResult{User: user, Token: tok}, nil
}
