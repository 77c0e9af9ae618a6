// Package token は自己完結型の署名付きセッショントークンの発行と検証を提供する。
//
// トークンはHS256で署名されたJWTで、subject（ユーザーID）、発行時刻、
// 有効期限をクレームとして持つ。サーバー側に状態を持たないため、
// 失効リストは存在せず、有効期限によってのみ無効化される。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// トークン検証の失敗種別。
// 署名の比較はjwtライブラリ内部でcrypto/hmacの定数時間比較により行われる。
var (
	// ErrMalformed はトークンのデコードに失敗したことを示す。
	ErrMalformed = errors.New("token is malformed")
	// ErrInvalidSignature は署名が一致しないことを示す。
	ErrInvalidSignature = errors.New("token signature is invalid")
	// ErrExpired はトークンの有効期限が切れていることを示す。
	ErrExpired = errors.New("token is expired")
)

// Codec はセッショントークンの発行と検証を行う。
// 署名鍵は起動時に1回読み込まれ、以降は読み取り専用で共有される。
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec はCodecを生成する。
// secretが空、またはttlが0以下の場合はエラーを返す。
func NewCodec(secret []byte, ttl time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token TTL must be positive: %v", ttl)
	}
	return &Codec{secret: secret, ttl: ttl}, nil
}

// Issue はsubjectを保持する署名付きトークンを発行する。
// 有効期限はnow + TTL。
func (c *Codec) Issue(subject string, now time.Time) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject must not be empty")
	}

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、subjectを返す。
// 失敗種別に応じてErrMalformed、ErrInvalidSignature、ErrExpiredのいずれかを返す。
// 有効期限はnow >= expiresAtで失効と判定される。
func (c *Codec) Verify(tokenString string, now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrInvalidSignature
		default:
			return "", ErrMalformed
		}
	}

	if claims.Subject == "" {
		return "", ErrMalformed
	}
	return claims.Subject, nil
}
