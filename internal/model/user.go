// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 外部IdP（Google）の認証を経て初回ログイン時に作成される。
type User struct {
	ID              string
	ProviderSubject string // IdP側の一意なsubject（Googleのsub）
	Email           string
	Name            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProviderIdentity はOAuthプロバイダーから取得したユーザー情報を表す。
type ProviderIdentity struct {
	Subject string
	Email   string
	Name    string
}
