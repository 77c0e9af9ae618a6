// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/kindnesshome/backend/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// UpsertByProviderSubject はprovider_subjectをキーにユーザーを
	// 作成または更新する。既存ユーザーの場合はemailとnameを更新し、
	// 既存のIDを返す。provider_subjectの一意制約と
	// INSERT ... ON CONFLICTにより、同一subjectの並行ログインでも
	// 行が重複しないことが保証される。
	UpsertByProviderSubject(ctx context.Context, identity *model.ProviderIdentity, now time.Time) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// OrganizationRepository は団体ディレクトリの読み取りインターフェース。
// 団体データの作成・更新は外部の管理プロセスが行い、本サービスは読むのみ。
type OrganizationRepository interface {
	// ListVerified は審査済みかつ有効な団体を名前順（同名はID順）で返す。
	// verification_status = 'verified' 以外のエントリは決して含まれない。
	ListVerified(ctx context.Context) ([]*model.Organization, error)

	// FindByEIN は指定EINの団体を取得する。見つからない場合はnilを返す。
	FindByEIN(ctx context.Context, ein string) (*model.Organization, error)

	// SearchVerifiedByName は団体名の部分一致で審査済み団体を検索する。
	// 結果は名前順（同名はID順）、件数はlimitで打ち切る。
	SearchVerifiedByName(ctx context.Context, query string, limit int) ([]*model.Organization, error)

	// ListVerifiedByCategory はNTEEメジャーグループコード（A〜Zの1文字）に
	// 属する審査済み団体を名前順で返す。件数はlimitで打ち切る。
	ListVerifiedByCategory(ctx context.Context, code string, limit int) ([]*model.Organization, error)

	// ListCategories は有効なカテゴリをsort_order順で返す。
	ListCategories(ctx context.Context) ([]*model.OrganizationCategory, error)
}
