package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kindnesshome/backend/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// UpsertByProviderSubject はprovider_subjectをキーにユーザーを作成または更新する。
// 新規の場合はUUIDを採番し、既存の場合はemailとnameのみ更新する。
// チェック後INSERTではなく単文のON CONFLICTで行うため、
// 同一subjectの並行ログインでも行は重複しない。
func (r *PostgresUserRepo) UpsertByProviderSubject(ctx context.Context, identity *model.ProviderIdentity, now time.Time) (*model.User, error) {
	if identity == nil || identity.Subject == "" {
		return nil, fmt.Errorf("provider identity with subject is required")
	}

	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, provider_subject, email, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (provider_subject)
		 DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		 RETURNING id, provider_subject, email, name, created_at, updated_at`,
		uuid.New().String(), identity.Subject, identity.Email, identity.Name, now,
	).Scan(&user.ID, &user.ProviderSubject, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, provider_subject, email, name, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.ProviderSubject, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
