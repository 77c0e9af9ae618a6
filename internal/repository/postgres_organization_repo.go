package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kindnesshome/backend/internal/model"
	"github.com/lib/pq"
)

// PostgresOrganizationRepo はPostgreSQLを使用した団体ディレクトリリポジトリ。
// 読み取り専用で、書き込みは外部の管理プロセスが行う。
type PostgresOrganizationRepo struct {
	db *sql.DB
}

// NewPostgresOrganizationRepo はPostgresOrganizationRepoを生成する。
func NewPostgresOrganizationRepo(db *sql.DB) *PostgresOrganizationRepo {
	return &PostgresOrganizationRepo{db: db}
}

const organizationColumns = `id, ein, name, description, mission_statement,
	website_url, logo_url, ntee_codes, verification_status, verified_at,
	is_active, created_at, updated_at`

// ListVerified は審査済みかつ有効な団体を名前順で返す。
// 同名の団体はID順で並ぶため、結果の順序は常に決定的。
func (r *PostgresOrganizationRepo) ListVerified(ctx context.Context) ([]*model.Organization, error) {
	return r.queryOrganizations(ctx,
		`SELECT `+organizationColumns+`
		 FROM organizations
		 WHERE verification_status = 'verified' AND is_active
		 ORDER BY name, id`,
	)
}

// SearchVerifiedByName は団体名の部分一致（大文字小文字を無視）で
// 審査済み団体を検索する。順序はListVerifiedと同じく名前順。
func (r *PostgresOrganizationRepo) SearchVerifiedByName(ctx context.Context, query string, limit int) ([]*model.Organization, error) {
	return r.queryOrganizations(ctx,
		`SELECT `+organizationColumns+`
		 FROM organizations
		 WHERE verification_status = 'verified' AND is_active
		   AND name ILIKE '%' || $1 || '%' ESCAPE '\'
		 ORDER BY name, id
		 LIMIT $2`,
		escapeLikePattern(query), limit,
	)
}

// ListVerifiedByCategory はNTEEコード配列のいずれかが指定メジャーグループ
// コードで始まる審査済み団体を名前順で返す。
func (r *PostgresOrganizationRepo) ListVerifiedByCategory(ctx context.Context, code string, limit int) ([]*model.Organization, error) {
	return r.queryOrganizations(ctx,
		`SELECT `+organizationColumns+`
		 FROM organizations
		 WHERE verification_status = 'verified' AND is_active
		   AND EXISTS (
		       SELECT 1 FROM unnest(ntee_codes) AS ntee
		       WHERE ntee LIKE $1 || '%'
		   )
		 ORDER BY name, id
		 LIMIT $2`,
		code, limit,
	)
}

// queryOrganizations は団体を返すSELECTを実行し、全行をスキャンする。
func (r *PostgresOrganizationRepo) queryOrganizations(ctx context.Context, query string, args ...interface{}) ([]*model.Organization, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*model.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate organizations: %w", err)
	}

	return orgs, nil
}

// escapeLikePattern はLIKEパターンのメタ文字をエスケープし、
// 利用者の入力を常にリテラル部分一致として扱う。
func escapeLikePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

// FindByEIN は指定EINの団体を取得する。見つからない場合はnilを返す。
func (r *PostgresOrganizationRepo) FindByEIN(ctx context.Context, ein string) (*model.Organization, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+organizationColumns+`
		 FROM organizations
		 WHERE ein = $1`,
		ein,
	)

	org, err := scanOrganization(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return org, nil
}

// ListCategories は有効なカテゴリをsort_order順（同順は名前順）で返す。
func (r *PostgresOrganizationRepo) ListCategories(ctx context.Context) ([]*model.OrganizationCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, sort_order, is_active, created_at
		 FROM organization_categories
		 WHERE is_active
		 ORDER BY sort_order, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*model.OrganizationCategory
	for rows.Next() {
		c := &model.OrganizationCategory{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanOrganization は1行分の団体データをスキャンする。
func scanOrganization(row rowScanner) (*model.Organization, error) {
	org := &model.Organization{}
	err := row.Scan(
		&org.ID, &org.EIN, &org.Name, &org.Description, &org.MissionStatement,
		&org.WebsiteURL, &org.LogoURL, pq.Array(&org.NTEECodes),
		&org.VerificationStatus, &org.VerifiedAt,
		&org.IsActive, &org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan organization: %w", err)
	}
	return org, nil
}

// compile-time interface check
var _ OrganizationRepository = (*PostgresOrganizationRepo)(nil)
