package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kindnesshome/backend/internal/middleware"
	"github.com/kindnesshome/backend/internal/model"
)

// OrganizationServiceInterface は団体ハンドラーが必要とするサービスインターフェース。
// 読み取り専用であり、団体データの作成・更新は外部の管理プロセスが行う。
type OrganizationServiceInterface interface {
	ListVerified(ctx context.Context) ([]*model.Organization, error)
	FindByEIN(ctx context.Context, ein string) (*model.Organization, error)
	SearchVerifiedByName(ctx context.Context, query string, limit int) ([]*model.Organization, error)
	ListVerifiedByCategory(ctx context.Context, code string, limit int) ([]*model.Organization, error)
	ListCategories(ctx context.Context) ([]*model.OrganizationCategory, error)
}

// HTMLSanitizer は団体の説明文HTMLをサニタイズするインターフェース。
type HTMLSanitizer interface {
	Sanitize(rawHTML string) string
}

// OrganizationHandler は団体ディレクトリのHTTPハンドラー。
type OrganizationHandler struct {
	service   OrganizationServiceInterface
	sanitizer HTMLSanitizer
}

// NewOrganizationHandler はOrganizationHandlerを生成する。
func NewOrganizationHandler(service OrganizationServiceInterface, sanitizer HTMLSanitizer) *OrganizationHandler {
	return &OrganizationHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// --- レスポンス型 ---

// organizationResponse は団体のAPIレスポンス。
type organizationResponse struct {
	ID                 string     `json:"id"`
	EIN                string     `json:"ein"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	MissionStatement   string     `json:"mission_statement"`
	WebsiteURL         string     `json:"website_url"`
	LogoURL            string     `json:"logo_url"`
	NTEECodes          []string   `json:"ntee_codes"`
	VerificationStatus string     `json:"verification_status"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
}

// organizationListResponse は団体一覧のレスポンス。
type organizationListResponse struct {
	Data  []organizationResponse `json:"data"`
	Count int                    `json:"count"`
}

// organizationSearchResponse は団体検索のレスポンス。
// 検索に使われたキーワードをエコーバックする。
type organizationSearchResponse struct {
	Data  []organizationResponse `json:"data"`
	Count int                    `json:"count"`
	Query string                 `json:"query"`
}

// organizationCategoryListResponse はカテゴリ別団体一覧のレスポンス。
type organizationCategoryListResponse struct {
	Data     []organizationResponse `json:"data"`
	Count    int                    `json:"count"`
	Category string                 `json:"category"`
}

// categoryResponse はカテゴリのAPIレスポンス。
type categoryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	SortOrder int    `json:"sort_order"`
}

// categoryListResponse はカテゴリ一覧のレスポンス。
type categoryListResponse struct {
	Data  []categoryResponse `json:"data"`
	Count int                `json:"count"`
}

// ListOrganizations は審査済み団体の一覧を取得する。
// GET /api/organizations
func (h *OrganizationHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.service.ListVerified(r.Context())
	if err != nil {
		slog.Error("failed to list organizations", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	data := make([]organizationResponse, 0, len(orgs))
	for _, org := range orgs {
		data = append(data, h.toOrganizationResponse(org))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(organizationListResponse{
		Data:  data,
		Count: len(data),
	})
}

// 検索結果の件数上限。limitパラメータ未指定時はdefaultSearchLimit、
// 上限超過時はmaxSearchLimitに丸める。
const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// SearchOrganizations は団体名のキーワード検索を行う。
// GET /api/organizations/search?q=xxx&limit=20
//
// キーワードは2文字以上。limitは1〜100の範囲に丸める。
func (h *OrganizationHandler) SearchOrganizations(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(query)) < 2 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidSearchQueryError())
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"))

	orgs, err := h.service.SearchVerifiedByName(r.Context(), query, limit)
	if err != nil {
		slog.Error("failed to search organizations",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	data := make([]organizationResponse, 0, len(orgs))
	for _, org := range orgs {
		data = append(data, h.toOrganizationResponse(org))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(organizationSearchResponse{
		Data:  data,
		Count: len(data),
		Query: query,
	})
}

// ListOrganizationsByCategory はNTEEメジャーグループ別の団体一覧を取得する。
// GET /api/organizations/categories/{code}
//
// コードはA〜Zの1文字。小文字は大文字に正規化する。
func (h *OrganizationHandler) ListOrganizationsByCategory(w http.ResponseWriter, r *http.Request) {
	rawCode := chi.URLParam(r, "code")

	code, ok := normalizeCategoryCode(rawCode)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidCategoryCodeError(rawCode))
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"))

	orgs, err := h.service.ListVerifiedByCategory(r.Context(), code, limit)
	if err != nil {
		slog.Error("failed to list organizations by category",
			slog.String("category", code),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	data := make([]organizationResponse, 0, len(orgs))
	for _, org := range orgs {
		data = append(data, h.toOrganizationResponse(org))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(organizationCategoryListResponse{
		Data:     data,
		Count:    len(data),
		Category: code,
	})
}

// GetOrganization はEIN指定で団体詳細を取得する。
// GET /api/organizations/{ein}
func (h *OrganizationHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	rawEIN := chi.URLParam(r, "ein")

	ein, ok := normalizeEIN(rawEIN)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidEINError(rawEIN))
		return
	}

	org, err := h.service.FindByEIN(r.Context(), ein)
	if err != nil {
		slog.Error("failed to find organization",
			slog.String("ein", ein),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if org == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewOrganizationNotFoundError(ein))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.toOrganizationResponse(org))
}

// ListCategories は有効なカテゴリの一覧を取得する。
// GET /api/organizations/categories
func (h *OrganizationHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		slog.Error("failed to list categories", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	data := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		data = append(data, categoryResponse{
			ID:        c.ID,
			Name:      c.Name,
			Slug:      c.Slug,
			SortOrder: c.SortOrder,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(categoryListResponse{
		Data:  data,
		Count: len(data),
	})
}

// toOrganizationResponse はmodel.OrganizationからAPIレスポンスに変換する。
// 説明文とミッションは外部の管理プロセスが保守するHTMLを含み得るため、
// 返却前にサニタイズする。
func (h *OrganizationHandler) toOrganizationResponse(org *model.Organization) organizationResponse {
	description := org.Description
	mission := org.MissionStatement
	if h.sanitizer != nil {
		description = h.sanitizer.Sanitize(description)
		mission = h.sanitizer.Sanitize(mission)
	}

	nteeCodes := org.NTEECodes
	if nteeCodes == nil {
		nteeCodes = []string{}
	}

	return organizationResponse{
		ID:                 org.ID,
		EIN:                org.EIN,
		Name:               org.Name,
		Description:        description,
		MissionStatement:   mission,
		WebsiteURL:         org.WebsiteURL,
		LogoURL:            org.LogoURL,
		NTEECodes:          nteeCodes,
		VerificationStatus: string(org.VerificationStatus),
		VerifiedAt:         org.VerifiedAt,
	}
}

// parseLimit はlimitクエリパラメータを解釈する。
// 未指定・数値でない・正でない場合は既定値、上限超過は上限に丸める。
func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultSearchLimit
	}
	if n > maxSearchLimit {
		return maxSearchLimit
	}
	return n
}

// normalizeCategoryCode はカテゴリコードを大文字の正規形に変換する。
// A〜Zの1文字でない場合はfalseを返す。
func normalizeCategoryCode(raw string) (string, bool) {
	if len(raw) != 1 {
		return "", false
	}
	c := raw[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return "", false
	}
	return string(c), true
}

// normalizeEIN はEINをハイフン・空白除去済みの正規形に変換する。
// 9桁の数字でない場合はfalseを返す。
func normalizeEIN(raw string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, raw)

	if len(cleaned) != 9 {
		return "", false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return cleaned, true
}
