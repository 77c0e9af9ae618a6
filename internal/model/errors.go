package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// クライアントに返す安定したエラーコードとカテゴリを含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidState           = "INVALID_STATE"
	ErrCodeProviderExchangeFailed = "PROVIDER_EXCHANGE_FAILED"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeInvalidEIN             = "INVALID_EIN"
	ErrCodeInvalidSearchQuery     = "INVALID_SEARCH_QUERY"
	ErrCodeInvalidCategoryCode    = "INVALID_CATEGORY_CODE"
	ErrCodeOrganizationNotFound   = "ORGANIZATION_NOT_FOUND"
	ErrCodeInternalError          = "INTERNAL_ERROR"
)

// NewInvalidStateError はstate検証失敗エラーを生成する。
// CSRF、リプレイ、期限切れのいずれもこのエラーに正規化される。
func NewInvalidStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  "認証リクエストの検証に失敗しました。",
		Category: "auth",
		Action:   "ログインを最初からやり直してください。",
	}
}

// NewProviderExchangeFailedError は認可コード交換失敗エラーを生成する。
// プロバイダー側のエラー詳細はログのみに記録し、レスポンスには含めない。
func NewProviderExchangeFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderExchangeFailed,
		Message:  "Googleとの認証に失敗しました。",
		Category: "auth",
		Action:   "しばらく待ってから、ログインを最初からやり直してください。",
	}
}

// NewUnauthorizedError は認証切れ・未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidEINError は無効なEIN形式エラーを生成する。
func NewInvalidEINError(ein string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEIN,
		Message:  fmt.Sprintf("無効なEIN形式です: %s", ein),
		Category: "validation",
		Action:   "EINは9桁の数字で指定してください。",
	}
}

// NewInvalidSearchQueryError は検索クエリ不正エラーを生成する。
func NewInvalidSearchQueryError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSearchQuery,
		Message:  "検索キーワードは2文字以上で指定してください。",
		Category: "validation",
		Action:   "キーワードを見直して再度検索してください。",
	}
}

// NewInvalidCategoryCodeError は無効なカテゴリコードエラーを生成する。
func NewInvalidCategoryCodeError(code string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCategoryCode,
		Message:  fmt.Sprintf("無効なカテゴリコードです: %s", code),
		Category: "validation",
		Action:   "カテゴリコードはA〜Zの1文字で指定してください。",
	}
}

// NewOrganizationNotFoundError は団体未検出エラーを生成する。
func NewOrganizationNotFoundError(ein string) *APIError {
	return &APIError{
		Code:     ErrCodeOrganizationNotFound,
		Message:  fmt.Sprintf("指定された団体が見つかりません: %s", ein),
		Category: "validation",
		Action:   "EINを確認してください。",
	}
}
