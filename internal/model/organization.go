package model

import "time"

// VerificationStatus は団体の審査状態を表す。
// 審査は外部の管理プロセスが行い、本サービスは読み取るのみ。
type VerificationStatus string

const (
	// VerificationPending は審査待ちを示す。
	VerificationPending VerificationStatus = "pending"
	// VerificationVerified は審査済み（公開対象）を示す。
	VerificationVerified VerificationStatus = "verified"
	// VerificationRejected は審査却下を示す。
	VerificationRejected VerificationStatus = "rejected"
)

// Organization は検証済み団体ディレクトリのエントリを表す。
// EINは米国の法人納税者番号（9桁）で、団体ごとに一意。
type Organization struct {
	ID                 string
	EIN                string
	Name               string
	Description        string
	MissionStatement   string
	WebsiteURL         string
	LogoURL            string
	NTEECodes          []string
	VerificationStatus VerificationStatus
	VerifiedAt         *time.Time
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// OrganizationCategory は団体の分類（NTEE大分類に相当）を表す。
type OrganizationCategory struct {
	ID        string
	Name      string
	Slug      string
	SortOrder int
	IsActive  bool
	CreatedAt time.Time
}
