package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/kindnesshome/backend/internal/model"
)

// PostgresOrganizationRepoはOrganizationRepositoryインターフェースを満たすことを検証
func TestPostgresOrganizationRepo_ImplementsInterface(t *testing.T) {
	var _ OrganizationRepository = (*PostgresOrganizationRepo)(nil)
}

// NewPostgresOrganizationRepoが正しく初期化されることを検証
func TestNewPostgresOrganizationRepo_Initializes(t *testing.T) {
	repo := NewPostgresOrganizationRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// --- モック定義 ---

// fakeRow は関数フィールドでScanを差し替えられるrowScanner実装。
type fakeRow struct {
	scanFn func(dest ...interface{}) error
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	return r.scanFn(dest...)
}

// scanOrganizationが全カラムを正しい順序でスキャンすることを検証
func TestScanOrganization_MapsAllColumns(t *testing.T) {
	verifiedAt := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	createdAt := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	row := &fakeRow{
		scanFn: func(dest ...interface{}) error {
			if len(dest) != 13 {
				t.Fatalf("scan dest count = %d, want 13", len(dest))
			}
			*dest[0].(*string) = "org-1"
			*dest[1].(*string) = "123456789"
			*dest[2].(*string) = "Alpha Org"
			*dest[3].(*string) = "<p>説明</p>"
			*dest[4].(*string) = "ミッション"
			*dest[5].(*string) = "https://example.org"
			*dest[6].(*string) = "https://example.org/logo.png"
			if err := dest[7].(*pq.StringArray).Scan("{B20,P20}"); err != nil {
				t.Fatalf("failed to scan ntee_codes: %v", err)
			}
			*dest[8].(*model.VerificationStatus) = model.VerificationVerified
			*dest[9].(**time.Time) = &verifiedAt
			*dest[10].(*bool) = true
			*dest[11].(*time.Time) = createdAt
			*dest[12].(*time.Time) = createdAt
			return nil
		},
	}

	org, err := scanOrganization(row)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if org.EIN != "123456789" {
		t.Errorf("EIN = %q, want %q", org.EIN, "123456789")
	}
	if org.Name != "Alpha Org" {
		t.Errorf("Name = %q, want %q", org.Name, "Alpha Org")
	}
	if len(org.NTEECodes) != 2 || org.NTEECodes[0] != "B20" {
		t.Errorf("NTEECodes = %v, want [B20 P20]", org.NTEECodes)
	}
	if org.VerificationStatus != model.VerificationVerified {
		t.Errorf("VerificationStatus = %q, want %q", org.VerificationStatus, model.VerificationVerified)
	}
	if org.VerifiedAt == nil || !org.VerifiedAt.Equal(verifiedAt) {
		t.Errorf("VerifiedAt = %v, want %v", org.VerifiedAt, verifiedAt)
	}
	if !org.IsActive {
		t.Error("IsActive should be true")
	}
}

// scanOrganizationがScanエラーをラップして返すことを検証
func TestScanOrganization_WrapsScanError(t *testing.T) {
	scanErr := errors.New("type mismatch")
	row := &fakeRow{
		scanFn: func(dest ...interface{}) error {
			return scanErr
		},
	}

	org, err := scanOrganization(row)
	if org != nil {
		t.Error("expected nil organization on scan error")
	}
	if err == nil || !errors.Is(err, scanErr) {
		t.Errorf("expected wrapped scan error, got %v", err)
	}
}

func TestEscapeLikePattern(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
	}

	for _, tt := range tests {
		if got := escapeLikePattern(tt.input); got != tt.want {
			t.Errorf("escapeLikePattern(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
