package model

import "time"

type LicenseType string   // 라이선스 유형
type LicenseStatus string // 라이선스 상태
type QuotaKind string     // 사용량 한도 종류

const (
	LicenseTypeNone     LicenseType = "none"     // 라이선스 없음 (기관 미러 전용)
	LicenseTypeTrial    LicenseType = "trial"    // 체험판
	LicenseTypeStandard LicenseType = "standard" // 스탠다드
	LicenseTypePremium  LicenseType = "premium"  // 프리미엄

	LicenseStatusActive   LicenseStatus = "active"   // 사용 중
	LicenseStatusExpired  LicenseStatus = "expired"  // 만료
	LicenseStatusPending  LicenseStatus = "pending"  // 대기
	LicenseStatusCanceled LicenseStatus = "canceled" // 해지

	QuotaUsers   QuotaKind = "users"   // 사용자 수
	QuotaPhotos  QuotaKind = "photos"  // 사진 수
	QuotaReports QuotaKind = "reports" // 리포트 수
)

// Valid reports whether t can be assigned to a License. "none" is institution-only.
func (t LicenseType) Valid() bool {
	switch t {
	case LicenseTypeTrial, LicenseTypeStandard, LicenseTypePremium:
		return true
	}
	return false
}

func (s LicenseStatus) Valid() bool {
	switch s {
	case LicenseStatusActive, LicenseStatusExpired, LicenseStatusPending, LicenseStatusCanceled:
		return true
	}
	return false
}

func (q QuotaKind) Valid() bool {
	switch q {
	case QuotaUsers, QuotaPhotos, QuotaReports:
		return true
	}
	return false
}

type License struct {
	ID              string        `gorm:"primaryKey;type:varchar(32)" json:"id"`                  // 라이선스 ID (LIC-2025-001)
	InstitutionID   string        `gorm:"type:varchar(64);not null;index" json:"institution_id"`  // 기관 ID
	InstitutionName string        `gorm:"not null" json:"institution_name"`                       // 기관명 캐시
	Type            LicenseType   `gorm:"type:varchar(20);not null;index" json:"type"`            // 라이선스 유형
	Status          LicenseStatus `gorm:"type:varchar(20);not null;index" json:"status"`          // 라이선스 상태
	StartDate       time.Time     `gorm:"not null" json:"start_date"`                             // 시작일
	ExpiryDate      time.Time     `gorm:"not null;index" json:"expiry_date"`                      // 만료일 (시작일 이후)
	MaxUsers        int           `gorm:"not null" json:"max_users"`                              // 최대 사용자 수
	CurrentUsers    int           `gorm:"not null;default:0" json:"current_users"`                // 현재 사용자 수
	MaxPhotos       int           `gorm:"not null" json:"max_photos"`                             // 최대 사진 수
	CurrentPhotos   int           `gorm:"not null;default:0" json:"current_photos"`               // 현재 사진 수
	MaxReports      int           `gorm:"not null" json:"max_reports"`                            // 최대 리포트 수
	CurrentReports  int           `gorm:"not null;default:0" json:"current_reports"`              // 현재 리포트 수
	PaymentID       *string       `gorm:"type:varchar(32);index" json:"payment_id"`               // 연결된 결제 ID
	CreatedAt       time.Time     `json:"created_at"`                                             // 생성 시각
	UpdatedAt       time.Time     `json:"updated_at"`                                             // 수정 시각
}

func (License) TableName() string {
	return "licenses"
}

// Usage returns the current and max values of the given quota.
func (l *License) Usage(q QuotaKind) (current, max int) {
	switch q {
	case QuotaUsers:
		return l.CurrentUsers, l.MaxUsers
	case QuotaPhotos:
		return l.CurrentPhotos, l.MaxPhotos
	case QuotaReports:
		return l.CurrentReports, l.MaxReports
	}
	return 0, 0
}

// SetCurrent overwrites the current usage of the given quota.
func (l *License) SetCurrent(q QuotaKind, value int) {
	switch q {
	case QuotaUsers:
		l.CurrentUsers = value
	case QuotaPhotos:
		l.CurrentPhotos = value
	case QuotaReports:
		l.CurrentReports = value
	}
}
