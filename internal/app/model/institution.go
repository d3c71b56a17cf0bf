package model

import "time"

type InstitutionStatus string // 기관 상태 코드

const (
	InstitutionStatusActive   InstitutionStatus = "active"   // 이용 중
	InstitutionStatusInactive InstitutionStatus = "inactive" // 이용 중지
	InstitutionStatusPending  InstitutionStatus = "pending"  // 승인 대기
)

func (s InstitutionStatus) Valid() bool {
	switch s {
	case InstitutionStatusActive, InstitutionStatusInactive, InstitutionStatusPending:
		return true
	}
	return false
}

// Institution 병원/검진기관. license_type, license_expiry는 최신 라이선스를 미러링한 값
type Institution struct {
	ID             string            `gorm:"primaryKey;type:varchar(64)" json:"id"`                          // 기관 ID
	Name           string            `gorm:"not null;index" json:"name"`                                     // 기관명
	BusinessNumber string            `gorm:"type:varchar(20);index" json:"business_number"`                  // 사업자등록번호
	Representative string            `gorm:"type:varchar(50)" json:"representative"`                         // 대표자명
	PhoneNumber    string            `gorm:"type:varchar(30)" json:"phone_number"`                           // 연락처
	Email          string            `gorm:"type:varchar(100)" json:"email"`                                 // 담당자 이메일
	Address        string            `gorm:"type:text" json:"address"`                                       // 주소
	Status         InstitutionStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`         // 기관 상태
	LicenseType    LicenseType       `gorm:"type:varchar(20);default:'none'" json:"license_type"`            // 현재 라이선스 유형 (미러)
	LicenseExpiry  *time.Time        `json:"license_expiry"`                                                 // 현재 라이선스 만료일 (미러)
	CreatedAt      time.Time         `json:"created_at"`                                                     // 생성 시각
	UpdatedAt      time.Time         `json:"updated_at"`                                                     // 수정 시각
}

func (Institution) TableName() string {
	return "institutions"
}
