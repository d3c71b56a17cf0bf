package model

import "time"

type PaymentMethod string // 결제 수단
type PaymentStatus string // 결제 상태 코드

const (
	PaymentMethodCard  PaymentMethod = "card"  // 신용카드
	PaymentMethodBank  PaymentMethod = "bank"  // 계좌이체
	PaymentMethodVBank PaymentMethod = "vbank" // 가상계좌
	PaymentMethodPhone PaymentMethod = "phone" // 휴대폰 결제
	PaymentMethodPoint PaymentMethod = "point" // 포인트

	PaymentStatusReady           PaymentStatus = "ready"            // 결제 대기
	PaymentStatusPaid            PaymentStatus = "paid"             // 결제 완료
	PaymentStatusCanceled        PaymentStatus = "canceled"         // 결제 취소
	PaymentStatusFailed          PaymentStatus = "failed"           // 결제 실패
	PaymentStatusRefunded        PaymentStatus = "refunded"         // 전액 환불
	PaymentStatusPartialRefunded PaymentStatus = "partial_refunded" // 부분 환불
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodBank, PaymentMethodVBank, PaymentMethodPhone, PaymentMethodPoint:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusReady, PaymentStatusPaid, PaymentStatusCanceled,
		PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusPartialRefunded:
		return true
	}
	return false
}

// Payment 라이선스 구매/과금 건. 금액은 원 단위 정수
type Payment struct {
	ID              string        `gorm:"primaryKey;type:varchar(32)" json:"id"`                 // 결제 ID (PAY-2025-001)
	OrderID         string        `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_id"` // 주문번호 (ORD-2025-001)
	InstitutionID   string        `gorm:"type:varchar(64);not null;index" json:"institution_id"` // 기관 ID
	InstitutionName string        `gorm:"not null" json:"institution_name"`                      // 기관명 캐시
	LicenseID       *string       `gorm:"type:varchar(32);index" json:"license_id"`              // 연결된 라이선스 ID
	Amount          int64         `gorm:"not null" json:"amount"`                                // 결제 금액
	Method          PaymentMethod `gorm:"type:varchar(20);not null;index" json:"method"`         // 결제 수단
	Description     string        `gorm:"type:text" json:"description"`                          // 결제 내용
	Status          PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`         // 결제 상태
	PaymentDate     *time.Time    `gorm:"index" json:"payment_date"`                             // 결제 일시
	CancelDate      *time.Time    `json:"cancel_date"`                                           // 취소 일시
	RefundDate      *time.Time    `json:"refund_date"`                                           // 환불 일시
	RefundAmount    *int64        `json:"refund_amount"`                                         // 환불 금액
	RefundReason    string        `gorm:"type:text" json:"refund_reason,omitempty"`              // 환불 사유
	ReceiptURL      *string       `json:"receipt_url"`                                           // 영수증 URL
	CreatedAt       time.Time     `json:"created_at"`                                            // 생성 시각
	UpdatedAt       time.Time     `json:"updated_at"`                                            // 수정 시각
}

func (Payment) TableName() string {
	return "payments"
}
