package model

import "time"

type BillingEventType string

const (
	EventLicenseCreated       BillingEventType = "license.created"
	EventLicenseUpdated       BillingEventType = "license.updated"
	EventLicenseDeleted       BillingEventType = "license.deleted"
	EventLicenseQuotaConsumed BillingEventType = "license.quota_consumed"
	EventPaymentCreated       BillingEventType = "payment.created"
	EventPaymentStatusChanged BillingEventType = "payment.status_changed"
	EventPaymentRefunded      BillingEventType = "payment.refunded"
	EventPaymentDeleted       BillingEventType = "payment.deleted"
)

// BillingEvent 커밋된 라이선스/결제 변경 알림 (관리자 대시보드 실시간 반영용)
type BillingEvent struct {
	Type          BillingEventType `json:"type"`
	EntityID      string           `json:"entity_id"`
	InstitutionID string           `json:"institution_id"`
	Status        string           `json:"status,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}
