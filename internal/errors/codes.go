package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 관리자 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // 잘못된 입력
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // 잘못된 ID
	ValidationInvalidDate  = "VALIDATION_INVALID_DATE"  // 잘못된 날짜 형식/순서
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE" // 범위 초과
	ValidationTooShort     = "VALIDATION_TOO_SHORT"     // 너무 짧음
	ValidationRequired     = "VALIDATION_REQUIRED"      // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 기관 (INSTITUTION_) ====================
	InstitutionNotFound = "INSTITUTION_NOT_FOUND" // 기관 없음

	// ==================== 라이선스 (LICENSE_) ====================
	LicenseNotFound         = "LICENSE_NOT_FOUND"          // 라이선스 없음
	LicenseQuotaExceeded    = "LICENSE_QUOTA_EXCEEDED"     // 사용량 한도 초과
	LicenseInvalidDateRange = "LICENSE_INVALID_DATE_RANGE" // 만료일이 시작일 이전
	LicenseExportFailed     = "LICENSE_EXPORT_FAILED"      // 엑셀 내보내기 실패

	// ==================== 결제 (PAYMENT_) ====================
	PaymentNotFound      = "PAYMENT_NOT_FOUND"      // 결제 없음
	PaymentNotCompleted  = "PAYMENT_NOT_COMPLETED"  // 결제 완료 건이 아님
	PaymentInvalidAmount = "PAYMENT_INVALID_AMOUNT" // 잘못된 결제 금액
	PaymentInvalidRefund = "PAYMENT_INVALID_REFUND" // 잘못된 환불 금액
	PaymentRefundReason  = "PAYMENT_REFUND_REASON"  // 환불 사유 부족
	PaymentExportFailed  = "PAYMENT_EXPORT_FAILED"  // 엑셀 내보내기 실패

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // 외부 API 오류
)
