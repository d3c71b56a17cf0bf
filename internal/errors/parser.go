package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ikkim/medilens-admin/internal/app/service"
	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Status  int    // HTTP 상태 코드
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError 서비스 에러를 HTTP 상태, 코드, 메시지로 변환
// 검증 400, 없음 404, 한도/상태 충돌 409, 그 외 500
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "서버 오류가 발생했습니다",
		}
	}

	// 1. 사용량 한도 위반
	var quotaErr *service.QuotaViolationError
	if errors.As(err, &quotaErr) {
		return ErrorInfo{
			Status:  http.StatusConflict,
			Code:    LicenseQuotaExceeded,
			Message: quotaErr.Error(),
		}
	}

	// 2. 상태 충돌
	if errors.Is(err, service.ErrPaymentNotCompleted) {
		return ErrorInfo{
			Status:  http.StatusConflict,
			Code:    PaymentNotCompleted,
			Message: "결제 완료된 건만 환불할 수 있습니다",
		}
	}
	if errors.Is(err, service.ErrInvalidState) {
		return ErrorInfo{
			Status:  http.StatusConflict,
			Code:    ResourceConflict,
			Message: err.Error(),
		}
	}

	// 3. 리소스 없음
	if errors.Is(err, service.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return parseNotFoundError(err, context)
	}

	// 4. 검증 에러
	if errors.Is(err, service.ErrValidation) {
		return parseValidationError(err)
	}

	// 5. DB 제약 조건
	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return ErrorInfo{
			Status:  http.StatusConflict,
			Code:    ResourceAlreadyExists,
			Message: "이미 존재하는 데이터입니다. 다시 시도해주세요",
		}
	}

	// 6. 네트워크/연결 에러
	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalExternalAPI,
			Message: "외부 서비스 연결에 실패했습니다. 잠시 후 다시 시도해주세요",
		}
	}

	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseNotFoundError(err error, context string) ErrorInfo {
	switch {
	case errors.Is(err, service.ErrLicenseNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: LicenseNotFound, Message: "라이선스를 찾을 수 없습니다"}
	case errors.Is(err, service.ErrPaymentNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: PaymentNotFound, Message: "결제 내역을 찾을 수 없습니다"}
	case errors.Is(err, service.ErrInstitutionNotFound):
		return ErrorInfo{Status: http.StatusNotFound, Code: InstitutionNotFound, Message: "기관을 찾을 수 없습니다"}
	}
	return ErrorInfo{
		Status:  http.StatusNotFound,
		Code:    ResourceNotFound,
		Message: getNotFoundMessage(context),
	}
}

// parseValidationError 검증 에러는 원인 메시지를 그대로 전달
func parseValidationError(err error) ErrorInfo {
	info := ErrorInfo{
		Status:  http.StatusBadRequest,
		Code:    ValidationInvalidInput,
		Message: err.Error(),
	}

	switch {
	case errors.Is(err, service.ErrInvalidDateRange):
		info.Code = LicenseInvalidDateRange
	case errors.Is(err, service.ErrInvalidRefundAmount):
		info.Code = PaymentInvalidRefund
	case errors.Is(err, service.ErrRefundReasonTooShort):
		info.Code = PaymentRefundReason
	case errors.Is(err, service.ErrInvalidPaymentAmount):
		info.Code = PaymentInvalidAmount
	}
	return info
}

// getNotFoundMessage context에 따른 Not Found 메시지
func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "license") || strings.Contains(contextLower, "라이선스") {
		return "라이선스를 찾을 수 없습니다"
	}
	if strings.Contains(contextLower, "payment") || strings.Contains(contextLower, "결제") {
		return "결제 내역을 찾을 수 없습니다"
	}
	if strings.Contains(contextLower, "institution") || strings.Contains(contextLower, "기관") {
		return "기관을 찾을 수 없습니다"
	}

	return "요청한 데이터를 찾을 수 없습니다"
}

// getDefaultErrorMessage context에 따른 기본 에러 메시지
func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "create") || strings.Contains(contextLower, "생성") || strings.Contains(contextLower, "등록") {
		return "등록 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(contextLower, "update") || strings.Contains(contextLower, "수정") {
		return "수정 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(contextLower, "delete") || strings.Contains(contextLower, "삭제") {
		return "삭제 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(contextLower, "refund") || strings.Contains(contextLower, "환불") {
		return "환불 처리 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(contextLower, "export") || strings.Contains(contextLower, "내보내기") {
		return "엑셀 파일 생성 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}

	return "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
}

// ParseAndRespond 에러를 파싱하여 매핑된 상태 코드로 응답 반환
func ParseAndRespond(c interface{ JSON(int, interface{}) }, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(errorInfo.Status, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
