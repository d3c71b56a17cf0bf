package service

import (
	"errors"
	"fmt"

	"github.com/ikkim/medilens-admin/internal/app/model"
	"gorm.io/gorm"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrQuotaViolation = errors.New("quota violation")

	ErrInstitutionNotFound  = fmt.Errorf("%w: institution", ErrNotFound)
	ErrLicenseNotFound      = fmt.Errorf("%w: license", ErrNotFound)
	ErrPaymentNotFound      = fmt.Errorf("%w: payment", ErrNotFound)
	ErrPaymentNotCompleted  = fmt.Errorf("%w: payment not completed", ErrInvalidState)
	ErrInvalidDateRange     = fmt.Errorf("%w: expiry_date must be after start_date", ErrValidation)
	ErrInvalidRefundAmount  = fmt.Errorf("%w: refund amount must be within (0, amount]", ErrValidation)
	ErrRefundReasonTooShort = fmt.Errorf("%w: refund reason must be at least 2 characters", ErrValidation)
	ErrInvalidPaymentAmount = fmt.Errorf("%w: amount must be positive", ErrValidation)
)

// QuotaViolationError reports which quota would drop below its current usage.
type QuotaViolationError struct {
	Quota   model.QuotaKind
	Current int
	Max     int
}

func (e *QuotaViolationError) Error() string {
	return fmt.Sprintf("quota violation: %s usage %d exceeds limit %d", e.Quota, e.Current, e.Max)
}

func (e *QuotaViolationError) Is(target error) bool {
	return target == ErrQuotaViolation
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFoundOr maps gorm's missing-row error to the given not-found sentinel.
func notFoundOr(err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
