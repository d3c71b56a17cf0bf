package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ikkim/medilens-admin/config"
	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/internal/app/repository"
	"github.com/ikkim/medilens-admin/internal/metrics"
	"github.com/ikkim/medilens-admin/pkg/logger"
	"gorm.io/gorm"
)

const minRefundReasonLength = 2

type CreatePaymentInput struct {
	InstitutionID string
	LicenseID     *string
	Amount        int64
	Method        model.PaymentMethod
	Description   string
	Status        model.PaymentStatus // defaults to ready
	PaymentDate   *time.Time
}

type RefundInput struct {
	Amount int64
	Reason string
}

type PaymentListResult struct {
	Payments []model.Payment `json:"payments"`
	Total    int64           `json:"total"`
}

type PaymentService interface {
	GetPayments(ctx context.Context, filter repository.PaymentFilter) (*PaymentListResult, error)
	GetPaymentByID(ctx context.Context, id string) (*model.Payment, error)
	CreatePayment(ctx context.Context, input CreatePaymentInput) (*model.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) (*model.Payment, error)
	ProcessRefund(ctx context.Context, id string, input RefundInput) (*model.Payment, error)
	DeletePayment(ctx context.Context, id string) error
}

type paymentService struct {
	paymentRepo     repository.PaymentRepository
	licenseRepo     repository.LicenseRepository
	institutionRepo repository.InstitutionRepository
	sequences       SequenceGenerator
	publisher       EventPublisher
	receiptBaseURL  string
	db              *gorm.DB
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	licenseRepo repository.LicenseRepository,
	institutionRepo repository.InstitutionRepository,
	sequences SequenceGenerator,
	cfg *config.BillingConfig,
	db *gorm.DB,
	publisher EventPublisher,
) PaymentService {
	return &paymentService{
		paymentRepo:     paymentRepo,
		licenseRepo:     licenseRepo,
		institutionRepo: institutionRepo,
		sequences:       sequences,
		publisher:       publisherOrNoop(publisher),
		receiptBaseURL:  strings.TrimRight(cfg.ReceiptBaseURL, "/"),
		db:              db,
	}
}

func (s *paymentService) GetPayments(ctx context.Context, filter repository.PaymentFilter) (*PaymentListResult, error) {
	if err := validatePaymentFilter(filter); err != nil {
		return nil, err
	}
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	payments, total, err := s.paymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &PaymentListResult{Payments: payments, Total: total}, nil
}

func validatePaymentFilter(filter repository.PaymentFilter) error {
	if filter.Status != "" && !filter.Status.Valid() {
		return validationError("invalid payment status %q", filter.Status)
	}
	if filter.Method != "" && !filter.Method.Valid() {
		return validationError("invalid payment method %q", filter.Method)
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return validationError("end_date must not be before start_date")
	}
	return nil
}

func (s *paymentService) GetPaymentByID(ctx context.Context, id string) (*model.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrPaymentNotFound)
	}
	return payment, nil
}

func (s *paymentService) receiptURL(orderID string) *string {
	url := fmt.Sprintf("%s/%s", s.receiptBaseURL, orderID)
	return &url
}

func (s *paymentService) CreatePayment(ctx context.Context, input CreatePaymentInput) (payment *model.Payment, err error) {
	defer func() { metrics.ObservePaymentOperation("create", err) }()

	if input.Amount <= 0 {
		return nil, ErrInvalidPaymentAmount
	}
	if !input.Method.Valid() {
		return nil, validationError("invalid payment method %q", input.Method)
	}
	status := input.Status
	if status == "" {
		status = model.PaymentStatusReady
	}
	if !status.Valid() {
		return nil, validationError("invalid payment status %q", status)
	}
	if strings.TrimSpace(input.InstitutionID) == "" {
		return nil, validationError("institution_id is required")
	}

	institution, err := s.institutionRepo.FindByID(ctx, input.InstitutionID)
	if err != nil {
		return nil, notFoundOr(err, fmt.Errorf("%w: institution %q does not exist", ErrValidation, input.InstitutionID))
	}
	if input.LicenseID != nil {
		if _, err := s.licenseRepo.FindByID(ctx, *input.LicenseID); err != nil {
			return nil, notFoundOr(err, fmt.Errorf("%w: license %q does not exist", ErrValidation, *input.LicenseID))
		}
	}

	now := timeNow()
	seq, err := s.sequences.Next(ctx, sequencePayment, now.Year())
	if err != nil {
		logger.Error("Failed to allocate payment sequence", err)
		return nil, err
	}

	payment = &model.Payment{
		ID:              formatSequenceID("PAY", now.Year(), seq),
		OrderID:         formatSequenceID("ORD", now.Year(), seq),
		InstitutionID:   institution.ID,
		InstitutionName: institution.Name,
		LicenseID:       input.LicenseID,
		Amount:          input.Amount,
		Method:          input.Method,
		Description:     strings.TrimSpace(input.Description),
		Status:          status,
		PaymentDate:     input.PaymentDate,
	}
	if status == model.PaymentStatusPaid {
		if payment.PaymentDate == nil {
			payment.PaymentDate = &now
		}
		payment.ReceiptURL = s.receiptURL(payment.OrderID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.paymentRepo.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}
		return attachPayment(ctx, s.licenseRepo.WithTx(tx), payment, now)
	})
	if err != nil {
		logger.Error("Failed to create payment", err, map[string]interface{}{
			"payment_id":     payment.ID,
			"institution_id": payment.InstitutionID,
		})
		return nil, err
	}

	logger.Info("Payment created", map[string]interface{}{
		"payment_id":     payment.ID,
		"order_id":       payment.OrderID,
		"institution_id": payment.InstitutionID,
		"license_id":     payment.LicenseID,
		"amount":         payment.Amount,
		"status":         payment.Status,
	})
	s.publish(model.EventPaymentCreated, payment)
	return payment, nil
}

// UpdatePaymentStatus applies any status change; only paid and canceled carry timestamp side effects.
func (s *paymentService) UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) (payment *model.Payment, err error) {
	defer func() { metrics.ObservePaymentOperation("update_status", err) }()

	if !status.Valid() {
		return nil, validationError("invalid payment status %q", status)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)

		current, err := paymentRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, ErrPaymentNotFound)
		}

		now := timeNow()
		current.Status = status
		switch status {
		case model.PaymentStatusPaid:
			if current.PaymentDate == nil {
				current.PaymentDate = &now
			}
			if current.ReceiptURL == nil {
				current.ReceiptURL = s.receiptURL(current.OrderID)
			}
		case model.PaymentStatusCanceled:
			current.CancelDate = &now
		}

		if err := paymentRepo.Update(ctx, current); err != nil {
			return err
		}
		payment = current
		return nil
	})
	if err != nil {
		logger.Warn("Payment status update failed", map[string]interface{}{
			"payment_id": id,
			"status":     status,
			"error":      err.Error(),
		})
		return nil, err
	}

	logger.Info("Payment status updated", map[string]interface{}{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	s.publish(model.EventPaymentStatusChanged, payment)
	return payment, nil
}

// ProcessRefund refunds part or all of a paid payment. Only paid payments qualify,
// so a second refund on the same payment fails.
func (s *paymentService) ProcessRefund(ctx context.Context, id string, input RefundInput) (payment *model.Payment, err error) {
	defer func() { metrics.ObservePaymentOperation("refund", err) }()

	reason := strings.TrimSpace(input.Reason)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)

		current, err := paymentRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, ErrPaymentNotFound)
		}
		if current.Status != model.PaymentStatusPaid {
			return ErrPaymentNotCompleted
		}
		if input.Amount <= 0 || input.Amount > current.Amount {
			return ErrInvalidRefundAmount
		}
		if utf8.RuneCountInString(reason) < minRefundReasonLength {
			return ErrRefundReasonTooShort
		}

		now := timeNow()
		amount := input.Amount
		current.RefundDate = &now
		current.RefundAmount = &amount
		current.RefundReason = reason
		if amount == current.Amount {
			current.Status = model.PaymentStatusRefunded
		} else {
			current.Status = model.PaymentStatusPartialRefunded
		}

		if err := paymentRepo.Update(ctx, current); err != nil {
			return err
		}
		payment = current
		return nil
	})
	if err != nil {
		logger.Warn("Payment refund rejected", map[string]interface{}{
			"payment_id":    id,
			"refund_amount": input.Amount,
			"error":         err.Error(),
		})
		return nil, err
	}

	metrics.RefundedAmountTotal.Add(float64(*payment.RefundAmount))
	logger.Info("Payment refunded", map[string]interface{}{
		"payment_id":    payment.ID,
		"amount":        payment.Amount,
		"refund_amount": *payment.RefundAmount,
		"status":        payment.Status,
	})
	s.publish(model.EventPaymentRefunded, payment)
	return payment, nil
}

// DeletePayment removes a payment for administrative cleanup.
func (s *paymentService) DeletePayment(ctx context.Context, id string) (err error) {
	defer func() { metrics.ObservePaymentOperation("delete", err) }()

	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, ErrPaymentNotFound)
	}
	if err := s.paymentRepo.Delete(ctx, id); err != nil {
		return notFoundOr(err, ErrPaymentNotFound)
	}

	logger.Info("Payment deleted", map[string]interface{}{
		"payment_id":     id,
		"institution_id": payment.InstitutionID,
	})
	s.publish(model.EventPaymentDeleted, payment)
	return nil
}

func (s *paymentService) publish(eventType model.BillingEventType, payment *model.Payment) {
	s.publisher.Publish(model.BillingEvent{
		Type:          eventType,
		EntityID:      payment.ID,
		InstitutionID: payment.InstitutionID,
		Status:        string(payment.Status),
		OccurredAt:    timeNow(),
	})
}
