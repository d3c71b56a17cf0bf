package repository

import (
	"context"
	"strings"
	"time"

	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentFilter narrows payment listings. Date bounds apply to payment_date and
// therefore exclude rows whose payment_date is NULL.
type PaymentFilter struct {
	Search        string
	Status        model.PaymentStatus
	Method        model.PaymentMethod
	InstitutionID string
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	Limit         int
}

type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository
	Create(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, id string) (*model.Payment, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.Payment, error)
	List(ctx context.Context, filter PaymentFilter) ([]model.Payment, int64, error)
	Update(ctx context.Context, payment *model.Payment) error
	Delete(ctx context.Context, id string) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	return &paymentRepository{db: tx}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	logger.Debug("Creating payment in database", map[string]interface{}{
		"payment_id":     payment.ID,
		"order_id":       payment.OrderID,
		"institution_id": payment.InstitutionID,
		"amount":         payment.Amount,
	})

	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		logger.Error("Failed to create payment in database", err, map[string]interface{}{
			"payment_id": payment.ID,
			"order_id":   payment.OrderID,
		})
		return err
	}
	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, filter PaymentFilter) ([]model.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Payment{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := containsPattern(search)
		query = query.Where(
			`LOWER(institution_name) LIKE ? ESCAPE '\' OR LOWER(id) LIKE ? ESCAPE '\' OR LOWER(order_id) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Method != "" {
		query = query.Where("method = ?", filter.Method)
	}
	if filter.InstitutionID != "" {
		query = query.Where("institution_id = ?", filter.InstitutionID)
	}
	if filter.StartDate != nil {
		query = query.Where("payment_date IS NOT NULL AND payment_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("payment_date IS NOT NULL AND payment_date <= ?", *filter.EndDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count payments in database", err)
		return nil, 0, err
	}

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}

	var payments []model.Payment
	if err := query.Order("created_at DESC").Order("id DESC").Find(&payments).Error; err != nil {
		logger.Error("Failed to list payments in database", err)
		return nil, 0, err
	}

	logger.Debug("Payments listed in database", map[string]interface{}{
		"total": total,
		"count": len(payments),
		"page":  filter.Page,
	})
	return payments, total, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	if err := r.db.WithContext(ctx).Save(payment).Error; err != nil {
		logger.Error("Failed to update payment in database", err, map[string]interface{}{
			"payment_id": payment.ID,
		})
		return err
	}

	logger.Debug("Payment updated in database", map[string]interface{}{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	return nil
}

func (r *paymentRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Payment{})
	if result.Error != nil {
		logger.Error("Failed to delete payment in database", result.Error, map[string]interface{}{
			"payment_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
