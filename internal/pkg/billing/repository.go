package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/plclassificados/marketplace/app/models"
)

// Repository provides DB operations used by the billing service and reconciler.
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserWithPlan(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	UpdateUserFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error

	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	FindSubscriptionByAgreementID(ctx context.Context, agreementID string) (*models.Subscription, error)
	UpdateSubscriptionFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	CancelSubscriptionsByAgreementID(ctx context.Context, agreementID string) error
	LatestSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)

	UpsertPayment(ctx context.Context, payment *models.Payment) error
	ListPaymentsByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Payment, int64, error)

	CountActiveListings(ctx context.Context, userID uuid.UUID) (int64, error)
	CountFeaturedListingsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)

	CreateWebhookEvent(ctx context.Context, event *models.WebhookEvent) error
	MarkWebhookProcessed(ctx context.Context, id uuid.UUID, processingError string) error
}

// recentPaymentsLimit is how many payments the status view embeds.
const recentPaymentsLimit = 5

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (r *gormRepository) GetUserWithPlan(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Plan").Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (r *gormRepository) GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, notFound(err, "plan")
	}
	return &plan, nil
}

func (r *gormRepository) UpdateUserFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *gormRepository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// FindSubscriptionByAgreementID returns the newest row carrying agreementID.
func (r *gormRepository) FindSubscriptionByAgreementID(ctx context.Context, agreementID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("mp_preapproval_id = ?", agreementID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, notFound(err, "subscription")
	}
	return &sub, nil
}

func (r *gormRepository) UpdateSubscriptionFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", id).Updates(fields).Error
}

func (r *gormRepository) CancelSubscriptionsByAgreementID(ctx context.Context, agreementID string) error {
	return r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("mp_preapproval_id = ?", agreementID).
		Update("status", models.SubscriptionStatusCancelled).Error
}

// LatestSubscription returns the user's most recent subscription with its
// plan and newest payments, or nil when the user never subscribed.
func (r *gormRepository) LatestSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(recentPaymentsLimit)
		}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(1).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	return &subs[0], nil
}

// UpsertPayment inserts the payment or, when mp_payment_id already exists,
// refreshes only its status fields. payment is reloaded from the stored row.
func (r *gormRepository) UpsertPayment(ctx context.Context, payment *models.Payment) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "mp_payment_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"status_detail",
			"paid_at",
			"metadata",
			"updated_at",
		}),
	}).Create(payment).Error; err != nil {
		return err
	}

	var stored models.Payment
	if err := db.Where("mp_payment_id = ?", payment.ExternalPaymentID).First(&stored).Error; err != nil {
		return err
	}
	*payment = stored
	return nil
}

func (r *gormRepository) ListPaymentsByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Payment, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Payment{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	payments := []models.Payment{}
	err := db.Preload("Subscription.Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *gormRepository) CountActiveListings(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("user_id = ? AND status = ?", userID, models.ListingStatusActive).
		Count(&n).Error
	return n, err
}

func (r *gormRepository) CountFeaturedListingsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("user_id = ? AND featured = ? AND created_at >= ?", userID, true, since).
		Count(&n).Error
	return n, err
}

func (r *gormRepository) CreateWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uuid.UUID, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
