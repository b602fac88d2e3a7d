package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/plclassificados/marketplace/app/models"
	"github.com/plclassificados/marketplace/internal/pkg/entitlements"
	"github.com/plclassificados/marketplace/internal/pkg/metrics"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// Notifier receives best-effort side effects of plan activation.
type Notifier interface {
	PlanActivated(ctx context.Context, user *models.User, plan *models.Plan) error
}

// Service implements the subscription lifecycle for authenticated users.
type Service struct {
	repo     Repository
	gateway  Gateway
	notifier Notifier
	cfg      Config
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService wires a lifecycle service. notifier may be nil.
func NewService(repo Repository, gateway Gateway, notifier Notifier, cfg Config) *Service {
	return &Service{
		repo:     repo,
		gateway:  gateway,
		notifier: notifier,
		cfg:      cfg,
		metrics:  metrics.Default(),
		now:      time.Now,
	}
}

// CreateSubscription activates a free plan directly or opens a pending
// recurring agreement for a paid one.
func (s *Service) CreateSubscription(ctx context.Context, userID, planID uuid.UUID, payerEmail string) (*CreateResult, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	if plan.IsFree() {
		if err := s.repo.UpdateUserFields(ctx, user.ID, map[string]interface{}{
			"plan_id":             plan.ID,
			"subscription_status": models.SubscriptionStatusAuthorized,
		}); err != nil {
			return nil, err
		}
		user.PlanID = &plan.ID
		user.Plan = plan
		user.SubscriptionStatus = models.SubscriptionStatusAuthorized
		notify(ctx, s.notifier, user, plan)
		return &CreateResult{IsFree: true, User: user}, nil
	}

	if user.HasAgreement() {
		if err := s.gateway.CancelAgreement(ctx, user.ExternalAgreementID); err != nil {
			s.metrics.GatewayError("cancel_agreement")
			log.Warnf("[Billing] Failed to cancel previous agreement %s for user %s: %v", user.ExternalAgreementID, user.ID, err)
		}
	}

	agreement, err := s.gateway.CreateAgreement(ctx, s.agreementRequest(user, plan, payerEmail))
	if err != nil {
		s.metrics.GatewayError("create_agreement")
		return nil, asGatewayError("create_agreement", err)
	}

	agreementID := agreement.ID
	sub := &models.Subscription{
		UserID:              user.ID,
		PlanID:              plan.ID,
		ExternalAgreementID: &agreementID,
		Status:              models.SubscriptionStatusPending,
		Amount:              plan.Price,
		Frequency:           1,
		FrequencyType:       models.FrequencyTypeMonths,
		Metadata:            datatypes.JSON(agreement.Raw),
	}
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.CreateSubscription(ctx, sub); err != nil {
			return err
		}
		return tx.UpdateUserFields(ctx, user.ID, map[string]interface{}{
			"external_agreement_id": agreementID,
		})
	})
	if err != nil {
		log.Errorf("[Billing] Agreement %s created but not stored for user %s: %v", agreementID, user.ID, err)
		return nil, err
	}

	user.ExternalAgreementID = agreementID
	sub.Plan = plan
	log.Infof("[Billing] Created agreement %s for user %s on plan %s", agreementID, user.ID, plan.Slug)
	return &CreateResult{
		User:         user,
		AgreementID:  agreementID,
		InitPoint:    agreement.InitPoint,
		Subscription: sub,
	}, nil
}

func (s *Service) agreementRequest(user *models.User, plan *models.Plan, payerEmail string) AgreementRequest {
	email := strings.TrimSpace(payerEmail)
	if email == "" {
		email = user.Email
	}
	repetitions := monthlyRepetitions
	if plan.IsYearly() {
		repetitions = yearlyRepetitions
	}
	return AgreementRequest{
		Reason:            fmt.Sprintf("Assinatura %s - PL Classificados", plan.Name),
		ExternalReference: user.ID.String(),
		PayerEmail:        email,
		AutoRecurring: AutoRecurring{
			Frequency:         1,
			FrequencyType:     models.FrequencyTypeMonths,
			Repetitions:       repetitions,
			TransactionAmount: plan.Price.InexactFloat64(),
			CurrencyID:        s.cfg.currency(),
		},
		BackURL: s.cfg.BackURL(),
		Status:  models.SubscriptionStatusPending,
	}
}

// CancelSubscription cancels the user's live agreement at the gateway and
// marks every local row for it as cancelled.
func (s *Service) CancelSubscription(ctx context.Context, userID uuid.UUID) error {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasAgreement() {
		return fmt.Errorf("%w: user has no active subscription", ErrBadRequest)
	}

	agreementID := user.ExternalAgreementID
	if err := s.gateway.CancelAgreement(ctx, agreementID); err != nil {
		s.metrics.GatewayError("cancel_agreement")
		return asGatewayError("cancel_agreement", err)
	}

	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.CancelSubscriptionsByAgreementID(ctx, agreementID); err != nil {
			return err
		}
		return tx.UpdateUserFields(ctx, user.ID, map[string]interface{}{
			"subscription_status": models.SubscriptionStatusCancelled,
		})
	})
	if err != nil {
		return err
	}
	log.Infof("[Billing] Cancelled agreement %s for user %s", agreementID, user.ID)
	return nil
}

// GetSubscriptionStatus returns the user's effective plan, latest
// subscription and quota usage.
func (s *Service) GetSubscriptionStatus(ctx context.Context, userID uuid.UUID) (*StatusView, error) {
	user, err := s.repo.GetUserWithPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.LatestSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.CountActiveListings(ctx, userID)
	if err != nil {
		return nil, err
	}
	featured, err := s.repo.CountFeaturedListingsSince(ctx, userID, entitlements.MonthStart(s.now()))
	if err != nil {
		return nil, err
	}

	return &StatusView{
		User:         user,
		Plan:         user.Plan,
		Subscription: sub,
		Usage:        entitlements.NewUsage(user.Plan, active, featured),
	}, nil
}

// GetPaymentHistory pages through the user's payments, newest first.
func (s *Service) GetPaymentHistory(ctx context.Context, userID uuid.UUID, page, limit int) (*PaymentPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	payments, total, err := s.repo.ListPaymentsByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &PaymentPage{
		Payments: payments,
		Total:    total,
		Page:     page,
		Limit:    limit,
		Pages:    int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

func asGatewayError(op string, err error) error {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return err
	}
	return &GatewayError{Op: op, Err: err}
}

func notify(ctx context.Context, n Notifier, user *models.User, plan *models.Plan) {
	if n == nil {
		return
	}
	if err := n.PlanActivated(ctx, user, plan); err != nil {
		log.Warnf("[Billing] Plan confirmation for user %s not queued: %v", user.ID, err)
	}
}
