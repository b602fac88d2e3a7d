package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"

	"github.com/plclassificados/marketplace/app/models"
	"github.com/plclassificados/marketplace/internal/pkg/metrics"
)

const defaultProcessingTimeout = 60 * time.Second

// Reconciler applies gateway notifications to local subscription, payment
// and user state. Every notification is re-fetched from the gateway, so the
// notification body itself is never trusted.
type Reconciler struct {
	repo     Repository
	gateway  Gateway
	notifier Notifier
	cfg      Config
	metrics  *metrics.Metrics
	now      func() time.Time

	wg sync.WaitGroup
}

// NewReconciler wires a reconciler. notifier may be nil.
func NewReconciler(repo Repository, gateway Gateway, notifier Notifier, cfg Config) *Reconciler {
	return &Reconciler{
		repo:     repo,
		gateway:  gateway,
		notifier: notifier,
		cfg:      cfg,
		metrics:  metrics.Default(),
		now:      time.Now,
	}
}

// Dispatch processes d in the background. Errors are logged and dropped.
func (r *Reconciler) Dispatch(d WebhookDelivery) {
	r.metrics.WebhookReceived(d.Type)

	timeout := r.cfg.ProcessingTimeout
	if timeout <= 0 {
		timeout = defaultProcessingTimeout
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorf("[Webhook] Panic while processing %s %s: %v", d.Type, d.ResourceID, rec)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := r.Process(ctx, d); err != nil {
			log.Errorf("[Webhook] Failed to process %s %s: %v", d.Type, d.ResourceID, err)
		}
	}()
}

// Wait blocks until all dispatched work finished or ctx is done.
func (r *Reconciler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Process records d on the audit log, reconciles it and stores the outcome.
func (r *Reconciler) Process(ctx context.Context, d WebhookDelivery) error {
	event := &models.WebhookEvent{
		Provider:       ProviderMercadoPago,
		EventType:      d.Type,
		ResourceID:     d.ResourceID,
		PayloadJSON:    string(d.Payload),
		SignatureValid: r.signatureValid(d),
	}
	if err := r.repo.CreateWebhookEvent(ctx, event); err != nil {
		log.Warnf("[Webhook] Could not record %s %s: %v", d.Type, d.ResourceID, err)
		event = nil
	}

	err := r.HandleWebhook(ctx, d.Type, d.ResourceID)

	if event != nil {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		if mErr := r.repo.MarkWebhookProcessed(ctx, event.ID, msg); mErr != nil {
			log.Warnf("[Webhook] Could not mark event %s processed: %v", event.ID, mErr)
		}
	}
	return err
}

func (r *Reconciler) signatureValid(d WebhookDelivery) bool {
	if r.cfg.WebhookSecret == "" || d.Signature == "" {
		return false
	}
	valid := VerifyMercadoPagoSignature(d.Signature, d.RequestID, d.ResourceID, r.cfg.WebhookSecret)
	if !valid {
		log.Warnf("[Webhook] Signature mismatch for %s %s", d.Type, d.ResourceID)
	}
	return valid
}

// HandleWebhook routes a notification by type. Unknown types are ignored.
func (r *Reconciler) HandleWebhook(ctx context.Context, eventType, objectID string) error {
	id := strings.TrimSpace(objectID)
	switch eventType {
	case EventSubscriptionPreapproval, EventPayment:
		if id == "" {
			return fmt.Errorf("%w: %s notification without data.id", ErrBadRequest, eventType)
		}
	default:
		log.Infof("[Webhook] Ignoring notification type %q", eventType)
		return nil
	}

	if eventType == EventSubscriptionPreapproval {
		return r.ReconcileSubscription(ctx, id)
	}
	return r.ReconcilePayment(ctx, id)
}

// ReconcileSubscription copies the gateway's view of an agreement onto the
// local row and the owning user. Writes are unconditional, so the last
// processed notification wins.
func (r *Reconciler) ReconcileSubscription(ctx context.Context, agreementID string) error {
	agreement, err := r.gateway.GetAgreement(ctx, agreementID)
	if err != nil {
		r.metrics.GatewayError("get_agreement")
		r.metrics.Reconciled("subscription", "failed")
		return asGatewayError("get_agreement", err)
	}

	sub, err := r.repo.FindSubscriptionByAgreementID(ctx, agreementID)
	if errors.Is(err, ErrNotFound) {
		log.Warnf("[Webhook] No local subscription for agreement %s", agreementID)
		r.metrics.Reconciled("subscription", "skipped")
		return nil
	}
	if err != nil {
		r.metrics.Reconciled("subscription", "failed")
		return err
	}

	status := agreementStatus(agreement.Status)
	userFields := map[string]interface{}{
		"subscription_status": status,
	}
	if status == models.SubscriptionStatusAuthorized {
		userFields["plan_id"] = sub.PlanID
		userFields["subscription_expires_at"] = r.now().Add(entitlementPeriod)
	}

	err = r.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.UpdateSubscriptionFields(ctx, sub.ID, map[string]interface{}{
			"status":            status,
			"start_date":        agreement.DateCreated,
			"next_payment_date": agreement.NextPaymentDate,
			"metadata":          datatypes.JSON(agreement.Raw),
		}); err != nil {
			return err
		}
		return tx.UpdateUserFields(ctx, sub.UserID, userFields)
	})
	if err != nil {
		r.metrics.Reconciled("subscription", "failed")
		return err
	}

	r.metrics.Reconciled("subscription", "applied")
	log.Infof("[Webhook] Agreement %s is now %s for user %s", agreementID, status, sub.UserID)

	// Only a transition into authorized triggers the confirmation email.
	if status == models.SubscriptionStatusAuthorized && sub.Status != models.SubscriptionStatusAuthorized {
		r.notifyActivation(ctx, sub)
	}
	return nil
}

func (r *Reconciler) notifyActivation(ctx context.Context, sub *models.Subscription) {
	if r.notifier == nil {
		return
	}
	user, err := r.repo.GetUser(ctx, sub.UserID)
	if err != nil {
		log.Warnf("[Webhook] Skipping confirmation for user %s: %v", sub.UserID, err)
		return
	}
	plan, err := r.repo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		log.Warnf("[Webhook] Skipping confirmation for user %s: %v", sub.UserID, err)
		return
	}
	notify(ctx, r.notifier, user, plan)
}

// ReconcilePayment upserts the payment by its gateway id and extends the
// owner's entitlement by one period when it is approved.
func (r *Reconciler) ReconcilePayment(ctx context.Context, paymentID string) error {
	detail, err := r.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		r.metrics.GatewayError("get_payment")
		r.metrics.Reconciled("payment", "failed")
		return asGatewayError("get_payment", err)
	}

	ref := strings.TrimSpace(detail.ExternalReference.String())
	if ref == "" {
		log.Warnf("[Webhook] Payment %s has no external reference", paymentID)
		r.metrics.Reconciled("payment", "skipped")
		return nil
	}
	sub, err := r.repo.FindSubscriptionByAgreementID(ctx, ref)
	if errors.Is(err, ErrNotFound) {
		log.Warnf("[Webhook] No local subscription for payment %s (reference %s)", paymentID, ref)
		r.metrics.Reconciled("payment", "skipped")
		return nil
	}
	if err != nil {
		r.metrics.Reconciled("payment", "failed")
		return err
	}

	status, known := paymentStatus(detail.Status)
	if !known {
		log.Warnf("[Webhook] Payment %s has unknown status %q, storing as %s", paymentID, detail.Status, status)
	}

	now := r.now()
	var paidAt *time.Time
	if status == models.PaymentStatusApproved {
		paidAt = &now
	}

	payment := &models.Payment{
		SubscriptionID:    sub.ID,
		UserID:            sub.UserID,
		ExternalPaymentID: paymentID,
		Status:            status,
		StatusDetail:      detail.StatusDetail,
		Amount:            detail.TransactionAmount,
		PaymentMethod:     detail.PaymentMethodID,
		PaymentType:       detail.PaymentTypeID,
		Description:       detail.Description,
		PayerEmail:        detail.Payer.Email,
		PaidAt:            paidAt,
		Metadata:          datatypes.JSON(detail.Raw),
	}

	var newExpiry *time.Time
	err = r.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.UpsertPayment(ctx, payment); err != nil {
			return err
		}
		if status != models.PaymentStatusApproved {
			return nil
		}

		user, err := tx.GetUser(ctx, sub.UserID)
		if errors.Is(err, ErrNotFound) {
			log.Warnf("[Webhook] User %s of payment %s no longer exists, expiry not extended", sub.UserID, paymentID)
			return nil
		}
		if err != nil {
			return err
		}
		base := now
		if user.SubscriptionExpiresAt != nil {
			base = *user.SubscriptionExpiresAt
		}
		expiry := base.Add(entitlementPeriod)
		newExpiry = &expiry
		return tx.UpdateUserFields(ctx, user.ID, map[string]interface{}{
			"subscription_expires_at": expiry,
		})
	})
	if err != nil {
		r.metrics.Reconciled("payment", "failed")
		return err
	}

	r.metrics.Reconciled("payment", "applied")
	if newExpiry != nil {
		log.Infof("[Webhook] Payment %s approved, user %s entitled until %s", paymentID, sub.UserID, newExpiry.Format(time.RFC3339))
	} else {
		log.Infof("[Webhook] Payment %s stored with status %s", paymentID, status)
	}
	return nil
}
