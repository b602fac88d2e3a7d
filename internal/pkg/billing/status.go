package billing

import (
	"strings"

	"github.com/plclassificados/marketplace/app/models"
)

// agreementStatus maps a gateway agreement status onto the local set.
// Unrecognised values fall back to pending.
func agreementStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "authorized":
		return models.SubscriptionStatusAuthorized
	case "paused":
		return models.SubscriptionStatusPaused
	case "cancelled":
		return models.SubscriptionStatusCancelled
	default:
		return models.SubscriptionStatusPending
	}
}

// paymentStatus returns status when the payments table accepts it and
// pending otherwise. ok is false for the fallback case.
func paymentStatus(status string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(status))
	if models.IsKnownPaymentStatus(s) {
		return s, true
	}
	return models.PaymentStatusPending, false
}
