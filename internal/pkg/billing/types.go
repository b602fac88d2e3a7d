package billing

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plclassificados/marketplace/app/models"
	"github.com/plclassificados/marketplace/internal/pkg/entitlements"
)

// Event types delivered by the gateway's notification service.
const (
	EventSubscriptionPreapproval = "subscription_preapproval"
	EventPayment                 = "payment"
)

// ProviderMercadoPago is the provider name stored on webhook audit rows.
const ProviderMercadoPago = "mercadopago"

// AgreementRequest is the body sent when creating a recurring agreement.
type AgreementRequest struct {
	Reason            string        `json:"reason"`
	ExternalReference string        `json:"external_reference"`
	PayerEmail        string        `json:"payer_email"`
	AutoRecurring     AutoRecurring `json:"auto_recurring"`
	BackURL           string        `json:"back_url"`
	Status            string        `json:"status"`
}

type AutoRecurring struct {
	Frequency         int     `json:"frequency"`
	FrequencyType     string  `json:"frequency_type"`
	Repetitions       int     `json:"repetitions"`
	TransactionAmount float64 `json:"transaction_amount"`
	CurrencyID        string  `json:"currency_id"`
}

// Agreement is the subset of a preapproval resource the reconciler reads.
// Raw keeps the full response for metadata columns.
type Agreement struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	InitPoint         string          `json:"init_point"`
	ExternalReference string          `json:"external_reference"`
	PayerEmail        string          `json:"payer_email"`
	DateCreated       *time.Time      `json:"date_created"`
	NextPaymentDate   *time.Time      `json:"next_payment_date"`
	Raw               json.RawMessage `json:"-"`
}

// FlexibleID accepts JSON numbers and strings and keeps the decimal text.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

func (id FlexibleID) String() string {
	return string(id)
}

type PaymentPayer struct {
	Email string `json:"email"`
}

// PaymentDetail is the subset of a payment resource the reconciler reads.
type PaymentDetail struct {
	ID                FlexibleID      `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	PaymentMethodID   string          `json:"payment_method_id"`
	PaymentTypeID     string          `json:"payment_type_id"`
	Description       string          `json:"description"`
	ExternalReference FlexibleID      `json:"external_reference"`
	Payer             PaymentPayer    `json:"payer"`
	Raw               json.RawMessage `json:"-"`
}

// WebhookDelivery is one inbound notification as received over HTTP.
type WebhookDelivery struct {
	Type       string
	ResourceID string
	Payload    []byte
	Signature  string
	RequestID  string
}

// CreateResult is returned by Service.CreateSubscription. For free plans only
// IsFree and User are set.
type CreateResult struct {
	IsFree       bool
	User         *models.User
	AgreementID  string
	InitPoint    string
	Subscription *models.Subscription
}

// StatusView is the read-only projection served by the status endpoint.
type StatusView struct {
	User         *models.User         `json:"user"`
	Plan         *models.Plan         `json:"plan"`
	Subscription *models.Subscription `json:"subscription"`
	Usage        entitlements.Usage   `json:"usage"`
}

// PaymentPage is one page of a user's payment history, newest first.
type PaymentPage struct {
	Payments []models.Payment
	Total    int64
	Page     int
	Limit    int
	Pages    int
}
