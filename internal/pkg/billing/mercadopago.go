package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Gateway is the payment processor as seen by the lifecycle service and
// the reconciler.
type Gateway interface {
	CreateAgreement(ctx context.Context, req AgreementRequest) (*Agreement, error)
	CancelAgreement(ctx context.Context, agreementID string) error
	GetAgreement(ctx context.Context, agreementID string) (*Agreement, error)
	GetPayment(ctx context.Context, paymentID string) (*PaymentDetail, error)
}

// MercadoPagoClient talks to the Mercado Pago REST API with a fixed access token.
type MercadoPagoClient struct {
	AccessToken string
	APIBaseURL  string

	HTTPClient *http.Client
}

// NewMercadoPagoClient builds a client from cfg. A zero HTTPTimeout means 15s.
func NewMercadoPagoClient(cfg Config) *MercadoPagoClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultMercadoPagoBaseURL
	}
	return &MercadoPagoClient{
		AccessToken: cfg.AccessToken,
		APIBaseURL:  strings.TrimRight(base, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *MercadoPagoClient) CreateAgreement(ctx context.Context, in AgreementRequest) (*Agreement, error) {
	body, err := c.do(ctx, "create_agreement", http.MethodPost, "/preapproval", in)
	if err != nil {
		return nil, err
	}
	return decodeAgreement("create_agreement", body)
}

func (c *MercadoPagoClient) CancelAgreement(ctx context.Context, agreementID string) error {
	id := strings.TrimSpace(agreementID)
	if id == "" {
		return &GatewayError{Op: "cancel_agreement", Err: errors.New("agreement id is required")}
	}
	_, err := c.do(ctx, "cancel_agreement", http.MethodPut, "/preapproval/"+url.PathEscape(id), map[string]string{
		"status": "cancelled",
	})
	return err
}

func (c *MercadoPagoClient) GetAgreement(ctx context.Context, agreementID string) (*Agreement, error) {
	id := strings.TrimSpace(agreementID)
	if id == "" {
		return nil, &GatewayError{Op: "get_agreement", Err: errors.New("agreement id is required")}
	}
	body, err := c.do(ctx, "get_agreement", http.MethodGet, "/preapproval/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeAgreement("get_agreement", body)
}

func (c *MercadoPagoClient) GetPayment(ctx context.Context, paymentID string) (*PaymentDetail, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return nil, &GatewayError{Op: "get_payment", Err: errors.New("payment id is required")}
	}
	body, err := c.do(ctx, "get_payment", http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var out PaymentDetail
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &GatewayError{Op: "get_payment", Err: fmt.Errorf("decode payment: %w", err)}
	}
	out.Raw = json.RawMessage(body)
	return &out, nil
}

func decodeAgreement(op string, body []byte) (*Agreement, error) {
	var out Agreement
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &GatewayError{Op: op, Err: fmt.Errorf("decode agreement: %w", err)}
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, &GatewayError{Op: op, Err: errors.New("response without agreement id")}
	}
	out.Raw = json.RawMessage(body)
	return &out, nil
}

func (c *MercadoPagoClient) do(ctx context.Context, op, method, path string, payload interface{}) ([]byte, error) {
	if strings.TrimSpace(c.AccessToken) == "" {
		return nil, &GatewayError{Op: op, Err: errors.New("MP_ACCESS_TOKEN is not configured")}
	}

	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, &GatewayError{Op: op, Err: err}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, reader)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
