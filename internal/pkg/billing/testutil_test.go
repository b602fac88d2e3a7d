package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plclassificados/marketplace/app/models"
)

var fixedNow = time.Date(2024, time.March, 17, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Plan{},
		&models.User{},
		&models.Subscription{},
		&models.Payment{},
		&models.Listing{},
		&models.WebhookEvent{},
	))
	return db
}

func createPlan(t *testing.T, db *gorm.DB, slug string, price string, adsLimit, highlighted int) *models.Plan {
	t.Helper()
	p := &models.Plan{
		Name:        "Plano " + slug,
		Slug:        slug,
		Price:       decimal.RequireFromString(price),
		Period:      models.PlanPeriodMonthly,
		AdsLimit:    adsLimit,
		Highlighted: highlighted,
		Type:        models.PlanTypeUser,
		IsActive:    true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{
		Name:     "Ana Souza",
		Email:    email,
		Password: "x",
		Type:     models.USER_TYPE_USER,
		IsActive: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createSubscription(t *testing.T, db *gorm.DB, user *models.User, plan *models.Plan, agreementID string, createdAt time.Time) *models.Subscription {
	t.Helper()
	id := agreementID
	s := &models.Subscription{
		UserID:              user.ID,
		PlanID:              plan.ID,
		ExternalAgreementID: &id,
		Status:              models.SubscriptionStatusPending,
		Amount:              plan.Price,
		Frequency:           1,
		FrequencyType:       models.FrequencyTypeMonths,
		CreatedAt:           createdAt,
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

func reloadUser(t *testing.T, db *gorm.DB, id uuid.UUID) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.Where("id = ?", id).First(&u).Error)
	return &u
}

type fakeGateway struct {
	mu sync.Mutex

	nextAgreementID string
	createErr       error
	cancelErr       error

	createCalls []AgreementRequest
	cancelCalls []string
	getCalls    []string

	agreements map[string]*Agreement
	payments   map[string]*PaymentDetail
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextAgreementID: "AG1",
		agreements:      map[string]*Agreement{},
		payments:        map[string]*PaymentDetail{},
	}
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.createCalls) + len(g.cancelCalls) + len(g.getCalls)
}

func (g *fakeGateway) CreateAgreement(ctx context.Context, req AgreementRequest) (*Agreement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls = append(g.createCalls, req)
	if g.createErr != nil {
		return nil, g.createErr
	}
	raw := fmt.Sprintf(`{"id":%q,"status":"pending","init_point":"https://mp.example/checkout/%s"}`, g.nextAgreementID, g.nextAgreementID)
	return &Agreement{
		ID:        g.nextAgreementID,
		Status:    "pending",
		InitPoint: "https://mp.example/checkout/" + g.nextAgreementID,
		Raw:       []byte(raw),
	}, nil
}

func (g *fakeGateway) CancelAgreement(ctx context.Context, agreementID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelCalls = append(g.cancelCalls, agreementID)
	return g.cancelErr
}

func (g *fakeGateway) GetAgreement(ctx context.Context, agreementID string) (*Agreement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls = append(g.getCalls, agreementID)
	a, ok := g.agreements[agreementID]
	if !ok {
		return nil, &GatewayError{Op: "get_agreement", StatusCode: 404, Body: `{"message":"not found"}`}
	}
	return a, nil
}

func (g *fakeGateway) GetPayment(ctx context.Context, paymentID string) (*PaymentDetail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls = append(g.getCalls, paymentID)
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, &GatewayError{Op: "get_payment", Err: errors.New("connection refused")}
	}
	return p, nil
}

func (g *fakeGateway) setAgreement(id, status string, created, next *time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.agreements[id] = &Agreement{
		ID:              id,
		Status:          status,
		DateCreated:     created,
		NextPaymentDate: next,
		Raw:             []byte(fmt.Sprintf(`{"id":%q,"status":%q}`, id, status)),
	}
}

func (g *fakeGateway) setPayment(id, status, reference, amount string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[id] = &PaymentDetail{
		ID:                FlexibleID(id),
		Status:            status,
		StatusDetail:      status + "_detail",
		TransactionAmount: decimal.RequireFromString(amount),
		PaymentMethodID:   "pix",
		PaymentTypeID:     "bank_transfer",
		ExternalReference: FlexibleID(reference),
		Payer:             PaymentPayer{Email: "ana@example.com"},
		Raw:               []byte(fmt.Sprintf(`{"id":%q,"status":%q}`, id, status)),
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	plans []string
	err   error
}

func (n *recordingNotifier) PlanActivated(ctx context.Context, user *models.User, plan *models.Plan) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.plans = append(n.plans, plan.Slug)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.plans)
}
