package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plclassificados/marketplace/app/models"
	"github.com/plclassificados/marketplace/app/repository"
	"github.com/plclassificados/marketplace/internal/pkg/billing"
	"github.com/plclassificados/marketplace/internal/pkg/database"
	"github.com/plclassificados/marketplace/internal/pkg/session"
)

// fakeMercadoPago serves the handful of gateway endpoints the app calls.
type fakeMercadoPago struct {
	mu         sync.Mutex
	agreements map[string]string
	payments   map[string]string
	cancelled  []string
}

func (f *fakeMercadoPago) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/preapproval":
		f.agreements["AG1"] = "pending"
		_, _ = io.WriteString(w, `{"id":"AG1","status":"pending","init_point":"https://mp.test/checkout/AG1"}`)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/preapproval/"):
		id := strings.TrimPrefix(r.URL.Path, "/preapproval/")
		f.cancelled = append(f.cancelled, id)
		f.agreements[id] = "cancelled"
		_, _ = fmt.Fprintf(w, `{"id":%q,"status":"cancelled"}`, id)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/preapproval/"):
		id := strings.TrimPrefix(r.URL.Path, "/preapproval/")
		status, ok := f.agreements[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"not found"}`)
			return
		}
		_, _ = fmt.Fprintf(w, `{"id":%q,"status":%q}`, id, status)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/payments/"):
		body, ok := f.payments[strings.TrimPrefix(r.URL.Path, "/v1/payments/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"not found"}`)
			return
		}
		_, _ = io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeMercadoPago) setAgreement(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agreements[id] = status
}

type recordingNotifier struct {
	mu      sync.Mutex
	welcome []string
}

func (n *recordingNotifier) Welcome(_ context.Context, user *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcome = append(n.welcome, user.Email)
	return nil
}

func (n *recordingNotifier) welcomed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.welcome...)
}

type testEnv struct {
	app        *fiber.App
	db         *gorm.DB
	reconciler *billing.Reconciler
	gateway    *fakeMercadoPago
	notifier   *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
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
	require.NoError(t, database.AutoMigrate(db))

	gw := &fakeMercadoPago{agreements: map[string]string{}, payments: map[string]string{}}
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	session.UseStore(fibersession.New())
	t.Cleanup(func() { session.UseStore(nil) })

	cfg := billing.Config{
		AccessToken:       "TEST-token",
		BaseURL:           srv.URL,
		Currency:          "BRL",
		FrontendURL:       "http://localhost:3000",
		HTTPTimeout:       5 * time.Second,
		ProcessingTimeout: 5 * time.Second,
	}
	repo := billing.NewRepository(db)
	client := billing.NewMercadoPagoClient(cfg)
	reconciler := billing.NewReconciler(repo, client, nil, cfg)

	notifier := &recordingNotifier{}

	app := fiber.New()
	InstallRouter(app, Dependencies{
		Repos:      repository.NewRepositories(db),
		Billing:    billing.NewService(repo, client, nil, cfg),
		Dispatcher: reconciler,
		Notifier:   notifier,
	})

	return &testEnv{app: app, db: db, reconciler: reconciler, gateway: gw, notifier: notifier}
}

func (e *testEnv) seedPlan(t *testing.T, slug, price string, adsLimit, highlighted int, planType string, active bool) *models.Plan {
	t.Helper()
	p := &models.Plan{
		Name:        "Plano " + slug,
		Slug:        slug,
		Price:       decimal.RequireFromString(price),
		Period:      models.PlanPeriodMonthly,
		AdsLimit:    adsLimit,
		Highlighted: highlighted,
		Type:        planType,
		IsActive:    active,
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) seedUser(t *testing.T, email, userType string) *models.User {
	t.Helper()
	u := &models.User{Name: "Ana Souza", Email: email, Type: userType, IsActive: true}
	require.NoError(t, u.SetPassword("segredo123"))
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else {
		out["text"] = string(raw)
	}
	return resp, out
}

func (e *testEnv) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/auth/login", fmt.Sprintf(`{"email":%q,"password":"segredo123"}`, email))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func (e *testEnv) waitWebhooks(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.reconciler.Wait(ctx))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "ana@example.com", models.USER_TYPE_USER)

	resp, body := e.do(t, http.MethodPost, "/api/auth/login", `{"email":"ana@example.com","password":"errada"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, _ = e.do(t, http.MethodPost, "/api/auth/login", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubscriptionRoutesRequireSession(t *testing.T) {
	e := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/subscriptions/create"},
		{http.MethodPost, "/api/subscriptions/cancel"},
		{http.MethodGet, "/api/subscriptions/status"},
		{http.MethodGet, "/api/subscriptions/payments"},
	} {
		resp, body := e.do(t, tc.method, tc.path, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, tc.path)
		assert.Equal(t, "Autenticação necessária", body["message"], tc.path)
	}
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	e := newTestEnv(t)

	for _, payload := range []string{
		`{"type":"subscription_preapproval","data":{"id":"UNKNOWN"}}`,
		`{"type":"payment","data":{"id":999}}`,
		`{"type":"plan","data":{"id":"x"}}`,
		`not json`,
		``,
	} {
		resp, body := e.do(t, http.MethodPost, "/api/subscriptions/webhook", payload)
		assert.Equal(t, http.StatusOK, resp.StatusCode, payload)
		assert.Equal(t, "OK", body["text"], payload)
	}
	e.waitWebhooks(t)

	var events int64
	require.NoError(t, e.db.Model(&models.WebhookEvent{}).Count(&events).Error)
	assert.Equal(t, int64(3), events)
}

func TestSubscriptionLifecycleThroughHTTP(t *testing.T) {
	e := newTestEnv(t)
	pro := e.seedPlan(t, "pro", "59.90", 20, 5, models.PlanTypeUser, true)
	agency := e.seedPlan(t, "agency-basic", "199.90", 50, 10, models.PlanTypeAgency, true)
	user := e.seedUser(t, "ana@example.com", models.USER_TYPE_USER)
	require.NoError(t, e.db.Model(user).Update("plan_id", pro.ID).Error)
	cookie := e.login(t, "ana@example.com")

	resp, body := e.do(t, http.MethodPost, "/api/subscriptions/create", fmt.Sprintf(`{"plan_id":%q}`, agency.ID), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "AG1", data["subscription_id"])
	assert.Equal(t, "https://mp.test/checkout/AG1", data["init_point"])

	var stored models.User
	require.NoError(t, e.db.Where("id = ?", user.ID).First(&stored).Error)
	assert.Equal(t, "AG1", stored.ExternalAgreementID)
	require.NotNil(t, stored.PlanID)
	assert.Equal(t, pro.ID, *stored.PlanID)

	e.gateway.setAgreement("AG1", "authorized")
	resp, _ = e.do(t, http.MethodPost, "/api/subscriptions/webhook", `{"type":"subscription_preapproval","data":{"id":"AG1"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	e.waitWebhooks(t)

	resp, body = e.do(t, http.MethodGet, "/api/subscriptions/status", "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	data = body["data"].(map[string]interface{})
	plan := data["plan"].(map[string]interface{})
	assert.Equal(t, "agency-basic", plan["slug"])
	current := data["current_subscription"].(map[string]interface{})
	assert.Equal(t, models.SubscriptionStatusAuthorized, current["status"])
	usage := data["usage"].(map[string]interface{})
	assert.EqualValues(t, 50, usage["max_listings"])
	assert.EqualValues(t, 10, usage["max_highlighted"])

	e.gateway.mu.Lock()
	e.gateway.payments["PAY1"] = `{"id":123456,"status":"approved","status_detail":"accredited","transaction_amount":199.90,"external_reference":"AG1","payment_method_id":"pix","payment_type_id":"bank_transfer","payer":{"email":"ana@example.com"}}`
	e.gateway.mu.Unlock()
	for i := 0; i < 2; i++ {
		resp, _ = e.do(t, http.MethodPost, "/api/subscriptions/webhook", `{"type":"payment","data":{"id":"PAY1"}}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		e.waitWebhooks(t)
	}

	resp, body = e.do(t, http.MethodGet, "/api/subscriptions/payments?page=1&limit=5", "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	payments := body["data"].([]interface{})
	require.Len(t, payments, 1)
	pagination := body["pagination"].(map[string]interface{})
	assert.EqualValues(t, 1, pagination["total"])
	assert.EqualValues(t, 1, pagination["pages"])

	resp, body = e.do(t, http.MethodPost, "/api/subscriptions/cancel", "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, []string{"AG1"}, e.gateway.cancelled)

	require.NoError(t, e.db.Where("id = ?", user.ID).First(&stored).Error)
	assert.Equal(t, models.SubscriptionStatusCancelled, stored.SubscriptionStatus)
}

func TestCreateSubscriptionErrors(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "ana@example.com", models.USER_TYPE_USER)
	cookie := e.login(t, "ana@example.com")

	resp, body := e.do(t, http.MethodPost, "/api/subscriptions/create", fmt.Sprintf(`{"plan_id":%q}`, uuid.NewString()), cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, body)

	resp, body = e.do(t, http.MethodPost, "/api/subscriptions/cancel", "", cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	assert.Empty(t, e.gateway.cancelled)
}

func TestFreePlanThroughHTTP(t *testing.T) {
	e := newTestEnv(t)
	free := e.seedPlan(t, "free", "0", 1, 0, models.PlanTypeUser, true)
	e.seedUser(t, "ana@example.com", models.USER_TYPE_USER)
	cookie := e.login(t, "ana@example.com")

	resp, body := e.do(t, http.MethodPost, "/api/subscriptions/create", fmt.Sprintf(`{"plan_id":%q}`, free.ID), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["is_free"])
	assert.Empty(t, e.gateway.agreements)
}

func TestPlanRoutes(t *testing.T) {
	e := newTestEnv(t)
	e.seedPlan(t, "pro", "59.90", 20, 5, models.PlanTypeUser, true)
	basic := e.seedPlan(t, "basic", "29.90", 5, 1, models.PlanTypeUser, true)
	e.seedPlan(t, "agency-pro", "399.90", -1, 30, models.PlanTypeAgency, true)
	e.seedPlan(t, "legacy", "9.90", 1, 0, models.PlanTypeUser, false)

	resp, body := e.do(t, http.MethodGet, "/api/plans", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	plans := body["data"].([]interface{})
	require.Len(t, plans, 3)
	first := plans[0].(map[string]interface{})
	assert.Equal(t, "basic", first["slug"])
	assert.EqualValues(t, 30, first["duration_days"])

	_, body = e.do(t, http.MethodGet, "/api/plans?type=agency", "")
	assert.Len(t, body["data"].([]interface{}), 1)

	_, body = e.do(t, http.MethodGet, "/api/plans?include_inactive=true", "")
	assert.Len(t, body["data"].([]interface{}), 4)

	resp, body = e.do(t, http.MethodGet, "/api/plans/basic", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, basic.ID.String(), body["data"].(map[string]interface{})["id"])

	resp, _ = e.do(t, http.MethodGet, "/api/plans/"+basic.ID.String(), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/plans/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlanAdminRoutes(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "ana@example.com", models.USER_TYPE_USER)
	e.seedUser(t, "admin@example.com", models.USER_TYPE_ADMIN)

	resp, _ := e.do(t, http.MethodPost, "/api/plans", `{"name":"Plano Ouro"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	userCookie := e.login(t, "ana@example.com")
	resp, _ = e.do(t, http.MethodPost, "/api/plans", `{"name":"Plano Ouro"}`, userCookie)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := e.login(t, "admin@example.com")
	resp, body := e.do(t, http.MethodPost, "/api/plans", `{"name":"Plano Ouro","price":"49.90","duration_days":365,"max_listings":10,"highlight_days":2,"features":"[\"Suporte\"]"}`, admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	created := body["data"].(map[string]interface{})
	assert.Equal(t, "plano-ouro", created["slug"])
	assert.Equal(t, models.PlanPeriodYearly, created["period"])
	assert.EqualValues(t, 365, created["duration_days"])
	assert.EqualValues(t, 10, created["ads_limit"])
	assert.Equal(t, true, created["is_active"])
	assert.Equal(t, []interface{}{"Suporte"}, created["features"])

	resp, body = e.do(t, http.MethodPost, "/api/plans", `{"name":"Plano Ouro","price":"59.90"}`, admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "plano-ouro-1", body["data"].(map[string]interface{})["slug"])

	resp, body = e.do(t, http.MethodPost, "/api/plans", `{"name":"Ruim","price":"-1"}`, admin)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errs := body["errors"].([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "price", errs[0].(map[string]interface{})["field"])

	id := created["id"].(string)
	resp, body = e.do(t, http.MethodPut, "/api/plans/"+id, `{"name":"Plano Diamante","is_active":false}`, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	updated := body["data"].(map[string]interface{})
	assert.Equal(t, "plano-diamante", updated["slug"])
	assert.Equal(t, false, updated["is_active"])
	assert.Equal(t, models.PlanPeriodYearly, updated["period"])

	planID := uuid.MustParse(id)
	require.NoError(t, e.db.Model(&models.User{}).Where("email = ?", "ana@example.com").Update("plan_id", planID).Error)
	resp, body = e.do(t, http.MethodDelete, "/api/plans/"+id, "", admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)

	require.NoError(t, e.db.Model(&models.User{}).Where("email = ?", "ana@example.com").Update("plan_id", nil).Error)
	resp, body = e.do(t, http.MethodDelete, "/api/plans/"+id, "", admin)
	assert.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, _ = e.do(t, http.MethodDelete, "/api/plans/"+id, "", admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogoutClearsSession(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "ana@example.com", models.USER_TYPE_USER)
	cookie := e.login(t, "ana@example.com")

	resp, _ := e.do(t, http.MethodGet, "/api/subscriptions/status", "", cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/auth/logout", "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/subscriptions/status", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	return nil
}

func TestRegisterAssignsFreePlan(t *testing.T) {
	e := newTestEnv(t)
	free := e.seedPlan(t, models.FreePlanSlug, "0", 3, 0, models.PlanTypeUser, true)

	resp, body := e.do(t, http.MethodPost, "/api/auth/register",
		`{"name":"Bruno Lima","email":" Bruno@Example.com ","password":"segredo123","phone":"11 98888-7777"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "Usuário registrado com sucesso", body["message"])

	user := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "bruno@example.com", user["email"])
	assert.Equal(t, models.USER_TYPE_USER, user["type"])
	assert.Equal(t, free.ID.String(), user["plan_id"])
	assert.NotContains(t, user, "password")
	assert.Equal(t, []string{"bruno@example.com"}, e.notifier.welcomed())

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	resp, body = e.do(t, http.MethodGet, "/api/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	me := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, user["id"], me["id"])
	plan := me["plan"].(map[string]interface{})
	assert.Equal(t, models.FreePlanSlug, plan["slug"])

	// the new password works for login too
	e.login(t, "bruno@example.com")
}

func TestRegisterRejections(t *testing.T) {
	e := newTestEnv(t)
	e.seedPlan(t, models.FreePlanSlug, "0", 3, 0, models.PlanTypeUser, true)
	pro := e.seedPlan(t, "pro", "59.90", 20, 5, models.PlanTypeUser, true)
	retired := e.seedPlan(t, "antigo", "0", 1, 0, models.PlanTypeUser, false)
	e.seedUser(t, "ana@example.com", models.USER_TYPE_USER)

	for _, tc := range []struct {
		name, body, message string
	}{
		{"duplicate email", `{"name":"Ana","email":"ANA@example.com","password":"segredo123"}`, "Email já cadastrado"},
		{"paid plan", fmt.Sprintf(`{"name":"Caio","email":"caio@example.com","password":"segredo123","plan_id":%q}`, pro.ID), "Planos pagos devem ser contratados após o cadastro"},
		{"inactive plan", fmt.Sprintf(`{"name":"Caio","email":"caio@example.com","password":"segredo123","plan_id":%q}`, retired.ID), "Plano inválido"},
		{"unknown plan", fmt.Sprintf(`{"name":"Caio","email":"caio@example.com","password":"segredo123","plan_id":%q}`, uuid.New()), "Plano inválido"},
		{"admin type", `{"name":"Caio","email":"caio@example.com","password":"segredo123","type":"admin"}`, "Erro de validação"},
		{"short password", `{"name":"Caio","email":"caio@example.com","password":"123"}`, "Erro de validação"},
		{"bad email", `{"name":"Caio","email":"caio","password":"segredo123"}`, "Erro de validação"},
	} {
		resp, body := e.do(t, http.MethodPost, "/api/auth/register", tc.body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tc.name)
		assert.Equal(t, tc.message, body["message"], tc.name)
	}

	var users int64
	require.NoError(t, e.db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
	assert.Empty(t, e.notifier.welcomed())
}

func TestRegisterAgencyWithoutFreePlan(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodPost, "/api/auth/register",
		`{"name":"Imobiliária Sol","email":"contato@sol.com","password":"segredo123","type":"agency"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	user := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, models.USER_TYPE_AGENCY, user["type"])
	assert.Nil(t, user["plan_id"])
}

func TestMeRequiresSession(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Autenticação necessária", body["message"])
}
