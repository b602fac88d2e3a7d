package controllers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"github.com/plclassificados/marketplace/internal/pkg/billing"
	"github.com/plclassificados/marketplace/internal/pkg/usercontext"
)

// WebhookDispatcher hands a gateway notification off for background processing.
type WebhookDispatcher interface {
	Dispatch(d billing.WebhookDelivery)
}

type SubscriptionController struct {
	service    *billing.Service
	dispatcher WebhookDispatcher
}

func NewSubscriptionController(service *billing.Service, dispatcher WebhookDispatcher) *SubscriptionController {
	return &SubscriptionController{
		service:    service,
		dispatcher: dispatcher,
	}
}

type createSubscriptionRequest struct {
	PlanID     string `json:"plan_id"`
	PayerEmail string `json:"payer_email"`
}

// HandleCreate starts a subscription for the logged-in user. Free plans are
// activated immediately; paid plans return the gateway checkout URL.
func (sc *SubscriptionController) HandleCreate(c *fiber.Ctx) error {
	var req createSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Corpo da requisição inválido")
	}
	planID, err := uuid.Parse(strings.TrimSpace(req.PlanID))
	if err != nil {
		return fail(c, fiber.StatusNotFound, "Plano não encontrado")
	}

	userID := usercontext.GetUserID(c)
	result, err := sc.service.CreateSubscription(c.UserContext(), userID, planID, strings.TrimSpace(req.PayerEmail))
	if err != nil {
		return respondError(c, err)
	}

	if result.IsFree {
		return success(c, "Plano gratuito ativado com sucesso", fiber.Map{
			"is_free": true,
			"user":    result.User,
		})
	}
	return success(c, "Assinatura criada com sucesso", fiber.Map{
		"subscription_id": result.AgreementID,
		"init_point":      result.InitPoint,
		"subscription":    result.Subscription,
	})
}

func (sc *SubscriptionController) HandleCancel(c *fiber.Ctx) error {
	if err := sc.service.CancelSubscription(c.UserContext(), usercontext.GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	return success(c, "Assinatura cancelada com sucesso", nil)
}

func (sc *SubscriptionController) HandleStatus(c *fiber.Ctx) error {
	view, err := sc.service.GetSubscriptionStatus(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, "", fiber.Map{
		"user":                 view.User,
		"plan":                 view.Plan,
		"current_subscription": view.Subscription,
		"usage":                view.Usage,
	})
}

func (sc *SubscriptionController) HandlePayments(c *fiber.Ctx) error {
	page, err := sc.service.GetPaymentHistory(
		c.UserContext(),
		usercontext.GetUserID(c),
		queryInt(c, "page", 1),
		queryInt(c, "limit", 10),
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    page.Payments,
		"pagination": fiber.Map{
			"total": page.Total,
			"page":  page.Page,
			"limit": page.Limit,
			"pages": page.Pages,
		},
	})
}

type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		ID billing.FlexibleID `json:"id"`
	} `json:"data"`
}

// HandleWebhook acknowledges every notification with 200 before any
// processing happens. Parsing problems are logged, never returned.
// Query and header values point into fasthttp's pooled buffers, so everything
// handed to the dispatcher is copied first.
func (sc *SubscriptionController) HandleWebhook(c *fiber.Ctx) error {
	raw := append([]byte(nil), c.BodyRaw()...)

	var body webhookBody
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			log.Warnf("[Webhook] Unparseable body: %v", err)
		}
	}
	eventType := strings.TrimSpace(body.Type)
	if eventType == "" {
		eventType = strings.TrimSpace(utils.CopyString(c.Query("type")))
	}
	resourceID := strings.TrimSpace(string(body.Data.ID))
	if resourceID == "" {
		resourceID = strings.TrimSpace(utils.CopyString(c.Query("data.id")))
	}

	if eventType != "" {
		sc.dispatcher.Dispatch(billing.WebhookDelivery{
			Type:       eventType,
			ResourceID: resourceID,
			Payload:    raw,
			Signature:  utils.CopyString(c.Get("x-signature")),
			RequestID:  utils.CopyString(c.Get("x-request-id")),
		})
	} else {
		log.Warnf("[Webhook] Notification without type ignored")
	}

	return c.Status(fiber.StatusOK).SendString("OK")
}
