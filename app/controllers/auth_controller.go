package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plclassificados/marketplace/app/models"
	"github.com/plclassificados/marketplace/app/repository"
	"github.com/plclassificados/marketplace/internal/pkg/session"
	"github.com/plclassificados/marketplace/internal/pkg/usercontext"
)

// AccountNotifier queues the emails sent around account creation.
type AccountNotifier interface {
	Welcome(ctx context.Context, user *models.User) error
}

type AuthController struct {
	users    repository.UserRepository
	plans    repository.PlanRepository
	notifier AccountNotifier
}

// NewAuthController builds the controller; a nil notifier sends no mail.
func NewAuthController(repos *repository.Repositories, notifier AccountNotifier) *AuthController {
	return &AuthController{
		users:    repos.User,
		plans:    repos.Plan,
		notifier: notifier,
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone" validate:"max=20"`
	Type     string `json:"type" validate:"omitempty,oneof=user agency"`
	PlanID   string `json:"plan_id" validate:"omitempty,uuid"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin checks the credentials and stores the user in the session.
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Corpo da requisição inválido")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return fail(c, fiber.StatusBadRequest, "Por favor, forneça email e senha")
	}

	// notice: failures share one message so accounts cannot be enumerated
	user, err := ac.users.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fiber.StatusUnauthorized, "Credenciais inválidas")
		}
		return respondError(c, err)
	}
	if !user.CheckPassword(req.Password) {
		return fail(c, fiber.StatusUnauthorized, "Credenciais inválidas")
	}
	if !user.IsActive {
		return fail(c, fiber.StatusUnauthorized, "Usuário inativo. Entre em contato com o suporte.")
	}

	err = session.Begin(c, map[string]any{
		usercontext.KeyUserID:   user.ID.String(),
		usercontext.KeyUsername: user.Name,
		usercontext.KeyIsAdmin:  user.IsAdmin(),
	})
	if err != nil {
		return respondError(c, err)
	}

	log.Infof("[Auth] User %s logged in", user.ID)
	return success(c, "Login realizado com sucesso", fiber.Map{"user": user})
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := session.End(c); err != nil {
		return respondError(c, err)
	}
	return success(c, "Logout realizado com sucesso", nil)
}

// HandleRegister creates an account on a free plan and opens a session for it.
// Paid plans are contracted afterwards through the subscription checkout.
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Corpo da requisição inválido")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.New().Struct(req); err != nil {
		return respondError(c, err)
	}

	if _, err := ac.users.GetByEmail(req.Email); err == nil {
		return fail(c, fiber.StatusBadRequest, "Email já cadastrado")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return respondError(c, err)
	}

	plan, err := ac.registrationPlan(req.PlanID)
	if err != nil {
		if errors.Is(err, errPaidPlanAtSignup) {
			return fail(c, fiber.StatusBadRequest, "Planos pagos devem ser contratados após o cadastro")
		}
		if errors.Is(err, errUnknownPlan) {
			return fail(c, fiber.StatusBadRequest, "Plano inválido")
		}
		return respondError(c, err)
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    strings.TrimSpace(req.Phone),
		Type:     models.USER_TYPE_USER,
		IsActive: true,
	}
	if req.Type != "" {
		user.Type = req.Type
	}
	if plan != nil {
		user.PlanID = &plan.ID
		user.SubscriptionStatus = models.SubscriptionStatusAuthorized
	}
	if err := user.SetPassword(req.Password); err != nil {
		return respondError(c, err)
	}
	if err := user.Validate(); err != nil {
		return respondError(c, err)
	}
	if err := ac.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fail(c, fiber.StatusBadRequest, "Email já cadastrado")
		}
		return respondError(c, err)
	}
	user.Plan = plan

	err = session.Begin(c, map[string]any{
		usercontext.KeyUserID:   user.ID.String(),
		usercontext.KeyUsername: user.Name,
		usercontext.KeyIsAdmin:  user.IsAdmin(),
	})
	if err != nil {
		return respondError(c, err)
	}

	if ac.notifier != nil {
		if err := ac.notifier.Welcome(c.UserContext(), user); err != nil {
			log.Errorf("[Auth] Failed to queue welcome email for user %s: %v", user.ID, err)
		}
	}

	log.Infof("[Auth] User %s registered", user.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Usuário registrado com sucesso",
		"data":    fiber.Map{"user": user},
	})
}

var (
	errUnknownPlan      = errors.New("unknown plan")
	errPaidPlanAtSignup = errors.New("paid plan at signup")
)

// registrationPlan resolves the requested plan, defaulting to the free one.
// A missing free plan leaves the account without a plan.
func (ac *AuthController) registrationPlan(planID string) (*models.Plan, error) {
	if planID == "" {
		plan, err := ac.plans.GetBySlug(models.FreePlanSlug)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Auth] No %q plan configured, registering without a plan", models.FreePlanSlug)
			return nil, nil
		}
		return plan, err
	}

	id, err := uuid.Parse(planID)
	if err != nil {
		return nil, errUnknownPlan
	}
	plan, err := ac.plans.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errUnknownPlan
	}
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, errUnknownPlan
	}
	if !plan.IsFree() {
		return nil, errPaidPlanAtSignup
	}
	return plan, nil
}

// HandleMe returns the session user with the current plan.
func (ac *AuthController) HandleMe(c *fiber.Ctx) error {
	user, err := ac.users.GetByIDWithPlan(usercontext.GetUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fiber.StatusNotFound, "Usuário não encontrado")
		}
		return respondError(c, err)
	}
	return success(c, "", fiber.Map{"user": user})
}
