package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/plclassificados/marketplace/app/models"
	"github.com/plclassificados/marketplace/app/repository"
)

type PlanController struct {
	plans repository.PlanRepository
	users repository.UserRepository
}

func NewPlanController(repos *repository.Repositories) *PlanController {
	return &PlanController{
		plans: repos.Plan,
		users: repos.User,
	}
}

// planView adds the derived billing length to the stored plan.
type planView struct {
	models.Plan
	DurationDays int `json:"duration_days"`
}

func newPlanView(p models.Plan) planView {
	return planView{Plan: p, DurationDays: p.DurationDays()}
}

// planRequest carries the admin form. Absent fields keep their stored value on update.
type planRequest struct {
	Name          *string          `json:"name"`
	Price         *decimal.Decimal `json:"price"`
	DurationDays  *int             `json:"duration_days"`
	MaxListings   *int             `json:"max_listings"`
	HighlightDays *int             `json:"highlight_days"`
	Features      json.RawMessage  `json:"features"`
	Featured      *bool            `json:"featured"`
	Type          *string          `json:"type"`
	IsActive      *bool            `json:"is_active"`
}

// features accepts either a JSON value or a string holding JSON.
func (r planRequest) features() (datatypes.JSON, bool, error) {
	raw := []byte(strings.TrimSpace(string(r.Features)))
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false, err
		}
		raw = []byte(s)
	}
	if !json.Valid(raw) {
		return nil, false, fmt.Errorf("features is not valid JSON")
	}
	return datatypes.JSON(raw), true, nil
}

func periodForDays(days int) string {
	if days >= 365 {
		return models.PlanPeriodYearly
	}
	return models.PlanPeriodMonthly
}

// HandleList returns active plans ordered by price. ?include_inactive=true
// lifts the active filter and ?type narrows to user or agency plans.
func (pc *PlanController) HandleList(c *fiber.Ctx) error {
	plans, err := pc.plans.List(repository.PlanFilter{
		Type:            strings.TrimSpace(c.Query("type")),
		IncludeInactive: c.Query("include_inactive") == "true",
	})
	if err != nil {
		return respondError(c, err)
	}

	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, newPlanView(p))
	}
	return success(c, "", views)
}

func (pc *PlanController) HandleGet(c *fiber.Ctx) error {
	plan, err := pc.plans.GetByIdentifier(c.Params("identifier"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fiber.StatusNotFound, "Plano não encontrado")
		}
		return respondError(c, err)
	}
	return success(c, "", newPlanView(*plan))
}

func (pc *PlanController) HandleCreate(c *fiber.Ctx) error {
	var req planRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Corpo da requisição inválido")
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Erro de validação",
			"errors":  []FieldError{{Field: "name", Message: "failed on required"}},
		})
	}
	features, _, err := req.features()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	name := strings.TrimSpace(*req.Name)
	slug, err := pc.plans.UniqueSlug(name, nil)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	plan := &models.Plan{
		Name:        name,
		Slug:        slug,
		Period:      models.PlanPeriodMonthly,
		Features:    features,
		AdsLimit:    1,
		Highlighted: 0,
		Type:        models.PlanTypeUser,
		IsActive:    true,
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.DurationDays != nil {
		plan.Period = periodForDays(*req.DurationDays)
	}
	if req.MaxListings != nil && *req.MaxListings != 0 {
		plan.AdsLimit = *req.MaxListings
	}
	if req.HighlightDays != nil {
		plan.Highlighted = *req.HighlightDays
	}
	if req.Featured != nil {
		plan.Featured = *req.Featured
	}
	if req.Type != nil && *req.Type != "" {
		plan.Type = *req.Type
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := plan.Validate(); err != nil {
		return respondError(c, err)
	}
	if err := pc.plans.Create(plan); err != nil {
		return respondError(c, err)
	}

	log.Infof("[Plans] Created plan %s (%s)", plan.Slug, plan.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Plano criado com sucesso",
		"data":    newPlanView(*plan),
	})
}

func (pc *PlanController) HandleUpdate(c *fiber.Ctx) error {
	plan, ok, err := pc.loadByID(c)
	if !ok {
		return err
	}

	var req planRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Corpo da requisição inválido")
	}
	features, hasFeatures, err := req.features()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != "" && name != plan.Name {
			slug, err := pc.plans.UniqueSlug(name, &plan.ID)
			if err != nil {
				return fail(c, fiber.StatusBadRequest, err.Error())
			}
			plan.Name = name
			plan.Slug = slug
		}
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.DurationDays != nil {
		plan.Period = periodForDays(*req.DurationDays)
	}
	if hasFeatures {
		plan.Features = features
	}
	if req.MaxListings != nil {
		plan.AdsLimit = *req.MaxListings
	}
	if req.HighlightDays != nil {
		plan.Highlighted = *req.HighlightDays
	}
	if req.Featured != nil {
		plan.Featured = *req.Featured
	}
	if req.Type != nil && *req.Type != "" {
		plan.Type = *req.Type
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := plan.Validate(); err != nil {
		return respondError(c, err)
	}
	if err := pc.plans.Update(plan); err != nil {
		return respondError(c, err)
	}
	return success(c, "Plano atualizado com sucesso", newPlanView(*plan))
}

// HandleDelete removes a plan nobody is on.
func (pc *PlanController) HandleDelete(c *fiber.Ctx) error {
	plan, ok, err := pc.loadByID(c)
	if !ok {
		return err
	}

	count, err := pc.users.CountByPlanID(plan.ID)
	if err != nil {
		return respondError(c, err)
	}
	if count > 0 {
		return fail(c, fiber.StatusBadRequest,
			fmt.Sprintf("Não é possível deletar. Existem %d usuários com este plano.", count))
	}

	if err := pc.plans.Delete(plan.ID); err != nil {
		return respondError(c, err)
	}
	log.Infof("[Plans] Deleted plan %s (%s)", plan.Slug, plan.ID)
	return success(c, "Plano deletado com sucesso", nil)
}

// loadByID resolves :id. When ok is false the response is already written
// and err is what the handler should return.
func (pc *PlanController) loadByID(c *fiber.Ctx) (*models.Plan, bool, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, false, fail(c, fiber.StatusNotFound, "Plano não encontrado")
	}
	plan, err := pc.plans.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fail(c, fiber.StatusNotFound, "Plano não encontrado")
		}
		return nil, false, respondError(c, err)
	}
	return plan, true, nil
}
