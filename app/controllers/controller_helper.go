package controllers

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/plclassificados/marketplace/internal/pkg/billing"
)

// FieldError is one entry of the errors list on a 400 validation response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func success(c *fiber.Ctx, message string, data interface{}) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(body)
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// respondError maps service and store errors onto the JSON error envelope.
func respondError(c *fiber.Ctx, err error) error {
	var validationErrs validator.ValidationErrors
	var gatewayErr *billing.GatewayError

	switch {
	case errors.As(err, &validationErrs):
		fields := make([]FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fields = append(fields, FieldError{
				Field:   snakeCase(fe.Field()),
				Message: "failed on " + fe.Tag(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Erro de validação",
			"errors":  fields,
		})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fail(c, fiber.StatusBadRequest, "Registro duplicado")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fail(c, fiber.StatusBadRequest, "Referência inválida")
	case errors.Is(err, billing.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, billing.ErrBadRequest):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &gatewayErr):
		log.Errorf("[Billing] %v", err)
		return fail(c, fiber.StatusBadGateway, "Erro ao comunicar com o gateway de pagamento")
	}

	log.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
	return fail(c, fiber.StatusInternalServerError, "Erro interno do servidor")
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c *fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil || v < 1 {
		return def
	}
	return v
}
