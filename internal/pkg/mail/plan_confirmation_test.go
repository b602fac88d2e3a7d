package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanConfirmationPaid(t *testing.T) {
	subject, body := PlanConfirmation(PlanConfirmationData{
		Name:     "Ana",
		PlanName: "Imobiliária Básico",
		Price:    "199.90",
		Period:   "monthly",
	})

	assert.Equal(t, "Seu plano Imobiliária Básico está ativo", subject)
	assert.Contains(t, body, "R$ 199.90/mês")
	assert.Contains(t, body, "Olá, Ana!")
}

func TestPlanConfirmationFreeEscapesInput(t *testing.T) {
	_, body := PlanConfirmation(PlanConfirmationData{
		Name:     "<script>",
		PlanName: "Gratuito",
		IsFree:   true,
	})

	assert.Contains(t, body, "Gratuito")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")
}
