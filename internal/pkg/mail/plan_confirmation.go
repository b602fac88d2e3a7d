package mail

import (
	"fmt"
	"html"
)

// PlanConfirmationData fills the plan confirmation message.
type PlanConfirmationData struct {
	Name     string
	PlanName string
	Price    string
	Period   string
	IsFree   bool
}

var periodLabels = map[string]string{
	"monthly": "mês",
	"yearly":  "ano",
}

// PlanConfirmation returns subject and HTML body for an activated plan.
func PlanConfirmation(d PlanConfirmationData) (string, string) {
	subject := fmt.Sprintf("Seu plano %s está ativo", d.PlanName)

	price := "Gratuito"
	if !d.IsFree {
		label, ok := periodLabels[d.Period]
		if !ok {
			label = d.Period
		}
		price = fmt.Sprintf("R$ %s/%s", d.Price, label)
	}

	body := fmt.Sprintf(
		"<p>Olá, %s!</p><p>O plano <strong>%s</strong> (%s) foi ativado na sua conta.</p><p>Bons negócios!</p>",
		html.EscapeString(d.Name),
		html.EscapeString(d.PlanName),
		html.EscapeString(price),
	)
	return subject, body
}
