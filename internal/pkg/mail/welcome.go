package mail

import (
	"fmt"
	"html"
)

type WelcomeData struct {
	Name string
}

// Welcome returns subject and HTML body for a newly registered user.
func Welcome(d WelcomeData) (string, string) {
	subject := "Bem-vindo ao PL Classificados"
	body := fmt.Sprintf(
		"<p>Olá, %s!</p><p>Sua conta foi criada com sucesso. Já pode publicar seus anúncios.</p><p>Bons negócios!</p>",
		html.EscapeString(d.Name),
	)
	return subject, body
}
