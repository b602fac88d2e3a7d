package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessageEncodesSubject(t *testing.T) {
	msg := string(buildMessage("PL <no-reply@pl.test>", "ana@example.com", "Seu plano está ativo", "<p>Olá</p>"))

	assert.Contains(t, msg, "To: ana@example.com\r\n")
	assert.Contains(t, msg, "Subject: =?UTF-8?q?")
	assert.NotContains(t, msg, "Subject: Seu plano está ativo")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>Olá</p>"))
}

func TestEnvelopeAddress(t *testing.T) {
	assert.Equal(t, "no-reply@pl.test", envelopeAddress("PL Classificados <no-reply@pl.test>"))
	assert.Equal(t, "ops@pl.test", envelopeAddress(" ops@pl.test "))
}

func TestSendMailRequiresHost(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	assert.Error(t, SendMail("ana@example.com", "x", "y"))
}
