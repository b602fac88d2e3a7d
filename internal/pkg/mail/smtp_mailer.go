package mail

import (
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/plclassificados/marketplace/internal/pkg/env"
)

const defaultSender = "PL Classificados <no-reply@localhost>"

// SMTPConfig is read from SMTP_* variables on every send so a reloaded
// .env takes effect without a restart.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
}

func SMTPConfigFromEnv() SMTPConfig {
	return SMTPConfig{
		Host:     env.GetEnv("SMTP_HOST", ""),
		Port:     env.GetEnv("SMTP_PORT", "587"),
		Username: env.GetEnv("SMTP_USERNAME", ""),
		Password: env.GetEnv("SMTP_PASSWORD", ""),
		Sender:   env.GetEnv("SMTP_SENDER", defaultSender),
	}
}

// SendMail delivers an HTML email through the configured SMTP relay.
func SendMail(to string, subject string, body string) error {
	cfg := SMTPConfigFromEnv()
	if cfg.Host == "" {
		return fmt.Errorf("SMTP_HOST is not configured")
	}

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	if err := smtp.SendMail(addr, auth, envelopeAddress(cfg.Sender), []string{to}, buildMessage(cfg.Sender, to, subject, body)); err != nil {
		log.Errorf("[Mail] Send to %s via %s failed: %v", to, addr, err)
		return err
	}
	log.Infof("[Mail] Sent %q to %s", subject, to)
	return nil
}

// buildMessage renders headers and body. The subject is Q-encoded since it
// usually carries accented Portuguese text.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// envelopeAddress strips a display name: "Name <a@b>" becomes "a@b".
func envelopeAddress(sender string) string {
	if i := strings.LastIndex(sender, "<"); i >= 0 {
		if j := strings.LastIndex(sender, ">"); j > i {
			return sender[i+1 : j]
		}
	}
	return strings.TrimSpace(sender)
}
