package jobqueue

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/plclassificados/marketplace/internal/pkg/mail"
)

// processPlanConfirmationJob renders and sends the plan confirmation email.
func (q *Queue) processPlanConfirmationJob(_ context.Context, job *Job) error {
	var payload PlanConfirmationJobPayload
	if err := job.Decode(&payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if strings.TrimSpace(payload.Email) == "" {
		return fmt.Errorf("plan confirmation for user %s has no recipient", payload.UserID)
	}

	subject, body := mail.PlanConfirmation(mail.PlanConfirmationData{
		Name:     payload.Name,
		PlanName: payload.PlanName,
		Price:    payload.Price,
		Period:   payload.Period,
		IsFree:   payload.IsFree,
	})
	if err := q.sendMail(payload.Email, subject, body); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	log.Infof("[JobQueue] Plan confirmation (%s) sent to user %s", payload.PlanSlug, payload.UserID)
	return nil
}

func (q *Queue) processWelcomeJob(_ context.Context, job *Job) error {
	var payload WelcomeJobPayload
	if err := job.Decode(&payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if strings.TrimSpace(payload.Email) == "" {
		return fmt.Errorf("welcome email for user %s has no recipient", payload.UserID)
	}

	subject, body := mail.Welcome(mail.WelcomeData{Name: payload.Name})
	if err := q.sendMail(payload.Email, subject, body); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	log.Infof("[JobQueue] Welcome email sent to user %s", payload.UserID)
	return nil
}
