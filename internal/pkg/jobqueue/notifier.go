package jobqueue

import (
	"context"

	"github.com/plclassificados/marketplace/app/models"
)

// Notifier turns account events into email jobs.
type Notifier struct {
	queue *Queue
}

func NewNotifier(queue *Queue) *Notifier {
	return &Notifier{queue: queue}
}

// PlanActivated enqueues the confirmation email. The error only reports
// enqueue failures; delivery happens on a worker.
func (n *Notifier) PlanActivated(ctx context.Context, user *models.User, plan *models.Plan) error {
	payload := PlanConfirmationJobPayload{
		UserID:   user.ID.String(),
		Email:    user.Email,
		Name:     user.Name,
		PlanName: plan.Name,
		PlanSlug: plan.Slug,
		Price:    plan.Price.StringFixed(2),
		Period:   plan.Period,
		IsFree:   plan.IsFree(),
	}
	_, err := n.queue.EnqueueJob(ctx, JobTypePlanConfirmationEmail, payload)
	return err
}

// Welcome enqueues the greeting sent after registration.
func (n *Notifier) Welcome(ctx context.Context, user *models.User) error {
	payload := WelcomeJobPayload{
		UserID: user.ID.String(),
		Email:  user.Email,
		Name:   user.Name,
	}
	_, err := n.queue.EnqueueJob(ctx, JobTypeWelcomeEmail, payload)
	return err
}
