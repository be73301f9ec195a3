package notify

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
)

// Notification type tags. Clients filter their inbox by these.
const (
	TypeTaskSubmitted      = "task-submitted"
	TypeTaskApproved       = "task-approved"
	TypeTaskRejected       = "task-rejected"
	TypeTaskRevision       = "task-revision"
	TypeTaskResubmitted    = "task-edited-resubmitted"
	TypeTaskDeletedByAdmin = "task-deleted-by-admin"
	TypeTaskClosed         = "task-closed"
	TypeAdminReviewNeeded  = "admin-review-needed"
)

// Notification is one emission to one recipient. Role only partitions the
// recipient's inbox view; it is not access control.
type Notification struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Role        string    `json:"role"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Link        *string   `json:"link,omitempty"`
}

// Notifier hands a notification to the delivery channel. Implementations are
// fire-and-forget from the caller's point of view: a returned error is for
// logging only and must never abort the mutation that triggered the
// notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// FanOut emits one independent notification per recipient. A failed emission
// is logged and does not block the remaining recipients.
func FanOut(ctx context.Context, notifier Notifier, log *logrus.Logger, base Notification, recipients []uuid.UUID) {
	for _, recipient := range recipients {
		n := base
		n.RecipientID = recipient
		if err := notifier.Notify(ctx, n); err != nil {
			log.WithFields(logrus.Fields{
				"recipient": recipient,
				"type":      n.Type,
			}).WithError(err).Warn("notification emission failed")
		}
	}
}
