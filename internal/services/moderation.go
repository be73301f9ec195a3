package services

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	"task-market/backend/internal/models"
)

type ModerationAction string

const (
	ActionApprove  ModerationAction = "APPROVE"
	ActionReject   ModerationAction = "REJECT"
	ActionRevision ModerationAction = "REVISION"
)

var actionResults = map[ModerationAction]models.ModerationStatus{
	ActionApprove:  models.ModerationApproved,
	ActionReject:   models.ModerationRejected,
	ActionRevision: models.ModerationRevision,
}

// ApplyModeration runs one moderation decision against the task in memory.
// Only tasks still awaiting a decision (PENDING or REVISION) may be
// moderated; anything else is already decided and fails with
// ErrInvalidState. The caller persists the mutated fields.
func ApplyModeration(task *models.Task, actorID uuid.UUID, action ModerationAction, comment *string) error {
	result, ok := actionResults[action]
	if !ok {
		return invalidInput("unknown moderation action %q", action)
	}
	if !task.AwaitingModeration() {
		return fmt.Errorf("task already moderated: %w", ErrInvalidState)
	}

	now := time.Now()
	task.ModerationStatus = &result
	task.ModerationComment = comment
	task.ModeratedAt = &now
	task.ModeratedBy = &actorID
	return nil
}

// ResubmitForModeration puts the task back in the review queue. It runs on
// every successful edit regardless of the prior status, which is what lets a
// REJECTED task re-enter the queue by being edited.
func ResubmitForModeration(task *models.Task) {
	pending := models.ModerationPending
	task.ModerationStatus = &pending
	task.ModerationComment = nil
	task.ModeratedAt = nil
	task.ModeratedBy = nil
}

// moderationOutcome returns the owner-facing notification content for a
// decision.
func moderationOutcome(action ModerationAction, taskTitle string, comment *string) (notifType, title, message string) {
	switch action {
	case ActionApprove:
		notifType = "task-approved"
		title = "Task approved"
		message = fmt.Sprintf("Your task %q passed moderation and is now published.", taskTitle)
	case ActionReject:
		notifType = "task-rejected"
		title = "Task rejected"
		message = fmt.Sprintf("Your task %q was rejected by moderation.", taskTitle)
	case ActionRevision:
		notifType = "task-revision"
		title = "Revision requested"
		message = fmt.Sprintf("Your task %q needs changes before it can be published.", taskTitle)
	}
	if comment != nil && *comment != "" {
		message = fmt.Sprintf("%s Moderator comment: %s", message, *comment)
	}
	return notifType, title, message
}
