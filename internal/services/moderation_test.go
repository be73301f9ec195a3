package services_test

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"

	"task-market/backend/internal/models"
	"task-market/backend/internal/services"
)

func taskInStatus(status *models.ModerationStatus) *models.Task {
	return &models.Task{
		ID:               uuid.Must(uuid.NewV4()),
		OwnerID:          uuid.Must(uuid.NewV4()),
		Title:            "Assemble a wardrobe",
		ModerationStatus: status,
	}
}

func statusPtr(s models.ModerationStatus) *models.ModerationStatus {
	return &s
}

func TestApplyModeration_Approve(t *testing.T) {
	task := taskInStatus(statusPtr(models.ModerationPending))
	adminID := uuid.Must(uuid.NewV4())

	err := services.ApplyModeration(task, adminID, services.ActionApprove, nil)

	assert.NoError(t, err)
	assert.Equal(t, models.ModerationApproved, *task.ModerationStatus)
	assert.Equal(t, adminID, *task.ModeratedBy)
	assert.NotNil(t, task.ModeratedAt)
	assert.Nil(t, task.ModerationComment)
}

func TestApplyModeration_RejectWithComment(t *testing.T) {
	task := taskInStatus(statusPtr(models.ModerationRevision))
	comment := "budget is unrealistic"

	err := services.ApplyModeration(task, uuid.Must(uuid.NewV4()), services.ActionReject, &comment)

	assert.NoError(t, err)
	assert.Equal(t, models.ModerationRejected, *task.ModerationStatus)
	assert.Equal(t, comment, *task.ModerationComment)
}

func TestApplyModeration_AlreadyDecided(t *testing.T) {
	for _, status := range []models.ModerationStatus{
		models.ModerationApproved,
		models.ModerationRejected,
	} {
		task := taskInStatus(statusPtr(status))

		err := services.ApplyModeration(task, uuid.Must(uuid.NewV4()), services.ActionApprove, nil)

		assert.ErrorIs(t, err, services.ErrInvalidState)
		assert.Equal(t, status, *task.ModerationStatus, "decided status must not move")
	}
}

func TestApplyModeration_LegacyRowsAreDecided(t *testing.T) {
	// Pre-moderation rows carry no status and count as approved; they can
	// only re-enter the queue through an edit.
	task := taskInStatus(nil)

	err := services.ApplyModeration(task, uuid.Must(uuid.NewV4()), services.ActionApprove, nil)

	assert.ErrorIs(t, err, services.ErrInvalidState)
	assert.Nil(t, task.ModerationStatus)
}

func TestApplyModeration_UnknownAction(t *testing.T) {
	task := taskInStatus(statusPtr(models.ModerationPending))

	err := services.ApplyModeration(task, uuid.Must(uuid.NewV4()), services.ModerationAction("ESCALATE"), nil)

	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestResubmitForModeration_ClearsDecision(t *testing.T) {
	task := taskInStatus(statusPtr(models.ModerationRejected))
	comment := "spam"
	now := task.CreatedAt
	adminID := uuid.Must(uuid.NewV4())
	task.ModerationComment = &comment
	task.ModeratedAt = &now
	task.ModeratedBy = &adminID

	services.ResubmitForModeration(task)

	assert.Equal(t, models.ModerationPending, *task.ModerationStatus)
	assert.Nil(t, task.ModerationComment)
	assert.Nil(t, task.ModeratedAt)
	assert.Nil(t, task.ModeratedBy)
}
