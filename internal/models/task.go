package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "PENDING"
	ModerationApproved ModerationStatus = "APPROVED"
	ModerationRejected ModerationStatus = "REJECTED"
	ModerationRevision ModerationStatus = "REVISION"
)

type TaskStatus string

const (
	TaskOpen   TaskStatus = "OPEN"
	TaskClosed TaskStatus = "CLOSED"
)

type BudgetType string

const (
	BudgetFixed      BudgetType = "FIXED"
	BudgetNegotiable BudgetType = "NEGOTIABLE"
)

// MaxTaskImages caps the attached image set per task.
const MaxTaskImages = 3

type Task struct {
	ID      uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`

	MarketplaceTargets StringList `json:"marketplace_targets" gorm:"type:text;not null"`
	CategoryID         uuid.UUID  `json:"category_id" gorm:"type:uuid;not null;index"`
	Title              string     `json:"title" gorm:"not null"`
	Description        string     `json:"description" gorm:"not null"`
	BudgetAmount       *int64     `json:"budget_amount"`
	BudgetType         BudgetType `json:"budget_type" gorm:"not null;default:'NEGOTIABLE'"`
	Images             StringList `json:"images" gorm:"type:text"`

	Status TaskStatus `json:"status" gorm:"not null;default:'OPEN';index"`

	// ModerationStatus is nullable: rows created before the moderation gate
	// existed carry NULL and are treated as approved (see IsLegacyApproved).
	ModerationStatus  *ModerationStatus `json:"moderation_status" gorm:"type:text;index"`
	ModerationComment *string           `json:"moderation_comment"`
	ModeratedAt       *time.Time        `json:"moderated_at"`
	ModeratedBy       *uuid.UUID        `json:"moderated_by" gorm:"type:uuid"`

	// CreatedInMode records which marketplace role the author was browsing
	// under. Used for catalog partitioning only, not access control.
	CreatedInMode string `json:"created_in_mode" gorm:"not null;default:'requester';index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tags      []Tag              `json:"tags,omitempty" gorm:"many2many:task_tags;constraint:OnDelete:CASCADE"`
	History   []TaskHistoryEntry `json:"-" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Responses []TaskResponse     `json:"-" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// IsLegacyApproved names the backward-compatibility rule: tasks persisted
// before moderation existed have no status and count as approved.
func IsLegacyApproved(status *ModerationStatus) bool {
	return status == nil
}

// PubliclyVisible reports whether the task belongs in the public catalog.
func (t *Task) PubliclyVisible() bool {
	return IsLegacyApproved(t.ModerationStatus) || *t.ModerationStatus == ModerationApproved
}

// AwaitingModeration reports whether a moderation decision may still be made.
func (t *Task) AwaitingModeration() bool {
	if t.ModerationStatus == nil {
		return false
	}
	return *t.ModerationStatus == ModerationPending || *t.ModerationStatus == ModerationRevision
}

// TagIDs returns the ids of the loaded tag associations.
func (t *Task) TagIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.Tags))
	for _, tag := range t.Tags {
		ids = append(ids, tag.ID)
	}
	return ids
}

// TaskResponse is a performer's reply to a posted task. Deleted together
// with the task.
type TaskResponse struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID      uuid.UUID `json:"task_id" gorm:"type:uuid;not null;index"`
	PerformerID uuid.UUID `json:"performer_id" gorm:"type:uuid;not null;index"`
	Message     string    `json:"message"`
	Price       *int64    `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}
