package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// TaskHistoryEntry is an immutable audit record of one edit: the full
// before/after snapshots of the trackable fields and the list of fields that
// actually changed. Written exactly once per mutating update, inside the same
// transaction as the task mutation, and never updated afterwards. Cascades
// with its task.
type TaskHistoryEntry struct {
	ID     uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID uuid.UUID `json:"task_id" gorm:"type:uuid;not null;index"`

	PreviousSnapshot JSONMap    `json:"previous_snapshot" gorm:"type:text;not null"`
	NewSnapshot      JSONMap    `json:"new_snapshot" gorm:"type:text;not null"`
	ChangedFields    StringList `json:"changed_fields" gorm:"type:text;not null"`

	ChangedBy uuid.UUID `json:"changed_by" gorm:"type:uuid;not null"`
	Reason    string    `json:"reason" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
}
