package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Notification is a delivered in-app notification row. Rows are written by
// the delivery worker, not inside any task transaction: emission is
// best-effort and decoupled from the mutation that triggered it.
type Notification struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	RecipientID uuid.UUID `json:"recipient_id" gorm:"type:uuid;not null;index"`

	// Role partitions the client inbox (requester/performer/admin view);
	// it carries no access-control meaning.
	Role    string  `json:"role" gorm:"not null"`
	Type    string  `json:"type" gorm:"not null;index"`
	Title   string  `json:"title" gorm:"not null"`
	Message string  `json:"message" gorm:"not null"`
	Link    *string `json:"link"`

	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}
