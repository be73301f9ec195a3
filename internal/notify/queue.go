package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"task-market/backend/internal/models"
	"task-market/backend/internal/worker"
)

// DefaultQueue is the redis list the delivery worker drains.
const DefaultQueue = "notifications"

// QueueNotifier pushes each notification onto a redis-backed job queue; the
// worker picks it up and delivers it. Enqueue failures surface to the caller
// for logging only.
type QueueNotifier struct {
	jobs  *worker.JobQueue
	queue string
}

func NewQueueNotifier(client *redis.Client, queue string) *QueueNotifier {
	if queue == "" {
		queue = DefaultQueue
	}
	return &QueueNotifier{jobs: worker.NewJobQueue(client), queue: queue}
}

func (q *QueueNotifier) Notify(ctx context.Context, n Notification) error {
	payload := map[string]interface{}{
		"recipient_id": n.RecipientID.String(),
		"role":         n.Role,
		"type":         n.Type,
		"title":        n.Title,
		"message":      n.Message,
	}
	if n.Link != nil {
		payload["link"] = *n.Link
	}
	return q.jobs.Enqueue(ctx, q.queue, worker.JobTypeNotification, payload)
}

// NewDeliveryHandler returns the worker handler that lands a queued
// notification as an inbox row. Registered in main against
// worker.JobTypeNotification.
func NewDeliveryHandler(db *gorm.DB) worker.JobHandler {
	return func(ctx context.Context, job *worker.Job) error {
		data, err := json.Marshal(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid notification payload: %w", err)
		}

		var n Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid notification payload: %w", err)
		}
		if n.RecipientID == uuid.Nil {
			return fmt.Errorf("notification payload missing recipient")
		}

		row := models.Notification{
			ID:          uuid.Must(uuid.NewV4()),
			RecipientID: n.RecipientID,
			Role:        n.Role,
			Type:        n.Type,
			Title:       n.Title,
			Message:     n.Message,
			Link:        n.Link,
		}
		return db.WithContext(ctx).Create(&row).Error
	}
}
