package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/hibiken/asynq"

	"github.com/posterforge/posterforge/internal/models"
	"github.com/posterforge/posterforge/internal/pipeline"
)

// DecorateSinglePayload wraps one poster request for transport through
// Redis.
type DecorateSinglePayload struct {
	Request models.SingleBadgeRequest `json:"request"`
}

// DecorateBulkPayload wraps a bulk request.
type DecorateBulkPayload struct {
	Request models.BulkBadgeRequest `json:"request"`
}

// RegisterHandlers binds the decorate task types to the dispatcher.
func RegisterHandlers(q *Queue, d *pipeline.Dispatcher) {
	q.RegisterHandler(TaskDecoratePoster, asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		var payload DecorateSinglePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", TaskDecoratePoster, err)
		}
		res := d.ProcessSingle(ctx, payload.Request)
		if !res.Success {
			return fmt.Errorf("decorate %s: %w", payload.Request.PosterPath, res.Err)
		}
		log.Printf("Jobs: decorated %s -> %s (%s)",
			payload.Request.PosterPath, res.OutputPath, strings.Join(res.AppliedBadges, ","))
		return nil
	}))

	q.RegisterHandler(TaskDecorateBulk, asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		var payload DecorateBulkPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", TaskDecorateBulk, err)
		}
		results := d.ProcessBulk(ctx, payload.Request)
		failed := 0
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		log.Printf("Jobs: bulk decorate finished: %d posters, %d failed", len(results), failed)
		if failed == len(results) && failed > 0 {
			return fmt.Errorf("bulk decorate: all %d posters failed", failed)
		}
		return nil
	}))
}

// QueueEnqueuer adapts the queue to the dispatcher's Enqueuer interface.
// Unique IDs derive from the request contents so repeat submissions of
// the same poster collapse into one pending task.
type QueueEnqueuer struct {
	queue *Queue
}

func NewQueueEnqueuer(q *Queue) *QueueEnqueuer {
	return &QueueEnqueuer{queue: q}
}

func (e *QueueEnqueuer) EnqueueSingle(req models.SingleBadgeRequest) error {
	id := decorateTaskID("single", req.PosterPath, req.BadgeTypes)
	_, err := e.queue.EnqueueUnique(TaskDecoratePoster, DecorateSinglePayload{Request: req}, id)
	return err
}

func (e *QueueEnqueuer) EnqueueBulk(req models.BulkBadgeRequest) error {
	id := decorateTaskID("bulk", strings.Join(req.PosterPaths, "|"), req.BadgeTypes)
	_, err := e.queue.EnqueueUnique(TaskDecorateBulk, DecorateBulkPayload{Request: req}, id, asynq.Queue("low"))
	return err
}

func decorateTaskID(kind, paths string, badgeTypes []models.BadgeType) string {
	h := xxhash.New()
	h.WriteString(paths)
	for _, bt := range badgeTypes {
		h.WriteString(":")
		h.WriteString(string(bt))
	}
	return fmt.Sprintf("decorate-%s-%x", kind, h.Sum64())
}
