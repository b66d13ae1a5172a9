package activity

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tracker records request lifecycles in the activity table. All writes
// are best-effort: a failed insert logs and the pipeline carries on, so
// bookkeeping never sits on the hot path.
type Tracker struct {
	db *sql.DB
}

func NewTracker(db *sql.DB) *Tracker {
	return &Tracker{db: db}
}

// Handle is one in-flight activity record.
type Handle struct {
	id      string
	tracker *Tracker
	started time.Time
}

// Start opens an activity record for one poster request. A nil tracker
// or database degrades to a no-op handle.
func (t *Tracker) Start(ctx context.Context, kind, posterPath string) *Handle {
	h := &Handle{id: uuid.NewString(), started: time.Now()}
	if t == nil || t.db == nil {
		return h
	}
	h.tracker = t

	_, err := t.db.ExecContext(ctx,
		`INSERT INTO activity (id, kind, poster_path, status, started_at)
		 VALUES ($1, $2, $3, 'running', $4)`,
		h.id, kind, posterPath, h.started)
	if err != nil {
		log.Printf("activity: start %s: %v", h.id, err)
		h.tracker = nil
	}
	return h
}

func (h *Handle) ID() string { return h.id }

// Complete closes the record with the applied badges and output path.
func (h *Handle) Complete(ctx context.Context, appliedBadges []string, outputPath string) {
	if h.tracker == nil {
		return
	}
	_, err := h.tracker.db.ExecContext(ctx,
		`UPDATE activity
		 SET status = 'completed', applied_badges = $2, output_path = $3, finished_at = $4
		 WHERE id = $1`,
		h.id, strings.Join(appliedBadges, ","), outputPath, time.Now())
	if err != nil {
		log.Printf("activity: complete %s: %v", h.id, err)
	}
}

// Fail closes the record with an error string.
func (h *Handle) Fail(ctx context.Context, cause error) {
	if h.tracker == nil {
		return
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := h.tracker.db.ExecContext(ctx,
		`UPDATE activity
		 SET status = 'failed', error = $2, finished_at = $3
		 WHERE id = $1`,
		h.id, msg, time.Now())
	if err != nil {
		log.Printf("activity: fail %s: %v", h.id, err)
	}
}
