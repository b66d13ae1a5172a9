package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/posterforge/posterforge/internal/activity"
	"github.com/posterforge/posterforge/internal/badges"
	"github.com/posterforge/posterforge/internal/compositor"
	"github.com/posterforge/posterforge/internal/models"
	"github.com/posterforge/posterforge/internal/settings"
)

// autoQueueThreshold is the bulk size above which auto mode defers to the
// job queue.
const autoQueueThreshold = 5

// Enqueuer hands a request to the background queue. A nil enqueuer makes
// queued mode degrade to immediate processing.
type Enqueuer interface {
	EnqueueSingle(req models.SingleBadgeRequest) error
	EnqueueBulk(req models.BulkBadgeRequest) error
}

// Dispatcher routes badge requests: immediate requests run inline, queued
// ones go to the worker. Within one request badges apply strictly in
// order, each operating on the previous badge's output.
type Dispatcher struct {
	processors map[models.BadgeType]badges.Processor
	comp       *compositor.Compositor
	tracker    *activity.Tracker
	queue      Enqueuer

	db  *sql.DB
	dsn string
}

func NewDispatcher(comp *compositor.Compositor, tracker *activity.Tracker, procs ...badges.Processor) *Dispatcher {
	d := &Dispatcher{
		processors: make(map[models.BadgeType]badges.Processor, len(procs)),
		comp:       comp,
		tracker:    tracker,
	}
	for _, p := range procs {
		d.processors[p.Type()] = p
	}
	return d
}

// WithDatabase wires the session factory used by processors and the
// activity tracker. The DSN backs the second tier of the recovery ladder.
func (d *Dispatcher) WithDatabase(db *sql.DB, dsn string) *Dispatcher {
	d.db = db
	d.dsn = dsn
	return d
}

func (d *Dispatcher) WithQueue(q Enqueuer) *Dispatcher {
	d.queue = q
	return d
}

// Dispatch validates and routes a universal request. Queued requests
// return no results; their outcomes land in the activity table.
func (d *Dispatcher) Dispatch(ctx context.Context, req models.UniversalBadgeRequest) ([]models.ProcessingResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if d.resolveMode(req) == models.ModeQueued && d.queue != nil {
		if req.Single != nil {
			return nil, d.queue.EnqueueSingle(*req.Single)
		}
		return nil, d.queue.EnqueueBulk(*req.Bulk)
	}

	if req.Single != nil {
		return []models.ProcessingResult{d.ProcessSingle(ctx, *req.Single)}, nil
	}
	return d.ProcessBulk(ctx, *req.Bulk), nil
}

func (d *Dispatcher) resolveMode(req models.UniversalBadgeRequest) models.ProcessingMode {
	mode := req.Mode
	if mode == "" {
		mode = models.ModeAuto
	}
	if mode != models.ModeAuto {
		return mode
	}
	if req.Bulk != nil && len(req.Bulk.PosterPaths) > autoQueueThreshold {
		return models.ModeQueued
	}
	return models.ModeImmediate
}

// ProcessBulk iterates single requests sequentially. An empty bulk
// request yields empty results. A requested output directory names each
// poster's final path; without one, singles land in the preview dir.
func (d *Dispatcher) ProcessBulk(ctx context.Context, req models.BulkBadgeRequest) []models.ProcessingResult {
	results := make([]models.ProcessingResult, 0, len(req.PosterPaths))
	for _, posterPath := range req.PosterPaths {
		results = append(results, d.ProcessSingle(ctx, models.SingleBadgeRequest{
			PosterPath: posterPath,
			OutputPath: bulkOutputPath(req.OutputDir, posterPath),
			BadgeTypes: req.BadgeTypes,
			UseDemo:    req.UseDemo,
		}))
	}
	return results
}

// bulkOutputPath derives preview_<stem>.jpg inside the requested
// directory.
func bulkOutputPath(outputDir, posterPath string) string {
	if outputDir == "" {
		return ""
	}
	base := filepath.Base(posterPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, "preview_"+stem+".jpg")
}

// ProcessSingle runs the full per-request flow: session, activity record,
// resize, sequential badges, preview-path guarantee, cleanup. A single
// badge failure is logged and skipped; the request still produces a
// defined output.
func (d *Dispatcher) ProcessSingle(ctx context.Context, req models.SingleBadgeRequest) models.ProcessingResult {
	handle := d.tracker.Start(ctx, "decorate", req.PosterPath)

	session, closeSession := d.openSession(ctx)
	defer closeSession()

	resized, err := d.comp.Resize(req.PosterPath)
	if err != nil {
		handle.Fail(ctx, err)
		return models.ProcessingResult{SourcePath: req.PosterPath, Success: false, Err: err}
	}

	finalPath := req.OutputPath
	if finalPath == "" {
		finalPath = d.comp.PreviewPath(req.PosterPath)
	}

	current := resized
	var appliedBadges []string
	for i, badgeType := range req.BadgeTypes {
		proc, ok := d.processors[badgeType]
		if !ok {
			log.Printf("pipeline: no processor for badge type %q", badgeType)
			continue
		}

		outputPath := ""
		if i == len(req.BadgeTypes)-1 {
			outputPath = finalPath
		}
		res := proc.Process(ctx, badges.Request{
			PosterPath: current,
			OutputPath: outputPath,
			UseDemo:    req.UseDemo,
			Session:    session,
			MediaRef:   req.MediaRef,
		})
		if !res.Success {
			log.Printf("pipeline: %s badge on %s: %v", badgeType, current, res.Err)
			continue
		}
		if len(res.AppliedBadges) > 0 && res.OutputPath != "" {
			current = res.OutputPath
			appliedBadges = append(appliedBadges, res.AppliedBadges...)
		}
	}

	if len(appliedBadges) == 0 {
		// A request always owes a defined output, badge or not.
		out, err := d.comp.CopyTo(resized, req.OutputPath)
		if err != nil {
			handle.Fail(ctx, err)
			return models.ProcessingResult{SourcePath: req.PosterPath, Success: false, Err: err}
		}
		current = out
	} else if req.OutputPath == "" && !compositor.IsPreview(current) {
		target := d.comp.PreviewPath(current)
		if err := moveFile(current, target); err != nil {
			log.Printf("pipeline: move %s to preview path: %v", current, err)
		} else {
			current = target
		}
	}

	if resized != req.PosterPath && resized != current {
		if err := os.Remove(resized); err != nil && !os.IsNotExist(err) {
			log.Printf("pipeline: cleanup %s: %v", resized, err)
		}
	}

	handle.Complete(ctx, appliedBadges, current)
	return models.ProcessingResult{
		SourcePath:    req.PosterPath,
		OutputPath:    current,
		AppliedBadges: appliedBadges,
		Success:       true,
	}
}

// openSession follows the three-tier recovery ladder: a validated fresh
// connection, then a brand-new pool, then no session at all. Processors
// degrade gracefully without one.
func (d *Dispatcher) openSession(ctx context.Context) (settings.Querier, func()) {
	noop := func() {}
	if d.db == nil {
		return nil, noop
	}

	if conn, err := d.db.Conn(ctx); err == nil {
		var one int
		if err := conn.QueryRowContext(ctx, "SELECT 1").Scan(&one); err == nil {
			return conn, func() { conn.Close() }
		}
		conn.Close()
		log.Printf("pipeline: session validation failed, trying a fresh pool")
	}

	if d.dsn != "" {
		if pool, err := sql.Open("postgres", d.dsn); err == nil {
			if err := pool.PingContext(ctx); err == nil {
				return pool, func() { pool.Close() }
			}
			pool.Close()
		}
	}

	log.Printf("pipeline: no database session available, processors run degraded")
	return nil, noop
}

// moveFile renames, falling back to copy+remove across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
