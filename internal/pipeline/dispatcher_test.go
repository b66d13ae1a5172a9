package pipeline

import (
	"context"
	"fmt"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posterforge/posterforge/internal/badges"
	"github.com/posterforge/posterforge/internal/compositor"
	"github.com/posterforge/posterforge/internal/models"
	"github.com/posterforge/posterforge/internal/settings"
)

// fakeProcessor stamps nothing; it either fails, reports no data, or
// copies the poster forward as a successful badge application.
type fakeProcessor struct {
	badgeType models.BadgeType
	fail      bool
	noData    bool
	comp      *compositor.Compositor
	calls     []badges.Request
}

func (p *fakeProcessor) Type() models.BadgeType { return p.badgeType }

func (p *fakeProcessor) Process(ctx context.Context, req badges.Request) models.PosterResult {
	p.calls = append(p.calls, req)
	if p.fail {
		return models.PosterResult{SourcePath: req.PosterPath, Success: false, Err: fmt.Errorf("boom")}
	}
	if p.noData {
		return models.PosterResult{SourcePath: req.PosterPath, Success: true}
	}
	badge := imaging.New(40, 40, color.NRGBA{R: 255, A: 255})
	general := settings.GeneralSection{BadgePosition: "top-right", EdgePadding: 10}
	out, err := p.comp.ApplyBadge(req.PosterPath, badge, p.badgeType, general, req.OutputPath)
	if err != nil {
		return models.PosterResult{SourcePath: req.PosterPath, Success: false, Err: err}
	}
	return models.PosterResult{
		SourcePath:    req.PosterPath,
		OutputPath:    out,
		AppliedBadges: []string{string(p.badgeType)},
		Success:       true,
	}
}

type fakeQueue struct {
	singles int
	bulks   int
}

func (q *fakeQueue) EnqueueSingle(models.SingleBadgeRequest) error { q.singles++; return nil }
func (q *fakeQueue) EnqueueBulk(models.BulkBadgeRequest) error     { q.bulks++; return nil }

func newTestDispatcher(t *testing.T, procs ...badges.Processor) (*Dispatcher, *compositor.Compositor) {
	comp := compositor.New(t.TempDir())
	return NewDispatcher(comp, nil, procs...), comp
}

func writePoster(t *testing.T, name string, width int) string {
	path := filepath.Join(t.TempDir(), name)
	img := imaging.New(width, width*3/2, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestProcessSingleAppliesBadgesInOrder(t *testing.T) {
	comp := compositor.New(t.TempDir())
	audio := &fakeProcessor{badgeType: models.BadgeAudio, comp: comp}
	review := &fakeProcessor{badgeType: models.BadgeReview, comp: comp}
	d := NewDispatcher(comp, nil, audio, review)
	poster := writePoster(t, "movie.jpg", 1000)

	res := d.ProcessSingle(context.Background(), models.SingleBadgeRequest{
		PosterPath: poster,
		BadgeTypes: []models.BadgeType{models.BadgeAudio, models.BadgeReview},
	})
	require.True(t, res.Success)
	assert.Equal(t, []string{"audio", "review"}, res.AppliedBadges)
	assert.Equal(t, "preview_movie.jpg", filepath.Base(res.OutputPath))
	assert.FileExists(t, res.OutputPath)

	// Only the last badge call names the final output.
	require.Len(t, audio.calls, 1)
	require.Len(t, review.calls, 1)
	assert.Empty(t, audio.calls[0].OutputPath)
	assert.Equal(t, res.OutputPath, review.calls[0].OutputPath)
	// The second badge operates on the first badge's output.
	assert.Equal(t, audio.calls[0].PosterPath, poster)
	assert.NotEqual(t, review.calls[0].PosterPath, poster)
}

func TestProcessSingleBadgeFailureIsLoggedAndSkipped(t *testing.T) {
	comp := compositor.New(t.TempDir())
	audio := &fakeProcessor{badgeType: models.BadgeAudio, fail: true, comp: comp}
	review := &fakeProcessor{badgeType: models.BadgeReview, comp: comp}
	d := NewDispatcher(comp, nil, audio, review)
	poster := writePoster(t, "movie.jpg", 1000)

	res := d.ProcessSingle(context.Background(), models.SingleBadgeRequest{
		PosterPath: poster,
		BadgeTypes: []models.BadgeType{models.BadgeAudio, models.BadgeReview},
	})
	require.True(t, res.Success, "one failed badge never fails the request")
	assert.Equal(t, []string{"review"}, res.AppliedBadges)
	assert.FileExists(t, res.OutputPath)
}

func TestProcessSingleEmptyBadgeListStillProducesPreview(t *testing.T) {
	d, _ := newTestDispatcher(t)
	poster := writePoster(t, "movie.jpg", 1000)

	res := d.ProcessSingle(context.Background(), models.SingleBadgeRequest{PosterPath: poster})
	require.True(t, res.Success)
	assert.Empty(t, res.AppliedBadges)
	assert.Equal(t, "preview_movie.jpg", filepath.Base(res.OutputPath))
	assert.FileExists(t, res.OutputPath)
}

func TestProcessSingleAllBadgesNoDataCopiesResized(t *testing.T) {
	comp := compositor.New(t.TempDir())
	audio := &fakeProcessor{badgeType: models.BadgeAudio, noData: true, comp: comp}
	d := NewDispatcher(comp, nil, audio)
	poster := writePoster(t, "movie.jpg", 2000)

	res := d.ProcessSingle(context.Background(), models.SingleBadgeRequest{
		PosterPath: poster,
		BadgeTypes: []models.BadgeType{models.BadgeAudio},
	})
	require.True(t, res.Success)
	assert.Empty(t, res.AppliedBadges)
	assert.Equal(t, "preview_movie.jpg", filepath.Base(res.OutputPath))

	resized, err := imaging.Open(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, compositor.CanonicalWidth, resized.Bounds().Dx())
}

func TestProcessBulkHonorsOutputDir(t *testing.T) {
	comp := compositor.New(t.TempDir())
	audio := &fakeProcessor{badgeType: models.BadgeAudio, comp: comp}
	d := NewDispatcher(comp, nil, audio)
	outDir := filepath.Join(t.TempDir(), "decorated")
	poster := writePoster(t, "poster.jpg", 1000)

	results := d.ProcessBulk(context.Background(), models.BulkBadgeRequest{
		PosterPaths: []string{poster},
		OutputDir:   outDir,
		BadgeTypes:  []models.BadgeType{models.BadgeAudio},
	})
	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	assert.Equal(t, filepath.Join(outDir, "preview_poster.jpg"), results[0].OutputPath)
	assert.FileExists(t, results[0].OutputPath)
}

func TestProcessBulkOutputDirWithoutAppliedBadges(t *testing.T) {
	comp := compositor.New(t.TempDir())
	noData := &fakeProcessor{badgeType: models.BadgeAudio, noData: true, comp: comp}
	d := NewDispatcher(comp, nil, noData)
	outDir := filepath.Join(t.TempDir(), "decorated")
	poster := writePoster(t, "poster.jpg", 1000)

	results := d.ProcessBulk(context.Background(), models.BulkBadgeRequest{
		PosterPaths: []string{poster},
		OutputDir:   outDir,
		BadgeTypes:  []models.BadgeType{models.BadgeAudio},
	})
	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	assert.Empty(t, results[0].AppliedBadges)
	assert.Equal(t, filepath.Join(outDir, "preview_poster.jpg"), results[0].OutputPath)
	assert.FileExists(t, results[0].OutputPath)
}

func TestBulkOutputPath(t *testing.T) {
	assert.Empty(t, bulkOutputPath("", "/posters/a.jpg"))
	assert.Equal(t, filepath.Join("/out", "preview_a.jpg"), bulkOutputPath("/out", "/posters/a.png"))
}

func TestProcessBulkEmptyIsSuccess(t *testing.T) {
	d, _ := newTestDispatcher(t)
	results := d.ProcessBulk(context.Background(), models.BulkBadgeRequest{})
	assert.Empty(t, results)
}

func TestDispatchAutoModeQueuesLargeBulk(t *testing.T) {
	d, _ := newTestDispatcher(t)
	q := &fakeQueue{}
	d.WithQueue(q)

	bulk := models.BulkBadgeRequest{PosterPaths: make([]string, 6)}
	results, err := d.Dispatch(context.Background(), models.UniversalBadgeRequest{Bulk: &bulk, Mode: models.ModeAuto})
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Equal(t, 1, q.bulks)
}

func TestDispatchAutoModeRunsSmallBulkInline(t *testing.T) {
	comp := compositor.New(t.TempDir())
	audio := &fakeProcessor{badgeType: models.BadgeAudio, comp: comp}
	d := NewDispatcher(comp, nil, audio)
	q := &fakeQueue{}
	d.WithQueue(q)

	bulk := models.BulkBadgeRequest{
		PosterPaths: []string{writePoster(t, "a.jpg", 1000), writePoster(t, "b.jpg", 1000)},
		BadgeTypes:  []models.BadgeType{models.BadgeAudio},
	}
	results, err := d.Dispatch(context.Background(), models.UniversalBadgeRequest{Bulk: &bulk, Mode: models.ModeAuto})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, q.bulks)
	for _, r := range results {
		assert.True(t, r.Success)
	}
}

func TestDispatchRejectsAmbiguousRequest(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), models.UniversalBadgeRequest{})
	assert.Error(t, err)

	_, err = d.Dispatch(context.Background(), models.UniversalBadgeRequest{
		Single: &models.SingleBadgeRequest{},
		Bulk:   &models.BulkBadgeRequest{},
	})
	assert.Error(t, err)
}

func TestResolveMode(t *testing.T) {
	d, _ := newTestDispatcher(t)

	small := models.UniversalBadgeRequest{Bulk: &models.BulkBadgeRequest{PosterPaths: make([]string, 5)}}
	assert.Equal(t, models.ModeImmediate, d.resolveMode(small))

	large := models.UniversalBadgeRequest{Bulk: &models.BulkBadgeRequest{PosterPaths: make([]string, 6)}}
	assert.Equal(t, models.ModeQueued, d.resolveMode(large))

	explicit := large
	explicit.Mode = models.ModeImmediate
	assert.Equal(t, models.ModeImmediate, d.resolveMode(explicit))
}
