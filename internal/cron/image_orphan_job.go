package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pos-catalog-backend/internal/images"
	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
	"github.com/angelmondragon/pos-catalog-backend/pkg/metrics"
	"go.uber.org/multierr"
)

const (
	imageOrphanJobName  = "image-orphan-sweep"
	defaultOrphanMinAge = 24 * time.Hour
)

type ImageOrphanJobParams struct {
	Logger     *logger.Logger
	Store      imageFiles
	References imageReferences
	Metrics    *metrics.CronJobMetrics
	MinAge     time.Duration
}

type imageFiles interface {
	List(ctx context.Context) ([]images.StoredFile, error)
	Remove(ctx context.Context, storedPath string) error
	Placeholder() string
}

type imageReferences interface {
	ImagePaths(ctx context.Context) ([]string, error)
}

// NewImageOrphanJob removes product image files no product row references.
// Files younger than MinAge are kept so an upload whose row has not been
// committed yet is never swept.
func NewImageOrphanJob(params ImageOrphanJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("image store required")
	}
	if params.References == nil {
		return nil, fmt.Errorf("image reference source required")
	}
	minAge := params.MinAge
	if minAge <= 0 {
		minAge = defaultOrphanMinAge
	}
	return &imageOrphanJob{
		logg:    params.Logger,
		store:   params.Store,
		refs:    params.References,
		metrics: params.Metrics,
		minAge:  minAge,
		now:     time.Now,
	}, nil
}

type imageOrphanJob struct {
	logg    *logger.Logger
	store   imageFiles
	refs    imageReferences
	metrics *metrics.CronJobMetrics
	minAge  time.Duration
	now     func() time.Time
}

func (j *imageOrphanJob) Name() string { return imageOrphanJobName }

func (j *imageOrphanJob) Run(ctx context.Context) error {
	// List files before loading references: a file saved in between is
	// younger than minAge and skipped anyway.
	files, err := j.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list image files: %w", err)
	}
	paths, err := j.refs.ImagePaths(ctx)
	if err != nil {
		return fmt.Errorf("load image references: %w", err)
	}
	referenced := make(map[string]struct{}, len(paths)+1)
	for _, p := range paths {
		referenced[p] = struct{}{}
	}
	referenced[j.store.Placeholder()] = struct{}{}

	cutoff := j.now().Add(-j.minAge)
	var (
		removed int
		tooNew  int
		errs    error
	)
	for _, file := range files {
		if _, ok := referenced[file.Path]; ok {
			continue
		}
		if file.ModTime.After(cutoff) {
			tooNew++
			continue
		}
		if err := j.store.Remove(ctx, file.Path); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("remove %s: %w", file.Path, err))
			continue
		}
		removed++
	}
	j.metrics.AddRemoved(imageOrphanJobName, removed)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"files_scanned":   len(files),
		"files_removed":   removed,
		"files_too_new":   tooNew,
		"images_in_use":   len(referenced),
		"min_age_seconds": int64(j.minAge.Seconds()),
	})
	if errs != nil {
		return fmt.Errorf("image orphan sweep: %d failures: %w", len(multierr.Errors(errs)), errs)
	}
	j.logg.Info(logCtx, "image orphan sweep complete")
	return nil
}
