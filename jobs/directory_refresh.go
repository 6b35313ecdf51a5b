package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/userdir/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CacheBumper invalidates the shared directory cache.
type CacheBumper interface {
	Bump(ctx context.Context) (int64, error)
}

// DirectoryRefreshJob bumps the directory cache version. Web processes
// subscribed to the bump channel reload the collection.
type DirectoryRefreshJob struct {
	Cache   CacheBumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDirectoryRefreshJob wires dependencies for the refresh handler.
func NewDirectoryRefreshJob(cache CacheBumper, logger *slog.Logger, metrics *jobmetrics.Metrics) *DirectoryRefreshJob {
	return &DirectoryRefreshJob{
		Cache:   cache,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes directory refresh tasks.
func (j *DirectoryRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("directory refresh: handler not configured")
	}
	var payload DirectoryRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskDirectoryRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	started := j.now()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	version, err := j.Cache.Bump(ctx)
	if err != nil {
		resultErr = err
		logger.Error("bump directory cache", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddCacheBump()
	logger.Info("directory cache bumped", slog.Int64("version", version), slog.Duration("duration", j.now().Sub(started)))
	return resultErr
}

func (j *DirectoryRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDirectoryRefresh))
	}
	return slog.Default().With(slog.String("job", TaskDirectoryRefresh))
}

func (j *DirectoryRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DirectoryRefreshJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
