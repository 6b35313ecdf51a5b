package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/userdir/internal/directory"
	jobmetrics "github.com/odyssey-erp/userdir/internal/jobs"
)

type failingBumper struct{}

func (failingBumper) Bump(ctx context.Context) (int64, error) {
	return 0, errors.New("redis unavailable")
}

func TestNewDirectoryRefreshTaskDefaultsReason(t *testing.T) {
	task, err := NewDirectoryRefreshTask("")
	require.NoError(t, err)
	assert.Equal(t, TaskDirectoryRefresh, task.Type())

	var payload DirectoryRefreshPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "manual", payload.Reason)
}

func TestDirectoryRefreshJobBumpsCacheAndPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := directory.NewCache(client, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	bumped := make(chan int64, 1)
	require.NoError(t, cache.ListenForInvalidation(ctx, func(v int64) { bumped <- v }))

	job := NewDirectoryRefreshJob(cache, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewDirectoryRefreshTask("cron")
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))

	select {
	case v := <-bumped:
		assert.Equal(t, int64(2), v)
	case <-time.After(2 * time.Second):
		t.Fatal("expected bump notification")
	}
	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
}

func TestDirectoryRefreshJobSkipsMalformedPayload(t *testing.T) {
	job := NewDirectoryRefreshJob(failingBumper{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskDirectoryRefresh, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDirectoryRefreshJobReportsBumpFailure(t *testing.T) {
	job := NewDirectoryRefreshJob(failingBumper{}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewDirectoryRefreshTask("manual")
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestDirectoryRefreshJobRequiresCache(t *testing.T) {
	var job *DirectoryRefreshJob
	task, err := NewDirectoryRefreshTask("manual")
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil)
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rr.Body.String())
}
