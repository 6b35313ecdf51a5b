package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/userdir/jobs"
)

type stubEnqueuer struct {
	reasons []string
	err     error
}

func (s *stubEnqueuer) EnqueueDirectoryRefresh(ctx context.Context, reason string) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.reasons = append(s.reasons, reason)
	return &asynq.TaskInfo{ID: "task-1", Type: jobs.TaskDirectoryRefresh, Queue: jobs.QueueDefault}, nil
}

func (s *stubEnqueuer) Close() error { return nil }

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func (s stubInspector) Close() error { return nil }

func run(c *JobsCLI, args ...string) (int, string, string) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	code := c.Command(context.Background(), JobsOptions{Args: args, Stdout: stdout, Stderr: stderr})
	return code, stdout.String(), stderr.String()
}

func TestTriggerDirectoryRefresh(t *testing.T) {
	enq := &stubEnqueuer{}
	cli := &JobsCLI{client: enq}

	code, stdout, stderr := run(cli, "trigger", jobs.TaskDirectoryRefresh, "-reason", "deploy")
	require.Zero(t, code)
	require.Empty(t, stderr)
	require.Contains(t, stdout, "enqueued directory:refresh id=task-1")
	require.Equal(t, []string{"deploy"}, enq.reasons)
}

func TestTriggerDefaultsReason(t *testing.T) {
	enq := &stubEnqueuer{}
	code, _, _ := run(&JobsCLI{client: enq}, "trigger", jobs.TaskDirectoryRefresh)
	require.Zero(t, code)
	require.Equal(t, []string{"manual"}, enq.reasons)
}

func TestTriggerUnsupportedJob(t *testing.T) {
	code, _, stderr := run(&JobsCLI{client: &stubEnqueuer{}}, "trigger", "report:build")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "unsupported job report:build")
}

func TestTriggerEnqueueFailure(t *testing.T) {
	code, _, stderr := run(&JobsCLI{client: &stubEnqueuer{err: errors.New("redis down")}}, "trigger", jobs.TaskDirectoryRefresh)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "redis down")
}

func TestStatsJSON(t *testing.T) {
	cli := &JobsCLI{inspector: stubInspector{info: &asynq.QueueInfo{Pending: 3, Active: 1, Retry: 2}}}

	code, stdout, stderr := run(cli, "stats", "-json")
	require.Zero(t, code)
	require.Empty(t, stderr)

	var stats QueueStats
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	require.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 3, Active: 1, Retry: 2}, stats)
}

func TestStatsMissingQueue(t *testing.T) {
	cli := &JobsCLI{inspector: stubInspector{err: asynq.ErrQueueNotFound}}
	code, stdout, _ := run(cli, "stats")
	require.Zero(t, code)
	require.Contains(t, stdout, "queue=default pending=0")
}

func TestUsageErrors(t *testing.T) {
	cli := &JobsCLI{}
	code, _, stderr := run(cli)
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "usage:")

	code, _, _ = run(cli, "trigger")
	require.Equal(t, 2, code)

	code, _, _ = run(cli, "purge")
	require.Equal(t, 2, code)
}

func TestCommandsWithoutBackends(t *testing.T) {
	var cli *JobsCLI
	_, err := cli.Trigger(context.Background(), jobs.TaskDirectoryRefresh, "manual")
	require.Error(t, err)
	_, err = cli.InspectQueue(context.Background())
	require.Error(t, err)
}
