package infra_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/chat/infra"
	"github.com/boddenberg/stylist-bfa-go/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClient struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (c *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.tasks = append(c.tasks, task)
	c.opts = append(c.opts, opts)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type(), Queue: infra.QueueMemory}, nil
}

type fakeRefresher struct {
	users []string
	err   error
}

func (r *fakeRefresher) Refresh(_ context.Context, userID string) error {
	r.users = append(r.users, userID)
	return r.err
}

func TestMemoryEnqueuer_Enqueue(t *testing.T) {
	client := &fakeClient{}
	e := infra.NewMemoryEnqueuer(client, zap.NewNop())

	require.NoError(t, e.EnqueueSummary(context.Background(), "u1"))
	require.Len(t, client.tasks, 1)
	assert.Equal(t, infra.TaskRefreshMemory, client.tasks[0].Type())

	var p infra.RefreshMemoryPayload
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &p))
	assert.Equal(t, "u1", p.UserID)

	var queue, unique bool
	for _, o := range client.opts[0] {
		switch o.Type() {
		case asynq.QueueOpt:
			queue = o.Value() == infra.QueueMemory
		case asynq.UniqueOpt:
			unique = true
		}
	}
	assert.True(t, queue, "task must go to the memory queue")
	assert.True(t, unique, "task must be unique per user")
}

func TestMemoryEnqueuer_DuplicateIsNotAnError(t *testing.T) {
	e := infra.NewMemoryEnqueuer(&fakeClient{err: asynq.ErrDuplicateTask}, zap.NewNop())
	assert.NoError(t, e.EnqueueSummary(context.Background(), "u1"))
}

func TestMemoryEnqueuer_Failure(t *testing.T) {
	e := infra.NewMemoryEnqueuer(&fakeClient{err: errors.New("dial tcp: connection refused")}, zap.NewNop())
	err := e.EnqueueSummary(context.Background(), "u1")

	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "asynq", ext.Service)
}

func TestMux_RefreshMemory(t *testing.T) {
	r := &fakeRefresher{}
	mux := infra.NewMux(r, zap.NewNop())

	payload, _ := json.Marshal(infra.RefreshMemoryPayload{UserID: "u9"})
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(infra.TaskRefreshMemory, payload)))
	assert.Equal(t, []string{"u9"}, r.users)
}

func TestMux_RefreshErrorIsRetried(t *testing.T) {
	r := &fakeRefresher{err: errors.New("llm timeout")}
	mux := infra.NewMux(r, zap.NewNop())

	payload, _ := json.Marshal(infra.RefreshMemoryPayload{UserID: "u9"})
	err := mux.ProcessTask(context.Background(), asynq.NewTask(infra.TaskRefreshMemory, payload))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestMux_BadPayloadSkipsRetry(t *testing.T) {
	r := &fakeRefresher{}
	mux := infra.NewMux(r, zap.NewNop())

	for _, payload := range [][]byte{[]byte("{not json"), []byte(`{"user_id": ""}`)} {
		err := mux.ProcessTask(context.Background(), asynq.NewTask(infra.TaskRefreshMemory, payload))
		require.Error(t, err)
		assert.True(t, errors.Is(err, asynq.SkipRetry))
	}
	assert.Empty(t, r.users)
}
