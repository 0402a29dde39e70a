package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

type mockTasks struct{ mock.Mock }

func (m *mockTasks) Create(ctx context.Context, t *entity.FollowUpTask) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockTasks) GetByID(ctx context.Context, id string) (*entity.FollowUpTask, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*entity.FollowUpTask)
	return t, args.Error(1)
}

func (m *mockTasks) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*entity.FollowUpTask, error) {
	args := m.Called(ctx, now, lease, limit)
	list, _ := args.Get(0).([]*entity.FollowUpTask)
	return list, args.Error(1)
}

func (m *mockTasks) MarkDone(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockTasks) MarkFailed(ctx context.Context, id, lastError string, next time.Time, dead bool) error {
	return m.Called(ctx, id, lastError, next, dead).Error(0)
}

type recordingExecutor struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (e *recordingExecutor) Execute(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, id)
	return e.err
}

func (e *recordingExecutor) executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.ids...)
}

type chanQueue struct {
	ch      chan string
	failing bool
}

func (q *chanQueue) Enqueue(_ context.Context, id string) error {
	if q.failing {
		return errors.New("redis caído")
	}
	q.ch <- id
	return nil
}

func (q *chanQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case id := <-q.ch:
		return id, nil
	case <-time.After(timeout):
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func fixedNow() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestSweep_ExecutesDirectlyWithoutQueue(t *testing.T) {
	tasks := new(mockTasks)
	exec := &recordingExecutor{}
	w := NewFollowUpWorker(tasks, exec, nil, Config{BatchSize: 5, Lease: time.Minute})
	w.now = fixedNow
	ctx := context.Background()

	tasks.On("ClaimDue", ctx, fixedNow(), time.Minute, 5).
		Return([]*entity.FollowUpTask{{ID: "t1"}, {ID: "t2"}}, nil).Once()

	n := w.Sweep(ctx)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"t1", "t2"}, exec.executed())
	tasks.AssertExpectations(t)
}

func TestSweep_EnqueuesAndFallsBack(t *testing.T) {
	tasks := new(mockTasks)
	exec := &recordingExecutor{}
	q := &chanQueue{ch: make(chan string, 4)}
	w := NewFollowUpWorker(tasks, exec, q, Config{BatchSize: 5, Lease: time.Minute})
	w.now = fixedNow
	ctx := context.Background()

	tasks.On("ClaimDue", ctx, fixedNow(), time.Minute, 5).
		Return([]*entity.FollowUpTask{{ID: "t1"}}, nil)

	assert.Equal(t, 1, w.Sweep(ctx))
	assert.Empty(t, exec.executed())
	assert.Equal(t, "t1", <-q.ch)

	q.failing = true
	assert.Equal(t, 1, w.Sweep(ctx))
	assert.Equal(t, []string{"t1"}, exec.executed())
}

func TestSweep_ClaimError(t *testing.T) {
	tasks := new(mockTasks)
	exec := &recordingExecutor{}
	w := NewFollowUpWorker(tasks, exec, nil, Config{})
	w.now = fixedNow
	tasks.On("ClaimDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("db caída"))

	assert.Equal(t, 0, w.Sweep(context.Background()))
	assert.Empty(t, exec.executed())
}

func TestStart_ConsumesQueueUntilCanceled(t *testing.T) {
	tasks := new(mockTasks)
	tasks.On("ClaimDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil).Maybe()
	exec := &recordingExecutor{err: errors.New("smtp")}
	q := &chanQueue{ch: make(chan string, 4)}
	w := NewFollowUpWorker(tasks, exec, q, Config{Workers: 2, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	q.ch <- "t9"

	assert.Eventually(t, func() bool { return len(exec.executed()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	w.Wait()
	assert.Equal(t, []string{"t9"}, exec.executed())
}
