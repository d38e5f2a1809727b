package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrAlreadyQueued is returned when an identical upload batch is still queued or running.
	ErrAlreadyQueued = errors.New("jobs: task already queued")
	// ErrEmptyBatch is returned for upload batches without entries.
	ErrEmptyBatch = errors.New("jobs: upload batch has no entries")
)

const uploadTimeout = 2 * time.Hour

// Queue enqueues tasks.
type Queue struct {
	client *asynq.Client
}

// NewQueue connects an asynq client.
func NewQueue(opt asynq.RedisConnOpt) *Queue {
	return &Queue{client: asynq.NewClient(opt)}
}

// Close releases the redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}

// EnqueueUpload queues an upload batch and returns its task id.
func (q *Queue) EnqueueUpload(ctx context.Context, p UploadPayload) (string, error) {
	task, opts, err := newUploadTask(p)
	if err != nil {
		return "", err
	}
	return q.enqueue(ctx, task, opts...)
}

// EnqueueSweep queues a sweep.
func (q *Queue) EnqueueSweep(ctx context.Context, p SweepPayload) (string, error) {
	task, opts, err := newSweepTask(p)
	if err != nil {
		return "", err
	}
	return q.enqueue(ctx, task, opts...)
}

// EnqueueDuplicate queues a duplication.
func (q *Queue) EnqueueDuplicate(ctx context.Context, p DuplicatePayload) (string, error) {
	task, opts, err := newDuplicateTask(p)
	if err != nil {
		return "", err
	}
	return q.enqueue(ctx, task, opts...)
}

func (q *Queue) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (string, error) {
	info, err := q.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", mapEnqueueErr(err)
	}
	return info.ID, nil
}

func mapEnqueueErr(err error) error {
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return fmt.Errorf("%w: %w", ErrAlreadyQueued, err)
	}
	return fmt.Errorf("jobs: enqueue: %w", err)
}

// UploadTaskID is the dedupe key of a batch: context, owner and first asset.
func UploadTaskID(p UploadPayload) string {
	first := ""
	if len(p.Entries) > 0 {
		first = p.Entries[0].AssetID
	}
	return strings.Join([]string{p.ContextID, p.Owner, first}, "_")
}

func newUploadTask(p UploadPayload) (*asynq.Task, []asynq.Option, error) {
	if len(p.Entries) == 0 {
		return nil, nil, ErrEmptyBatch
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, nil, err
	}
	// Uploads run at most once.
	return asynq.NewTask(TaskUpload, b), []asynq.Option{
		asynq.TaskID(UploadTaskID(p)),
		asynq.MaxRetry(0),
		asynq.Timeout(uploadTimeout),
	}, nil
}

func newSweepTask(p SweepPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, nil, err
	}
	return asynq.NewTask(TaskSweep, b), []asynq.Option{
		asynq.TaskID(ulid.Make().String()),
		asynq.Queue(QueueSweep),
		asynq.MaxRetry(0),
	}, nil
}

func newDuplicateTask(p DuplicatePayload) (*asynq.Task, []asynq.Option, error) {
	if p.SourceContext == "" || p.TargetContext == "" {
		return nil, nil, errors.New("jobs: source and target context are required")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, nil, err
	}
	return asynq.NewTask(TaskDuplicate, b), []asynq.Option{
		asynq.TaskID(ulid.Make().String()),
		asynq.MaxRetry(3),
	}, nil
}
