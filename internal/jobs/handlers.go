package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/ManuGH/vidsync/internal/duplicate"
	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/metrics"
	"github.com/ManuGH/vidsync/internal/reconcile"
	"github.com/ManuGH/vidsync/internal/upload"
	"github.com/ManuGH/vidsync/internal/video"
)

// Uploader runs upload batches. *upload.Pipeline implements it.
type Uploader interface {
	Run(ctx context.Context, b upload.Batch) ([]video.Entry, error)
}

// Duplicator duplicates tracked videos. *duplicate.Service implements it.
type Duplicator interface {
	Duplicate(ctx context.Context, assetID, src, dst, actor string) (duplicate.Outcome, error)
	DuplicateAll(ctx context.Context, src, dst, actor string) ([]duplicate.Result, error)
}

// Handlers executes queued tasks against the core components.
type Handlers struct {
	Uploader   Uploader
	Sweep      reconcile.Runner
	Duplicator Duplicator
}

// Mux registers every task type.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskUpload, h.HandleUpload)
	mux.HandleFunc(TaskSweep, h.HandleSweep)
	mux.HandleFunc(TaskDuplicate, h.HandleDuplicate)
	return mux
}

func taskContext(ctx context.Context, t *asynq.Task) context.Context {
	id, ok := asynq.GetTaskID(ctx)
	if !ok {
		id = t.Type()
	}
	return log.ContextWithJobID(ctx, id)
}

func decode(t *asynq.Task, v any) error {
	if err := json.Unmarshal(t.Payload(), v); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

func finish(jobType string, err error) error {
	if err != nil {
		metrics.IncJob(jobType, "error")
		return err
	}
	metrics.IncJob(jobType, "ok")
	return nil
}

// HandleUpload runs one upload batch.
func (h *Handlers) HandleUpload(ctx context.Context, t *asynq.Task) error {
	ctx = taskContext(ctx, t)
	var p UploadPayload
	if err := decode(t, &p); err != nil {
		return finish(TaskUpload, err)
	}
	results, err := h.Uploader.Run(ctx, p)
	if err != nil {
		return finish(TaskUpload, fmt.Errorf("%v: %w", err, asynq.SkipRetry))
	}

	logger := log.WithComponentFromContext(ctx, "jobs")
	for _, r := range results {
		logger.Info().
			Str(log.FieldAssetID, r.AssetID).
			Str(log.FieldContextID, p.ContextID).
			Str(log.FieldStatus, r.Status).
			Str(log.FieldRemoteID, r.RemoteID).
			Str(log.FieldDetail, r.Message).
			Msg("upload result")
	}
	return finish(TaskUpload, nil)
}

// HandleSweep runs one sweep.
func (h *Handlers) HandleSweep(ctx context.Context, t *asynq.Task) error {
	ctx = taskContext(ctx, t)
	var p SweepPayload
	if err := decode(t, &p); err != nil {
		return finish(TaskSweep, err)
	}
	_, err := h.Sweep.Run(ctx, p.ContextID)
	return finish(TaskSweep, err)
}

// HandleDuplicate runs one or all duplications.
func (h *Handlers) HandleDuplicate(ctx context.Context, t *asynq.Task) error {
	ctx = taskContext(ctx, t)
	var p DuplicatePayload
	if err := decode(t, &p); err != nil {
		return finish(TaskDuplicate, err)
	}
	logger := log.WithComponentFromContext(ctx, "jobs")
	if p.AssetID == "" {
		results, err := h.Duplicator.DuplicateAll(ctx, p.SourceContext, p.TargetContext, p.Actor)
		if err != nil {
			return finish(TaskDuplicate, err)
		}
		logger.Info().Int("assets", len(results)).Msg("context duplicated")
		return finish(TaskDuplicate, nil)
	}
	outcome, err := h.Duplicator.Duplicate(ctx, p.AssetID, p.SourceContext, p.TargetContext, p.Actor)
	if err != nil {
		return finish(TaskDuplicate, err)
	}
	logger.Info().Str(log.FieldAssetID, p.AssetID).Str("outcome", string(outcome)).Msg("asset duplicated")
	return finish(TaskDuplicate, nil)
}
