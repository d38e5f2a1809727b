// Package jobs queues and handles background work on asynq.
package jobs

import "github.com/ManuGH/vidsync/internal/upload"

// Task types.
const (
	TaskUpload    = "vidsync:upload"
	TaskSweep     = "vidsync:sweep"
	TaskDuplicate = "vidsync:duplicate"
)

// Queue names.
const (
	QueueDefault = "default"
	QueueSweep   = "sweep"
)

// UploadPayload is an upload batch.
type UploadPayload = upload.Batch

// SweepPayload limits a sweep to one context when ContextID is set.
type SweepPayload struct {
	ContextID string `json:"context_id,omitempty"`
}

// DuplicatePayload duplicates one asset, or the whole source context when
// AssetID is empty.
type DuplicatePayload struct {
	AssetID       string `json:"asset_id,omitempty"`
	SourceContext string `json:"source_context"`
	TargetContext string `json:"target_context"`
	Actor         string `json:"actor,omitempty"`
}
