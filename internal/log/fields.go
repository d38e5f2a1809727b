package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldRunID     = "run_id"
	FieldTaskID    = "task_id"

	FieldEvent     = "event"
	FieldComponent = "component"

	// Video record fields
	FieldAssetID   = "asset_id"
	FieldContextID = "context_id"
	FieldRemoteID  = "remote_id"
	FieldStatus    = "status"
	FieldDetail    = "detail"
	FieldOwner     = "owner"

	FieldOldStatus = "old_status"
	FieldNewStatus = "new_status"

	FieldOperation = "operation"
	FieldURL       = "url"
	FieldDuration  = "duration_ms"
)
