// Package video holds the tracked-video domain model shared by the upload
// pipeline, the reconciliation sweep and the duplication service.
package video

import (
	"fmt"
	"strings"
)

// Status is the internal lifecycle state of a tracked video.
type Status string

const (
	StatusPendingUpload           Status = "pending_upload"
	StatusRemoteUpload            Status = "remote_upload"
	StatusRemoteEncoding          Status = "remote_encoding"
	StatusUploadCompletedEncoding Status = "upload_completed_encoding"
	StatusUploadCompleted         Status = "upload_completed"
	StatusUploadFailed            Status = "upload_failed"
	StatusRemoteNotFound          Status = "remote_not_found"
	StatusRemotePatchFailed       Status = "remote_patch_failed"
)

var allStatuses = []Status{
	StatusPendingUpload,
	StatusRemoteUpload,
	StatusRemoteEncoding,
	StatusUploadCompletedEncoding,
	StatusUploadCompleted,
	StatusUploadFailed,
	StatusRemoteNotFound,
	StatusRemotePatchFailed,
}

// ErrUnknownStatus is returned by ParseStatus for strings outside the enumeration.
type ErrUnknownStatus struct {
	Value string
}

func (e ErrUnknownStatus) Error() string {
	return fmt.Sprintf("unknown video status %q", e.Value)
}

// ParseStatus maps a stored or user supplied string onto the enumeration.
func ParseStatus(s string) (Status, error) {
	v := Status(strings.TrimSpace(s))
	for _, st := range allStatuses {
		if st == v {
			return st, nil
		}
	}
	return "", ErrUnknownStatus{Value: s}
}

// AllStatuses returns the closed set of lifecycle states.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Valid reports whether s belongs to the enumeration.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

func (s Status) String() string { return string(s) }

// IsTerminal reports whether the sweep no longer advances records in this state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusUploadCompleted, StatusUploadFailed, StatusRemoteNotFound, StatusRemotePatchFailed:
		return true
	default:
		return false
	}
}

// InProgress reports whether the record is post-upload and not yet terminal.
// These are the rows the reconciliation sweep visits and the rows whose
// download callback may still be honoured.
func (s Status) InProgress() bool {
	switch s {
	case StatusRemoteUpload, StatusRemoteEncoding, StatusUploadCompletedEncoding:
		return true
	default:
		return false
	}
}

// RequiresRemoteID reports whether a record in this state must carry a remote id.
func (s Status) RequiresRemoteID() bool {
	return s != StatusPendingUpload && s != StatusUploadFailed
}

// SweepEligible is the status set scanned by the reconciliation sweep.
func SweepEligible() []Status {
	return []Status{StatusRemoteUpload, StatusRemoteEncoding, StatusUploadCompletedEncoding}
}
