package video

import (
	"errors"
	"fmt"
	"time"
)

// TrackedVideo is the per-(asset, context) tracking record.
type TrackedVideo struct {
	AssetID     string    `json:"asset_id"`
	ContextID   string    `json:"context_id"`
	RemoteID    string    `json:"remote_id"`
	Status      Status    `json:"status"`
	RemoteURL   string    `json:"remote_url"`
	PictureURL  string    `json:"picture_url"`
	ErrorDetail string    `json:"error_detail"`
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`
	Owner       string    `json:"owner,omitempty"` // empty when unknown
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Key identifies a record.
type Key struct {
	AssetID   string
	ContextID string
}

func (k Key) String() string {
	return k.ContextID + "/" + k.AssetID
}

// Key returns the unique identity of v.
func (v TrackedVideo) Key() Key {
	return Key{AssetID: v.AssetID, ContextID: v.ContextID}
}

// Validate checks the record invariants.
func (v TrackedVideo) Validate() error {
	if v.AssetID == "" {
		return errors.New("asset id is required")
	}
	if v.ContextID == "" {
		return errors.New("context id is required")
	}
	if !v.Status.Valid() {
		return ErrUnknownStatus{Value: string(v.Status)}
	}
	if v.Status.RequiresRemoteID() && v.RemoteID == "" {
		return fmt.Errorf("status %s requires a remote id", v.Status)
	}
	return nil
}

// Entry is one catalog entry handed to the upload pipeline and the per-entry
// result it returns. Status is a free string on input: only
// "upload_completed" marks an entry as ready.
type Entry struct {
	AssetID  string `json:"asset_id"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	RemoteID string `json:"remote_id,omitempty"`
}

// Ready reports whether the catalog marked this entry for upload.
func (e Entry) Ready() bool {
	return e.Status == string(StatusUploadCompleted)
}
