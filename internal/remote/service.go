package remote

import "context"

// Service is the set of remote operations consumed by the upload pipeline,
// the reconciliation sweep and the picture refresh.
type Service interface {
	Configured() bool
	CreateUpload(ctx context.Context, src Source) (UploadResult, error)
	GetStatus(ctx context.Context, remoteID string) (*VideoStatus, error)
	RestrictDomains(ctx context.Context, remoteID string, domains []string) error
	MoveToFolder(ctx context.Context, remoteID, folderID string) error
}

var _ Service = (*Client)(nil)
