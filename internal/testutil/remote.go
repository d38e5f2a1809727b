package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ManuGH/vidsync/internal/remote"
)

// MockRemote is a testify mock of remote.Service.
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockRemote) CreateUpload(ctx context.Context, src remote.Source) (remote.UploadResult, error) {
	args := m.Called(ctx, src)
	return args.Get(0).(remote.UploadResult), args.Error(1)
}

func (m *MockRemote) GetStatus(ctx context.Context, remoteID string) (*remote.VideoStatus, error) {
	args := m.Called(ctx, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.VideoStatus), args.Error(1)
}

func (m *MockRemote) RestrictDomains(ctx context.Context, remoteID string, domains []string) error {
	return m.Called(ctx, remoteID, domains).Error(0)
}

func (m *MockRemote) MoveToFolder(ctx context.Context, remoteID, folderID string) error {
	return m.Called(ctx, remoteID, folderID).Error(0)
}
