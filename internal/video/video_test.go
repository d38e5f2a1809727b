package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, st := range AllStatuses() {
		got, err := ParseStatus(string(st))
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}

	_, err := ParseStatus("vimeo_upload")
	var unknown ErrUnknownStatus
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "vimeo_upload", unknown.Value)
}

func TestStatusSets(t *testing.T) {
	tests := []struct {
		status     Status
		terminal   bool
		inProgress bool
	}{
		{StatusPendingUpload, false, false},
		{StatusRemoteUpload, false, true},
		{StatusRemoteEncoding, false, true},
		{StatusUploadCompletedEncoding, false, true},
		{StatusUploadCompleted, true, false},
		{StatusUploadFailed, true, false},
		{StatusRemoteNotFound, true, false},
		{StatusRemotePatchFailed, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.inProgress, tt.status.InProgress())
		})
	}
	assert.ElementsMatch(t, []Status{StatusRemoteUpload, StatusRemoteEncoding, StatusUploadCompletedEncoding}, SweepEligible())
}

func TestTrackedVideoValidate(t *testing.T) {
	v := TrackedVideo{AssetID: "a1", ContextID: "course-1", Status: StatusUploadFailed}
	assert.NoError(t, v.Validate())

	v.Status = StatusRemoteUpload
	assert.Error(t, v.Validate(), "remote_upload without remote id")

	v.RemoteID = "123"
	assert.NoError(t, v.Validate())

	v.Status = "bogus"
	assert.Error(t, v.Validate())

	assert.Error(t, TrackedVideo{ContextID: "c", Status: StatusPendingUpload}.Validate())
}

func TestEntryReady(t *testing.T) {
	assert.True(t, Entry{Status: "upload_completed"}.Ready())
	assert.False(t, Entry{Status: "file_complete"}.Ready())
	assert.False(t, Entry{}.Ready())
}
