package remote

import "strings"

// Remote sub-status values reported by the hosting service.
const (
	StateInProgress = "in_progress"
	StateComplete   = "complete"
	StateError      = "error"
)

// Overall video status values the service is known to report.
var knownOverallStatuses = map[string]struct{}{
	"available":          {},
	"uploading":          {},
	"transcoding":        {},
	"transcode_starting": {},
	"uploading_error":    {},
	"transcoding_error":  {},
	"quota_exceeded":     {},
	"total_cap_exceeded": {},
	"unavailable":        {},
}

// KnownOverallStatus reports whether s is part of the documented overall status set.
func KnownOverallStatus(s string) bool {
	_, ok := knownOverallStatuses[s]
	return ok
}

// Source describes the file the service should pull.
type Source struct {
	Name string // remote title, the asset id
	Size int64
	Link string // pull URL, usually the download callback
}

// UploadResult is returned by CreateUpload.
type UploadResult struct {
	RemoteID     string
	URI          string
	UploadStatus string
}

// Failed reports whether the service already flagged the upload as broken.
func (r UploadResult) Failed() bool {
	return r.UploadStatus == StateError
}

// SubStatus carries the status of one processing stage.
type SubStatus struct {
	Status string `json:"status"`
}

// File is one encoded rendition.
type File struct {
	Quality string `json:"quality"`
	Type    string `json:"type,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Link    string `json:"link"`
}

// PictureSize is one thumbnail variant.
type PictureSize struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Link   string `json:"link"`
}

// Pictures groups the thumbnail variants.
type Pictures struct {
	Sizes []PictureSize `json:"sizes"`
}

// VideoStatus is the subset of the remote video resource the core inspects.
// Upload is nil when the service returned no upload section.
type VideoStatus struct {
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	Duration  int        `json:"duration"`
	Upload    *SubStatus `json:"upload"`
	Transcode *SubStatus `json:"transcode"`
	Files     []File     `json:"files"`
	Pictures  *Pictures  `json:"pictures"`
}

// UploadStatus returns upload.status or "" when absent.
func (v *VideoStatus) UploadStatus() string {
	if v == nil || v.Upload == nil {
		return ""
	}
	return v.Upload.Status
}

// TranscodeStatus returns transcode.status or "" when absent.
func (v *VideoStatus) TranscodeStatus() string {
	if v == nil || v.Transcode == nil {
		return ""
	}
	return v.Transcode.Status
}

// acceptableQualities satisfy playback without further escalation.
var acceptableQualities = map[string]struct{}{
	"hd":     {},
	"sd":     {},
	"source": {},
}

// PlaybackLink returns the link of the first rendition with an acceptable
// quality. HLS-only renditions do not qualify.
func (v *VideoStatus) PlaybackLink() (string, bool) {
	if v == nil {
		return "", false
	}
	for _, f := range v.Files {
		if _, ok := acceptableQualities[strings.ToLower(f.Quality)]; ok && f.Link != "" {
			return f.Link, true
		}
	}
	return "", false
}

// LargestPicture returns the widest thumbnail link.
func (v *VideoStatus) LargestPicture() (string, bool) {
	if v == nil || v.Pictures == nil {
		return "", false
	}
	best := PictureSize{Width: -1}
	for _, s := range v.Pictures.Sizes {
		if s.Link != "" && s.Width > best.Width {
			best = s
		}
	}
	if best.Link == "" {
		return "", false
	}
	return best.Link, true
}
