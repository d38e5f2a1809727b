// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package reconcile advances tracked videos from remote status snapshots.
package reconcile

import (
	"time"

	"github.com/ManuGH/vidsync/internal/remote"
	"github.com/ManuGH/vidsync/internal/video"
)

// Reason classifies why a decision was taken. Used as a metrics label.
type Reason string

const (
	ReasonProcessingError   Reason = "processing_error"
	ReasonUploading         Reason = "uploading"
	ReasonEncoding          Reason = "encoding"
	ReasonCompleted         Reason = "completed"
	ReasonQualityUnresolved Reason = "quality_unresolved"
	ReasonLinksUnavailable  Reason = "links_unavailable"
	ReasonUnrecognized      Reason = "unrecognized"
	ReasonNotFound          Reason = "not_found"
	ReasonPropagationFailed Reason = "propagation_failed"
)

// Details written to error_detail.
const (
	DetailUploadError     = "video did not upload correctly."
	DetailTranscodeError  = "video was not processed correctly remotely."
	DetailUploading       = "still uploading."
	DetailMayBeProcessing = "may still be processing."
	DetailStillProcessing = "still processing."
	DetailNoLinks         = "could not obtain playback links remotely."
	DetailUnrecognized    = "was not uploaded correctly"
	DetailNotFound        = "video not found remotely."
	DetailPatchFailed     = "could not update the status in the catalog."

	overNoticeSuffix   = ", has been processing for more than 2 hours."
	overDeadlineSuffix = ", has been processing for more than 24 hours or lacks an HD-equivalent rendition."
)

// Policy holds the escalation thresholds.
type Policy struct {
	EncodingNotice   time.Duration
	EncodingDeadline time.Duration
}

// DefaultPolicy is the 2h / 24h escalation.
func DefaultPolicy() Policy {
	return Policy{EncodingNotice: 2 * time.Hour, EncodingDeadline: 24 * time.Hour}
}

type elapsedBucket int

const (
	bucketFresh elapsedBucket = iota
	bucketNotice
	bucketDeadline
)

func (p Policy) bucket(elapsed time.Duration) elapsedBucket {
	switch {
	case elapsed >= p.EncodingDeadline:
		return bucketDeadline
	case elapsed >= p.EncodingNotice:
		return bucketNotice
	default:
		return bucketFresh
	}
}

// Observation is everything a decision depends on.
type Observation struct {
	Current   video.Status
	Upload    string
	Transcode string
	Overall   string
	Link      string // first acceptable-quality link, empty when none
	HasFiles  bool
	Elapsed   time.Duration
}

// Observe builds an observation from a remote snapshot.
func Observe(current video.Status, st *remote.VideoStatus, elapsed time.Duration) Observation {
	if st == nil {
		return Observation{Current: current, Elapsed: elapsed}
	}
	link, _ := st.PlaybackLink()
	return Observation{
		Current:   current,
		Upload:    st.UploadStatus(),
		Transcode: st.TranscodeStatus(),
		Overall:   st.Status,
		Link:      link,
		HasFiles:  len(st.Files) > 0,
		Elapsed:   elapsed,
	}
}

// Decision is the outcome for one row.
type Decision struct {
	Status    video.Status
	Detail    string
	RemoteURL string // set only when a playback link was resolved
	Reason    Reason
}

type rule struct {
	name   string
	match  func(Observation, elapsedBucket) bool
	decide func(Observation) Decision
}

func fixed(status video.Status, detail string, reason Reason) func(Observation) Decision {
	return func(Observation) Decision {
		return Decision{Status: status, Detail: detail, Reason: reason}
	}
}

func unrecognized(o Observation) bool {
	return o.Overall != "" && !remote.KnownOverallStatus(o.Overall)
}

// rules is evaluated top to bottom; the first match wins.
var rules = []rule{
	{
		name:   "upload_error",
		match:  func(o Observation, _ elapsedBucket) bool { return o.Upload == remote.StateError },
		decide: fixed(video.StatusUploadFailed, DetailUploadError, ReasonProcessingError),
	},
	{
		name:   "uploading_error",
		match:  func(o Observation, _ elapsedBucket) bool { return o.Overall == "uploading_error" },
		decide: fixed(video.StatusUploadFailed, DetailUploadError, ReasonProcessingError),
	},
	{
		name:   "transcode_error",
		match:  func(o Observation, _ elapsedBucket) bool { return o.Transcode == remote.StateError },
		decide: fixed(video.StatusUploadFailed, DetailTranscodeError, ReasonProcessingError),
	},
	{
		name:   "uploading",
		match:  func(o Observation, _ elapsedBucket) bool { return o.Upload == remote.StateInProgress },
		decide: fixed(video.StatusRemoteUpload, DetailUploading, ReasonUploading),
	},
	{
		name:   "unrecognized_status",
		match:  func(o Observation, _ elapsedBucket) bool { return unrecognized(o) },
		decide: fixed(video.StatusUploadFailed, DetailUnrecognized, ReasonUnrecognized),
	},
	{
		name: "encoding_fresh",
		match: func(o Observation, b elapsedBucket) bool {
			return o.Transcode == remote.StateInProgress && b == bucketFresh
		},
		decide: fixed(video.StatusRemoteEncoding, DetailMayBeProcessing, ReasonEncoding),
	},
	{
		name: "encoding_notice",
		match: func(o Observation, b elapsedBucket) bool {
			return o.Transcode == remote.StateInProgress && b == bucketNotice
		},
		decide: fixed(video.StatusRemoteEncoding, string(video.StatusRemoteEncoding)+overNoticeSuffix, ReasonEncoding),
	},
	{
		name: "encoding_deadline_playable",
		match: func(o Observation, b elapsedBucket) bool {
			return o.Transcode == remote.StateInProgress && b == bucketDeadline && o.Link != ""
		},
		decide: func(o Observation) Decision {
			return Decision{
				Status:    video.StatusUploadCompleted,
				Detail:    string(video.StatusUploadCompleted) + overDeadlineSuffix,
				RemoteURL: o.Link,
				Reason:    ReasonCompleted,
			}
		},
	},
	{
		name: "encoding_deadline_unplayable",
		match: func(o Observation, b elapsedBucket) bool {
			return o.Transcode == remote.StateInProgress && b == bucketDeadline && o.HasFiles
		},
		decide: fixed(video.StatusUploadFailed, string(video.StatusUploadFailed)+overDeadlineSuffix, ReasonQualityUnresolved),
	},
	{
		name: "completed",
		match: func(o Observation, _ elapsedBucket) bool {
			return o.Transcode == remote.StateComplete && o.Link != ""
		},
		decide: func(o Observation) Decision {
			return Decision{Status: video.StatusUploadCompleted, RemoteURL: o.Link, Reason: ReasonCompleted}
		},
	},
	{
		name: "completed_without_quality_deadline",
		match: func(o Observation, b elapsedBucket) bool {
			return o.Transcode == remote.StateComplete && o.HasFiles && b == bucketDeadline
		},
		decide: fixed(video.StatusUploadFailed, string(video.StatusUploadFailed)+overDeadlineSuffix, ReasonQualityUnresolved),
	},
	{
		name: "completed_without_quality_notice",
		match: func(o Observation, b elapsedBucket) bool {
			return o.Transcode == remote.StateComplete && o.HasFiles && b == bucketNotice
		},
		decide: fixed(video.StatusUploadCompletedEncoding,
			string(video.StatusUploadCompletedEncoding)+overNoticeSuffix, ReasonEncoding),
	},
	{
		name: "completed_without_quality",
		match: func(o Observation, _ elapsedBucket) bool {
			return o.Transcode == remote.StateComplete && o.HasFiles
		},
		decide: fixed(video.StatusRemoteEncoding, DetailStillProcessing, ReasonEncoding),
	},
	{
		name:  "no_files",
		match: func(o Observation, _ elapsedBucket) bool { return !o.HasFiles },
		decide: func(o Observation) Decision {
			return Decision{Status: o.Current, Detail: DetailNoLinks, Reason: ReasonLinksUnavailable}
		},
	},
}

var catchAll = fixed(video.StatusUploadFailed, DetailUnrecognized, ReasonUnrecognized)

// Decide applies the decision table to o.
func (p Policy) Decide(o Observation) Decision {
	d, _ := p.decide(o)
	return d
}

// decide also returns the name of the matching rule.
func (p Policy) decide(o Observation) (Decision, string) {
	b := p.bucket(o.Elapsed)
	for _, r := range rules {
		if r.match(o, b) {
			return r.decide(o), r.name
		}
	}
	return catchAll(o), "catch_all"
}
