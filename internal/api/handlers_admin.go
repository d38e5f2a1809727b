// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/vidsync/internal/duplicate"
	"github.com/ManuGH/vidsync/internal/jobs"
	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/store"
	"github.com/ManuGH/vidsync/internal/validate"
	"github.com/ManuGH/vidsync/internal/video"
)

type enqueueResponse struct {
	TaskID string `json:"task_id"`
}

// handleEnqueueUpload implements POST /api/v1/uploads.
func (s *Server) handleEnqueueUpload(w http.ResponseWriter, r *http.Request) {
	var batch jobs.UploadPayload
	if err := decodeJSON(w, r, &batch); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad request", err)
		return
	}

	v := validate.New()
	v.NotEmpty("context_id", batch.ContextID)
	if len(batch.Entries) == 0 {
		v.AddError("entries", "must not be empty", nil)
	}
	for _, e := range batch.Entries {
		if e.AssetID == "" {
			v.AddError("entries.asset_id", "must not be empty", nil)
			break
		}
	}
	if batch.CallbackBaseURL != "" {
		v.URL("callback_base_url", batch.CallbackBaseURL, []string{"http", "https"})
	}
	if err := v.Err(); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation failed", err)
		return
	}

	id, err := s.deps.Queue.EnqueueUpload(r.Context(), batch)
	if err != nil {
		s.writeEnqueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, enqueueResponse{TaskID: id})
}

// handleEnqueueSweep implements POST /api/v1/sweeps. The body is optional.
func (s *Server) handleEnqueueSweep(w http.ResponseWriter, r *http.Request) {
	var p jobs.SweepPayload
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &p); err != nil {
			writeError(w, r, http.StatusBadRequest, "bad request", err)
			return
		}
	}
	id, err := s.deps.Queue.EnqueueSweep(r.Context(), p)
	if err != nil {
		s.writeEnqueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, enqueueResponse{TaskID: id})
}

type duplicateRequest struct {
	jobs.DuplicatePayload
	Async bool `json:"async,omitempty"`
}

type duplicateResponse struct {
	Results []duplicate.Result `json:"results"`
}

// handleDuplicate implements POST /api/v1/duplicates. Without an asset id
// the whole source context is copied. Async requests are queued instead.
func (s *Server) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	var req duplicateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad request", err)
		return
	}
	v := validate.New()
	v.NotEmpty("source_context", req.SourceContext)
	v.NotEmpty("target_context", req.TargetContext)
	if req.SourceContext != "" && req.SourceContext == req.TargetContext {
		v.AddError("target_context", "must differ from source_context", req.TargetContext)
	}
	if err := v.Err(); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation failed", err)
		return
	}

	if req.Async {
		id, err := s.deps.Queue.EnqueueDuplicate(r.Context(), req.DuplicatePayload)
		if err != nil {
			s.writeEnqueueError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, enqueueResponse{TaskID: id})
		return
	}

	var results []duplicate.Result
	if req.AssetID != "" {
		outcome, err := s.deps.Duplicator.Duplicate(r.Context(), req.AssetID, req.SourceContext, req.TargetContext, req.Actor)
		if err != nil {
			s.writeInternal(w, r, "duplicate.failed", err)
			return
		}
		results = []duplicate.Result{{AssetID: req.AssetID, Outcome: outcome}}
	} else {
		var err error
		results, err = s.deps.Duplicator.DuplicateAll(r.Context(), req.SourceContext, req.TargetContext, req.Actor)
		if err != nil {
			s.writeInternal(w, r, "duplicate.failed", err)
			return
		}
	}
	if results == nil {
		results = []duplicate.Result{}
	}
	writeJSON(w, http.StatusOK, duplicateResponse{Results: results})
}

type videosResponse struct {
	Videos []video.TrackedVideo `json:"videos"`
}

// handleListVideos implements GET /api/v1/videos?context_id=&status=.
func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{ContextID: q.Get("context_id"), AssetID: q.Get("asset_id")}
	for _, raw := range q["status"] {
		st, err := video.ParseStatus(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid status", err)
			return
		}
		f.Statuses = append(f.Statuses, st)
	}

	rows, err := s.deps.Videos.List(r.Context(), f)
	if err != nil {
		s.writeInternal(w, r, "videos.list_failed", err)
		return
	}
	if rows == nil {
		rows = []video.TrackedVideo{}
	}
	writeJSON(w, http.StatusOK, videosResponse{Videos: rows})
}

func (s *Server) writeEnqueueError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, jobs.ErrAlreadyQueued):
		writeError(w, r, http.StatusConflict, "already queued", nil)
	case errors.Is(err, jobs.ErrEmptyBatch):
		writeError(w, r, http.StatusBadRequest, "validation failed", err)
	default:
		s.writeInternal(w, r, "enqueue.failed", err)
	}
}

func (s *Server) writeInternal(w http.ResponseWriter, r *http.Request, event string, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Error().Err(err).Str(log.FieldEvent, event).Msg("request failed")
	writeError(w, r, http.StatusInternalServerError, "internal error", nil)
}
