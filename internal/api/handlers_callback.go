// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/vidsync/internal/callback"
	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/thumbnail"
	"github.com/ManuGH/vidsync/internal/video"
)

// handleCallback implements GET /vimeo/callback?videoid=&token=.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	link, err := s.deps.Callback.Resolve(r.Context(), q.Get("videoid"), q.Get("token"))
	switch {
	case errors.Is(err, callback.ErrInvalidToken),
		errors.Is(err, callback.ErrNotEligible),
		errors.Is(err, callback.ErrTokenExpired):
		writeError(w, r, http.StatusBadRequest, "invalid token", err)
		return
	case err != nil:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "callback.failed").Msg("callback resolution failed")
		writeError(w, r, http.StatusInternalServerError, "internal error", nil)
		return
	}
	http.Redirect(w, r, link, http.StatusFound)
}

type pictureRequest struct {
	AssetID   string `json:"asset_id"`
	ContextID string `json:"context_id"`
}

type pictureResponse struct {
	AssetID    string `json:"asset_id"`
	ContextID  string `json:"context_id"`
	PictureURL string `json:"picture_url"`
}

// handlePicture implements POST /vimeo/picture.
func (s *Server) handlePicture(w http.ResponseWriter, r *http.Request) {
	var req pictureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad request", err)
		return
	}
	if req.AssetID == "" || req.ContextID == "" {
		writeError(w, r, http.StatusBadRequest, "asset_id and context_id are required", nil)
		return
	}

	key := video.Key{AssetID: req.AssetID, ContextID: req.ContextID}
	link, err := s.deps.Pictures.Refresh(r.Context(), key)
	switch {
	case errors.Is(err, thumbnail.ErrNotCompleted):
		writeError(w, r, http.StatusNotFound, err.Error(), nil)
		return
	case errors.Is(err, thumbnail.ErrCredentialsMissing):
		writeError(w, r, http.StatusServiceUnavailable, err.Error(), nil)
		return
	case errors.Is(err, thumbnail.ErrRemote):
		writeError(w, r, http.StatusBadGateway, thumbnail.ErrRemote.Error(), nil)
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "internal error", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pictureResponse{
		AssetID:    req.AssetID,
		ContextID:  req.ContextID,
		PictureURL: link,
	})
}
