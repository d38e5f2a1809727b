// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/vidsync/internal/catalog"
	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/metrics"
	"github.com/ManuGH/vidsync/internal/remote"
	"github.com/ManuGH/vidsync/internal/store"
	"github.com/ManuGH/vidsync/internal/telemetry"
	"github.com/ManuGH/vidsync/internal/video"
)

// Transition records one row visited by a sweep run.
type Transition struct {
	AssetID   string       `json:"asset_id"`
	ContextID string       `json:"context_id"`
	From      video.Status `json:"from"`
	To        video.Status `json:"to"`
	Detail    string       `json:"detail,omitempty"`
	Reason    Reason       `json:"reason"`
	Rule      string       `json:"rule"`
}

// Report summarizes one sweep run.
type Report struct {
	RunID       string        `json:"run_id"`
	ContextID   string        `json:"context_id,omitempty"`
	Skipped     bool          `json:"skipped"`
	Interrupted bool          `json:"interrupted,omitempty"`
	Visited     int           `json:"visited"`
	Changed     int           `json:"changed"`
	WriteErrors int           `json:"write_errors"`
	Transitions []Transition  `json:"transitions"`
	Duration    time.Duration `json:"duration"`
}

// errInterrupted marks a row left untouched because the run lost its
// context or the client refused to send the request in time.
var errInterrupted = errors.New("reconcile: sweep interrupted")

// Sweep re-queries the hosting service for every in-progress row.
type Sweep struct {
	remote  remote.Service
	catalog catalog.Catalog
	store   store.Store
	policy  Policy
	now     func() time.Time
}

// NewSweep wires a sweep. A zero policy falls back to DefaultPolicy.
func NewSweep(rs remote.Service, cat catalog.Catalog, st store.Store, policy Policy) (*Sweep, error) {
	if rs == nil || cat == nil || st == nil {
		return nil, errors.New("reconcile: remote, catalog and store are required")
	}
	if policy.EncodingNotice <= 0 || policy.EncodingDeadline <= 0 {
		policy = DefaultPolicy()
	}
	return &Sweep{remote: rs, catalog: cat, store: st, policy: policy, now: time.Now}, nil
}

// Run visits all eligible rows, optionally limited to contextID. Remote and
// catalog failures become row states; only a failed store listing is
// returned as an error. A status call that never got an answer ends the run
// early and leaves that row and the rest unchanged.
func (s *Sweep) Run(ctx context.Context, contextID string) (Report, error) {
	started := s.now()
	report := Report{RunID: ulid.Make().String(), ContextID: contextID}

	ctx, span := telemetry.Tracer("vidsync.reconcile").Start(ctx, "reconcile.sweep")
	defer span.End()
	span.SetAttributes(
		attribute.String("sweep.run_id", report.RunID),
		attribute.String(telemetry.VideoContextIDKey, contextID),
	)

	logger := log.WithComponentFromContext(ctx, "reconcile").With().
		Str(log.FieldRunID, report.RunID).
		Str(log.FieldContextID, contextID).
		Logger()

	if !s.remote.Configured() {
		logger.Warn().Str(log.FieldEvent, "sweep.skipped").Msg("remote credentials missing, sweep skipped")
		metrics.IncSweepRun("skipped")
		report.Skipped = true
		return report, nil
	}

	rows, err := s.store.List(ctx, store.Filter{ContextID: contextID, Statuses: video.SweepEligible()})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		metrics.IncSweepRun("failed")
		return report, fmt.Errorf("reconcile: list eligible rows: %w", err)
	}

	counts := make(map[string]int)
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Msg("sweep interrupted")
			report.Interrupted = true
			break
		}
		t, werr := s.reconcileRow(ctx, row)
		if errors.Is(werr, errInterrupted) {
			logger.Warn().Err(werr).
				Str(log.FieldEvent, "sweep.interrupted").
				Str(log.FieldAssetID, row.AssetID).
				Msg("sweep interrupted, remaining rows left for the next run")
			report.Interrupted = true
			break
		}
		report.Visited++
		report.Transitions = append(report.Transitions, t)
		counts[string(t.To)]++
		if t.From != t.To {
			report.Changed++
		}
		if werr != nil {
			report.WriteErrors++
		}
	}

	report.Duration = s.now().Sub(started)
	if report.Interrupted {
		metrics.IncSweepRun("interrupted")
	} else {
		metrics.IncSweepRun("completed")
	}
	metrics.ObserveSweepDuration(report.Duration)
	metrics.RecordTrackedVideos(counts)

	logger.Info().
		Str(log.FieldEvent, "sweep.completed").
		Int("visited", report.Visited).
		Int("changed", report.Changed).
		Int("write_errors", report.WriteErrors).
		Int64(log.FieldDuration, report.Duration.Milliseconds()).
		Msg("reconciliation sweep finished")
	return report, nil
}

func (s *Sweep) reconcileRow(ctx context.Context, row video.TrackedVideo) (Transition, error) {
	logger := log.WithComponentFromContext(ctx, "reconcile").With().
		Str(log.FieldAssetID, row.AssetID).
		Str(log.FieldContextID, row.ContextID).
		Str(log.FieldRemoteID, row.RemoteID).
		Logger()

	var (
		d    Decision
		name string
	)
	st, err := s.remote.GetStatus(ctx, row.RemoteID)
	if interrupted(ctx, err) {
		if err == nil {
			err = ctx.Err()
		}
		return Transition{}, fmt.Errorf("%w: %w", errInterrupted, err)
	}
	if err != nil || st == nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "sweep.remote_missing").Msg("remote status unavailable")
		d, name = Decision{Status: video.StatusRemoteNotFound, Detail: DetailNotFound, Reason: ReasonNotFound}, "not_found"
	} else {
		d, name = s.policy.decide(Observe(row.Status, st, s.elapsed(row, &logger)))
	}

	if perr := s.catalog.PropagateStatus(ctx, row.AssetID, d.Status); perr != nil {
		logger.Error().Err(perr).
			Str(log.FieldEvent, "sweep.propagate_failed").
			Str("computed_status", string(d.Status)).
			Msg("catalog propagation failed")
		metrics.IncPropagationFailure("reconcile")
		d = Decision{Status: video.StatusRemotePatchFailed, Detail: DetailPatchFailed, RemoteURL: d.RemoteURL, Reason: ReasonPropagationFailed}
	}

	t := Transition{
		AssetID:   row.AssetID,
		ContextID: row.ContextID,
		From:      row.Status,
		To:        d.Status,
		Detail:    d.Detail,
		Reason:    d.Reason,
		Rule:      name,
	}
	metrics.IncSweepTransition(string(t.From), string(t.To), string(t.Reason))

	updated := row
	updated.Status = d.Status
	updated.ErrorDetail = d.Detail
	if d.RemoteURL != "" {
		updated.RemoteURL = d.RemoteURL
	}
	if err := s.store.Update(ctx, updated); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "sweep.persist_failed").Msg("could not persist reconciled row")
		return t, err
	}

	logger.Debug().
		Str(log.FieldOldStatus, string(t.From)).
		Str(log.FieldNewStatus, string(t.To)).
		Str(log.FieldDetail, t.Detail).
		Str("rule", name).
		Msg("row reconciled")
	return t, nil
}

// interrupted reports whether a status call failed without an answer from
// the hosting service. Such rows keep their state.
func interrupted(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// elapsed measures from expires_at; rows without one count as fresh.
func (s *Sweep) elapsed(row video.TrackedVideo, logger *zerolog.Logger) time.Duration {
	if row.ExpiresAt.IsZero() {
		logger.Warn().Str(log.FieldEvent, "sweep.no_clock").Msg("row has no escalation timestamp")
		return 0
	}
	return s.now().Sub(row.ExpiresAt)
}
