// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/vidsync/internal/persistence/sqlite"
	"github.com/ManuGH/vidsync/internal/video"
)

// SQLiteStore is the default Store backed by modernc SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens the database at path and runs migrations.
func OpenSQLite(ctx context.Context, path string, cfg sqlite.Config) (*SQLiteStore, error) {
	db, err := sqlite.Open(ctx, path, cfg)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the pool for health checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracked_videos (
		asset_id TEXT NOT NULL,
		context_id TEXT NOT NULL,
		remote_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK(status IN (` + quotedStatuses() + `)),
		remote_url TEXT NOT NULL DEFAULT '',
		picture_url TEXT NOT NULL DEFAULT '',
		error_detail TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL DEFAULT '',
		expires_at TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (asset_id, context_id)
	);

	CREATE INDEX IF NOT EXISTS idx_tracked_videos_context ON tracked_videos(context_id);
	CREATE INDEX IF NOT EXISTS idx_tracked_videos_status ON tracked_videos(status);
	CREATE INDEX IF NOT EXISTS idx_tracked_videos_token ON tracked_videos(asset_id, access_token);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func quotedStatuses() string {
	all := video.AllStatuses()
	parts := make([]string, len(all))
	for i, st := range all {
		parts[i] = "'" + string(st) + "'"
	}
	return strings.Join(parts, ", ")
}

const selectColumns = `asset_id, context_id, remote_id, status, remote_url, picture_url,
	error_detail, access_token, expires_at, owner, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*video.TrackedVideo, error) {
	var (
		v                              video.TrackedVideo
		status                         string
		expiresAt, createdAt, updatedAt string
	)
	if err := row.Scan(&v.AssetID, &v.ContextID, &v.RemoteID, &status, &v.RemoteURL, &v.PictureURL,
		&v.ErrorDetail, &v.AccessToken, &expiresAt, &v.Owner, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	st, err := video.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	v.Status = st
	v.ExpiresAt = parseTime(expiresAt)
	v.CreatedAt = parseTime(createdAt)
	v.UpdatedAt = parseTime(updatedAt)
	return &v, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Get returns the record for key or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, key video.Key) (*video.TrackedVideo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM tracked_videos WHERE asset_id = ? AND context_id = ?`,
		key.AssetID, key.ContextID)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

// GetByToken returns the record carrying the callback token.
func (s *SQLiteStore) GetByToken(ctx context.Context, assetID, token string) (*video.TrackedVideo, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM tracked_videos WHERE asset_id = ? AND access_token = ? LIMIT 1`,
		assetID, token)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

// List returns records matching f ordered by context then asset.
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]video.TrackedVideo, error) {
	var (
		where []string
		args  []any
	)
	if f.ContextID != "" {
		where = append(where, "context_id = ?")
		args = append(args, f.ContextID)
	}
	if f.AssetID != "" {
		where = append(where, "asset_id = ?")
		args = append(args, f.AssetID)
	}
	if len(f.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Statuses)), ", ")
		where = append(where, "status IN ("+placeholders+")")
		for _, st := range statusStrings(f.Statuses) {
			args = append(args, st)
		}
	}
	query := `SELECT ` + selectColumns + ` FROM tracked_videos`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY context_id, asset_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []video.TrackedVideo
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// Create inserts a new record; the pair must not exist yet.
func (s *SQLiteStore) Create(ctx context.Context, v video.TrackedVideo) error {
	if err := v.Validate(); err != nil {
		return err
	}
	now := formatTime(s.now())
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO tracked_videos (`+selectColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(asset_id, context_id) DO NOTHING`,
		v.AssetID, v.ContextID, v.RemoteID, string(v.Status), v.RemoteURL, v.PictureURL,
		v.ErrorDetail, v.AccessToken, formatTime(v.ExpiresAt), v.Owner, now, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Update overwrites every mutable column of an existing record.
func (s *SQLiteStore) Update(ctx context.Context, v video.TrackedVideo) error {
	if err := v.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
	UPDATE tracked_videos SET
		remote_id = ?, status = ?, remote_url = ?, picture_url = ?, error_detail = ?,
		access_token = ?, expires_at = ?, owner = ?, updated_at = ?
	WHERE asset_id = ? AND context_id = ?`,
		v.RemoteID, string(v.Status), v.RemoteURL, v.PictureURL, v.ErrorDetail,
		v.AccessToken, formatTime(v.ExpiresAt), v.Owner, formatTime(s.now()),
		v.AssetID, v.ContextID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert creates or fully replaces the record.
func (s *SQLiteStore) Upsert(ctx context.Context, v video.TrackedVideo) error {
	if err := v.Validate(); err != nil {
		return err
	}
	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO tracked_videos (`+selectColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(asset_id, context_id) DO UPDATE SET
		remote_id = excluded.remote_id,
		status = excluded.status,
		remote_url = excluded.remote_url,
		picture_url = excluded.picture_url,
		error_detail = excluded.error_detail,
		access_token = excluded.access_token,
		expires_at = excluded.expires_at,
		owner = excluded.owner,
		updated_at = excluded.updated_at`,
		v.AssetID, v.ContextID, v.RemoteID, string(v.Status), v.RemoteURL, v.PictureURL,
		v.ErrorDetail, v.AccessToken, formatTime(v.ExpiresAt), v.Owner, now, now)
	return err
}
