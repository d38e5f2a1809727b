package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/vidsync/internal/video"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// trackedVideoRow is the gorm model for the tracked_videos table.
type trackedVideoRow struct {
	AssetID     string `gorm:"primaryKey;size:255"`
	ContextID   string `gorm:"primaryKey;size:255;index"`
	RemoteID    string `gorm:"size:64;not null;default:''"`
	Status      string `gorm:"size:32;not null;index"`
	RemoteURL   string `gorm:"not null;default:''"`
	PictureURL  string `gorm:"not null;default:''"`
	ErrorDetail string `gorm:"not null;default:''"`
	AccessToken string `gorm:"size:64;not null;default:'';index"`
	ExpiresAt   *time.Time
	Owner       string `gorm:"size:255;not null;default:''"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (trackedVideoRow) TableName() string {
	return "tracked_videos"
}

func toRow(v video.TrackedVideo) trackedVideoRow {
	r := trackedVideoRow{
		AssetID:     v.AssetID,
		ContextID:   v.ContextID,
		RemoteID:    v.RemoteID,
		Status:      string(v.Status),
		RemoteURL:   v.RemoteURL,
		PictureURL:  v.PictureURL,
		ErrorDetail: v.ErrorDetail,
		AccessToken: v.AccessToken,
		Owner:       v.Owner,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
	if !v.ExpiresAt.IsZero() {
		t := v.ExpiresAt.UTC()
		r.ExpiresAt = &t
	}
	return r
}

func fromRow(r trackedVideoRow) (video.TrackedVideo, error) {
	st, err := video.ParseStatus(r.Status)
	if err != nil {
		return video.TrackedVideo{}, err
	}
	v := video.TrackedVideo{
		AssetID:     r.AssetID,
		ContextID:   r.ContextID,
		RemoteID:    r.RemoteID,
		Status:      st,
		RemoteURL:   r.RemoteURL,
		PictureURL:  r.PictureURL,
		ErrorDetail: r.ErrorDetail,
		AccessToken: r.AccessToken,
		Owner:       r.Owner,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ExpiresAt != nil {
		v.ExpiresAt = r.ExpiresAt.UTC()
	}
	return v, nil
}

// PostgresStore is the Store implementation for shared deployments.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects with gorm and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open failed: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := db.WithContext(ctx).AutoMigrate(&trackedVideoRow{}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the pool is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) first(ctx context.Context, query string, args ...any) (*video.TrackedVideo, error) {
	var r trackedVideoRow
	err := s.db.WithContext(ctx).Where(query, args...).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v, err := fromRow(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Get returns the record for key or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, key video.Key) (*video.TrackedVideo, error) {
	return s.first(ctx, "asset_id = ? AND context_id = ?", key.AssetID, key.ContextID)
}

// GetByToken returns the record carrying the callback token.
func (s *PostgresStore) GetByToken(ctx context.Context, assetID, token string) (*video.TrackedVideo, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.first(ctx, "asset_id = ? AND access_token = ?", assetID, token)
}

// List returns records matching f ordered by context then asset.
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]video.TrackedVideo, error) {
	q := s.db.WithContext(ctx).Model(&trackedVideoRow{})
	if f.ContextID != "" {
		q = q.Where("context_id = ?", f.ContextID)
	}
	if f.AssetID != "" {
		q = q.Where("asset_id = ?", f.AssetID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(f.Statuses))
	}
	var rows []trackedVideoRow
	if err := q.Order("context_id, asset_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]video.TrackedVideo, 0, len(rows))
	for _, r := range rows {
		v, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Create inserts a new record; the pair must not exist yet.
func (s *PostgresStore) Create(ctx context.Context, v video.TrackedVideo) error {
	if err := v.Validate(); err != nil {
		return err
	}
	r := toRow(v)
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&r)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// Update overwrites every mutable column of an existing record.
func (s *PostgresStore) Update(ctx context.Context, v video.TrackedVideo) error {
	if err := v.Validate(); err != nil {
		return err
	}
	r := toRow(v)
	res := s.db.WithContext(ctx).Model(&trackedVideoRow{}).
		Where("asset_id = ? AND context_id = ?", v.AssetID, v.ContextID).
		Updates(map[string]any{
			"remote_id":    r.RemoteID,
			"status":       r.Status,
			"remote_url":   r.RemoteURL,
			"picture_url":  r.PictureURL,
			"error_detail": r.ErrorDetail,
			"access_token": r.AccessToken,
			"expires_at":   r.ExpiresAt,
			"owner":        r.Owner,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert creates or fully replaces the record.
func (s *PostgresStore) Upsert(ctx context.Context, v video.TrackedVideo) error {
	if err := v.Validate(); err != nil {
		return err
	}
	r := toRow(v)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "asset_id"}, {Name: "context_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"remote_id", "status", "remote_url", "picture_url", "error_detail",
			"access_token", "expires_at", "owner", "updated_at",
		}),
	}).Create(&r).Error
}
