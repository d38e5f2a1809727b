// Package storage resolves upload sources from the object storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/ManuGH/vidsync/internal/config"
)

// ErrObjectNotFound is returned when the source object does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// Object describes a stored source file.
type Object struct {
	Key  string
	Size int64
}

// Source abstracts the bucket for callers that only need size and signed URLs.
type Source interface {
	Stat(ctx context.Context, assetID string) (Object, error)
	PresignGet(ctx context.Context, assetID string, ttl time.Duration) (string, error)
}

// S3 is the S3-compatible implementation of Source.
type S3 struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
	ttl     time.Duration
}

// New loads AWS configuration and builds the bucket client. A custom
// endpoint switches to path-style addressing for S3-compatible servers.
func New(ctx context.Context, cfg config.StorageConfig) (*S3, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("storage: bucket is not configured")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &S3{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		ttl:     ttl,
	}, nil
}

// Key maps an asset id to its object key.
func (s *S3) Key(assetID string) string {
	if s.prefix == "" {
		return assetID
	}
	return path.Join(s.prefix, assetID)
}

// Stat returns the object size.
func (s *S3) Stat(ctx context.Context, assetID string) (Object, error) {
	key := s.Key(assetID)
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return Object{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return Object{}, fmt.Errorf("storage: head %s: %w", key, err)
	}
	return Object{Key: key, Size: aws.ToInt64(out.ContentLength)}, nil
}

// PresignGet returns a time-limited GET URL. A non-positive ttl uses the
// configured default.
func (s *S3) PresignGet(ctx context.Context, assetID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(assetID)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", assetID, err)
	}
	return req.URL, nil
}
