// Package media turns object storage paths into signed URLs through the signed-URL cache.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Borislavv/go-feed-cache/config"
	"github.com/Borislavv/go-feed-cache/internal/signedurl"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/Borislavv/go-feed-cache/internal/service/media")

type Service struct {
	urls          *signedurl.Cache
	signer        Signer
	bucket        string
	publicURL     string
	defaultExpiry time.Duration
	logger        *slog.Logger
}

func New(urls *signedurl.Cache, signer Signer, storage *config.StorageCfg, defaultExpiry time.Duration, logger *slog.Logger) *Service {
	s := &Service{
		urls:          urls,
		signer:        signer,
		defaultExpiry: defaultExpiry,
		logger:        logger.With("service", "media"),
	}
	if storage.Enabled() {
		s.bucket = storage.Bucket
		s.publicURL = strings.TrimSuffix(storage.PublicURL, "/")
	}
	return s
}

// SignedURL returns a cached or freshly signed URL for path in the default bucket.
func (s *Service) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return s.SignedURLInBucket(ctx, s.bucket, path, expiry)
}

// SignedURLInBucket signs path in bucket. Paths in a non-default bucket are cached under "bucket/path".
func (s *Service) SignedURLInBucket(ctx context.Context, bucket, path string, expiry time.Duration) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty storage path")
	}
	if expiry <= 0 {
		expiry = s.defaultExpiry
	}
	if bucket == "" {
		bucket = s.bucket
	}
	key := path
	if bucket != s.bucket {
		key = bucket + "/" + path
	}

	if url, ok := s.urls.Get(key, expiry); ok {
		return url, nil
	}

	ctx, span := tracer.Start(ctx, "media.sign", trace.WithAttributes(
		attribute.String("bucket", bucket),
		attribute.Int64("expiry_seconds", int64(expiry/time.Second)),
	))
	defer span.End()

	url, err := s.signer.PresignGet(ctx, bucket, path, expiry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("sign %s: %w", path, err)
	}
	s.urls.Set(key, url, expiry)
	return url, nil
}

// StoragePath converts a URL under the public bucket origin back to its storage path.
func (s *Service) StoragePath(url string) (string, bool) {
	if s.publicURL == "" || !strings.HasPrefix(url, s.publicURL+"/") {
		return "", false
	}
	path := strings.TrimPrefix(url, s.publicURL+"/")
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return path, path != ""
}

// SignPublicURL signs a public bucket URL; any other URL is returned unchanged.
func (s *Service) SignPublicURL(ctx context.Context, url string) string {
	path, ok := s.StoragePath(url)
	if !ok {
		return url
	}
	signed, err := s.SignedURL(ctx, path, 0)
	if err != nil {
		s.logger.Warn("falling back to public url", "path", path, "err", err)
		return url
	}
	return signed
}

// Sign returns the signed URL for storagePath, or fallback when there is no path or signing fails.
func (s *Service) Sign(ctx context.Context, storagePath *string, fallback string) (string, error) {
	if storagePath == nil || *storagePath == "" {
		return fallback, nil
	}
	url, err := s.SignedURL(ctx, *storagePath, 0)
	if err != nil {
		return fallback, err
	}
	return url, nil
}

// Invalidate drops every cached URL for path, e.g. after the object was replaced or deleted.
func (s *Service) Invalidate(path string) int {
	if path == "" {
		return 0
	}
	return s.urls.Invalidate(path)
}
