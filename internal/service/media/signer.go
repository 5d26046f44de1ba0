package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Borislavv/go-feed-cache/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Signer produces a time-limited GET URL for an object.
type Signer interface {
	PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// S3Signer presigns against an S3-compatible endpoint (Cloudflare R2 in production).
type S3Signer struct {
	client *s3.PresignClient
}

func NewS3Signer(cfg *config.StorageCfg) *S3Signer {
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: true,
	})
	return &S3Signer{client: s3.NewPresignClient(client)}
}

func (s *S3Signer) PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	req, err := s.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

// PublicSigner joins the key onto a public origin. Used when no signing endpoint is configured.
type PublicSigner struct {
	Origin string
}

func (s PublicSigner) PresignGet(_ context.Context, _, key string, _ time.Duration) (string, error) {
	if s.Origin == "" {
		return "", fmt.Errorf("no public origin for %s", key)
	}
	return strings.TrimSuffix(s.Origin, "/") + "/" + strings.TrimPrefix(key, "/"), nil
}
