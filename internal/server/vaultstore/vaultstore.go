// Package vaultstore is the Vault Blob Store: presigned PUT/GET access to an
// S3-compatible bucket holding opaque, client-encrypted vault item blobs.
// The core never sees plaintext and never decrypts — it only brokers
// time-limited upload/download URLs, adapted from the teacher's
// entries.Service presign flow (there a vault "entry", here a vault item).
package vaultstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	sc "github.com/eternalsentinel/sentinel/internal/server/config"
)

const presignExpiry = 15 * time.Minute

// Store brokers presigned URLs for vault item blobs.
type Store struct {
	cfg *sc.Config
}

func New(cfg *sc.Config) *Store {
	return &Store{cfg: cfg}
}

func (s *Store) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(s.cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.S3RootUser,
			s.cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("vaultstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.cfg.S3BaseEndpoint)
	})

	return s3.NewPresignClient(client), nil
}

// RandomStorageKey returns a fresh, date-partitioned object key for a
// user's vault blob.
func RandomStorageKey(userID string) string {
	d := time.Now()
	return fmt.Sprintf("vault/%s/%d/%d/%d/%s", userID, d.Year(), d.Month(), d.Day(), uuid.NewString())
}

// PresignedPutURL returns a fresh storage key and a time-limited URL the
// client can PUT the encrypted vault blob to directly.
func (s *Store) PresignedPutURL(ctx context.Context, userID string) (key string, url string, err error) {
	client, err := s.presignClient(ctx)
	if err != nil {
		return "", "", err
	}

	key = RandomStorageKey(userID)
	bucket := s.cfg.S3Bucket

	req, err := client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", fmt.Errorf("vaultstore: presign put: %w", err)
	}

	return key, req.URL, nil
}

// PresignedGetURL returns a time-limited URL a trustee can GET the
// encrypted vault blob at the given key from, used once a release is
// granted (spec §4.7 "vault item access").
func (s *Store) PresignedGetURL(ctx context.Context, key string) (string, error) {
	client, err := s.presignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.cfg.S3Bucket

	req, err := client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("vaultstore: presign get: %w", err)
	}

	return req.URL, nil
}
