// Package storage uploads images to S3-compatible object storage and returns
// the public URLs readers load them from.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/newsdesk-api/internal/config"
	"github.com/rs/zerolog"
)

// ObjectStore stores public objects
type ObjectStore interface {
	// Put writes body under key and returns the object's public URL
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// S3Store is an ObjectStore backed by an S3-compatible bucket
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
	log       zerolog.Logger
}

// NewS3Store creates a store for cfg.Bucket. A custom endpoint switches to path-style addressing.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log.With().Str("component", "storage").Str("bucket", cfg.Bucket).Logger(),
	}, nil
}

// Put uploads body as a public-read object, creating the bucket on first use
func (s *S3Store) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	upload := func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ACL:         types.ObjectCannedACLPublicRead,
			ContentType: aws.String(contentType),
		})
		return err
	}

	err := upload()
	if err != nil {
		var apiError smithy.APIError
		if !errors.As(err, &apiError) || apiError.ErrorCode() != "NoSuchBucket" {
			return "", fmt.Errorf("failed to upload %s: %w", key, err)
		}

		s.log.Warn().Msg("Bucket missing, creating it")
		if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
			return "", fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
		if err := upload(); err != nil {
			return "", fmt.Errorf("failed to upload %s: %w", key, err)
		}
	}

	s.log.Debug().Str("key", key).Int("bytes", len(body)).Msg("Object stored")
	return s.URL(key), nil
}

// URL returns the public URL of key
func (s *S3Store) URL(key string) string {
	return s.publicURL + "/" + strings.TrimLeft(key, "/")
}
