// Package blobstore stores post images on S3-compatible object storage and
// hands back public URLs. Callers treat it as a black box: bytes in, URL out.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string // base URL images are served from
	Logger    *zap.Logger
}

func (cfg *Config) Validate() error {
	if cfg.Endpoint == "" {
		return errors.New("blob store endpoint is required")
	}
	if cfg.Bucket == "" {
		return errors.New("blob store bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return errors.New("blob store credentials are required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

type Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
	log       *zap.Logger
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("blobstore config: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load blob store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("%s/%s", cfg.Endpoint, cfg.Bucket)
	}

	return &Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
		log:       cfg.Logger,
	}, nil
}

// Upload writes data under key and returns the public URL.
func (s *Store) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	url := fmt.Sprintf("%s/%s", s.publicURL, key)
	s.log.Debug("blob stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return url, nil
}
