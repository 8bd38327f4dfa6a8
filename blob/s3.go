package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	// PublicURL is the base objects are served from. Defaults to
	// Endpoint/Bucket.
	PublicURL string
}

func (c S3Config) baseURL() string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/")
	}
	return strings.TrimRight(c.Endpoint, "/") + "/" + c.Bucket
}

// S3Store uploads objects to an S3 compatible bucket.
type S3Store struct {
	client *s3.Client
	cfg    S3Config
	prefix string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithBaseEndpoint(cfg.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return &S3Store{client: client, cfg: cfg}, nil
}

// Prefixed returns a store writing under prefix, sharing the client.
func (s *S3Store) Prefixed(prefix string) *S3Store {
	return &S3Store{client: s.client, cfg: s.cfg, prefix: prefix}
}

func (s *S3Store) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	key := objectKey(s.prefix, contentType)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.cfg.baseURL() + "/" + key, nil
}
