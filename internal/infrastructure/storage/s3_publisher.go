package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	infraconfig "github.com/phc/analytics-backend/internal/infrastructure/config"
)

// S3Publisher pushes written table files to an S3-compatible bucket
// (AWS S3, MinIO, etc.).
type S3Publisher struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// S3PublisherOption is a functional option for configuring S3Publisher
type S3PublisherOption func(*S3Publisher)

// WithLogger sets a custom logger for S3Publisher
func WithLogger(logger *zap.Logger) S3PublisherOption {
	return func(p *S3Publisher) {
		p.logger = logger
	}
}

// NewS3Publisher creates a publisher from configuration.
func NewS3Publisher(cfg infraconfig.S3Config, opts ...S3PublisherOption) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("s3 credentials are required")
	}

	region := cfg.Region
	if region == "" {
		region = "eu-west-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	publisher := &S3Publisher{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(publisher)
	}
	return publisher, nil
}

// PublishFile uploads one local file under the configured prefix.
func (p *S3Publisher) PublishFile(ctx context.Context, localPath, key string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}

	objectKey := key
	if p.prefix != "" {
		objectKey = path.Join(p.prefix, key)
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(key)),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectKey, err)
	}

	p.logger.Debug("Table file published",
		zap.String("bucket", p.bucket),
		zap.String("key", objectKey),
		zap.Int("bytes", len(data)),
	)
	return nil
}

func contentTypeFor(key string) string {
	switch path.Ext(key) {
	case ".csv":
		return "text/csv"
	case ".parquet":
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}
