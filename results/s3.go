package results

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kolsys/allure-phpunit/allure"
)

// S3Config holds configuration for the S3 storage backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	// Required by most S3-compatible providers (R2, MinIO, etc.).
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(path string) (bucket, prefix string) {
	parts := strings.SplitN(path, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix
}

// S3Store writes report files to an S3 bucket.
// Object keys mirror the flat results layout under the configured prefix,
// so a report generator pointed at a synced copy of the prefix sees a
// normal results directory.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed store.
// Uses the AWS SDK default credential chain (env vars, shared config, IAM role).
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Load AWS config with optional region
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create S3 client with optional endpoint and path-style overrides
	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client: s3.NewFromConfig(awsConfig, s3Opts...),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// WriteSuite marshals the suite and uploads it as {uuid}-testsuite.xml.
func (s *S3Store) WriteSuite(ctx context.Context, suite *allure.TestSuite) error {
	data, err := suite.Marshal()
	if err != nil {
		return fmt.Errorf("marshal suite %s: %w", suite.UUID, err)
	}
	return s.put(ctx, BuildSuiteFileName(suite.UUID), "application/xml", data)
}

// WriteAttachment uploads attachment bytes under the source name.
func (s *S3Store) WriteAttachment(ctx context.Context, source, mediaType string, data []byte) error {
	if err := ValidateSource(source); err != nil {
		return err
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return s.put(ctx, source, mediaType, data)
}

// Close releases client resources.
func (s *S3Store) Close() error {
	// The S3 client does not require explicit close
	return nil
}

func (s *S3Store) put(ctx context.Context, name, contentType string, data []byte) error {
	key := s.objectKey(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return WrapWriteError(err, "s3://"+s.bucket+"/"+key)
	}
	return nil
}

// objectKey joins the prefix and file name.
func (s *S3Store) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Verify S3Store implements Store.
var _ Store = (*S3Store)(nil)
