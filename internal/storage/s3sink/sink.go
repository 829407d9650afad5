// Package s3sink writes generated records to an S3-compatible bucket.
package s3sink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mrsinham/studyforge/internal/dicom"
	"github.com/mrsinham/studyforge/internal/failure"
)

// Scheme prefixes destinations served by this package.
const Scheme = "s3://"

const contentType = "application/dicom"

// API is the subset of the S3 client used by Sink.
type API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds client construction parameters. Credentials come from the
// default AWS chain.
type Config struct {
	Region    string
	Endpoint  string // optional, e.g. a MinIO URL
	PathStyle bool
}

// Environment variables read by ConfigFromEnv.
const (
	EnvRegion    = "STUDYFORGE_S3_REGION"
	EnvEndpoint  = "STUDYFORGE_S3_ENDPOINT"
	EnvPathStyle = "STUDYFORGE_S3_PATH_STYLE"
)

// ConfigFromEnv reads the client configuration from the environment.
func ConfigFromEnv() Config {
	return Config{
		Region:    os.Getenv(EnvRegion),
		Endpoint:  os.Getenv(EnvEndpoint),
		PathStyle: strings.EqualFold(os.Getenv(EnvPathStyle), "true"),
	}
}

// Sink stores each record as one object below s3://bucket/prefix.
type Sink struct {
	client API

	mu     sync.RWMutex
	bucket string
	prefix string
}

// New builds a Sink backed by a real S3 client.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, &failure.ConfigurationError{Msg: fmt.Sprintf("Failed to load AWS configuration: %v", err), Err: err}
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client), nil
}

// NewWithClient returns a Sink using client.
func NewWithClient(client API) *Sink {
	return &Sink{client: client}
}

// IsDestination reports whether dest names an S3 location.
func IsDestination(dest string) bool {
	return strings.HasPrefix(dest, Scheme)
}

// ParseDestination splits s3://bucket/prefix into its bucket and prefix.
func ParseDestination(dest string) (bucket, prefix string, err error) {
	if !IsDestination(dest) {
		return "", "", fmt.Errorf("destination %q does not start with %s", dest, Scheme)
	}
	rest := strings.TrimPrefix(dest, Scheme)
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("destination %q has no bucket", dest)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// Prepare checks that the destination bucket is reachable.
func (s *Sink) Prepare(ctx context.Context, dest string) error {
	bucket, prefix, err := ParseDestination(dest)
	if err != nil {
		return &failure.ConfigurationError{Msg: fmt.Sprintf("Invalid S3 destination: %v", err), Err: err}
	}
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return &failure.DirectoryCreateError{Path: dest, Reason: err.Error()}
	}
	s.mu.Lock()
	s.bucket, s.prefix = bucket, prefix
	s.mu.Unlock()
	return nil
}

// Write encodes rec and uploads it as prefix/name.
func (s *Sink) Write(ctx context.Context, name string, rec *dicom.Record) (string, error) {
	s.mu.RLock()
	bucket, key := s.bucket, path.Join(s.prefix, name)
	s.mu.RUnlock()
	location := Scheme + bucket + "/" + key

	data, err := rec.Bytes()
	if err != nil {
		return "", &failure.FileWriteError{Path: location, Reason: err.Error()}
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", &failure.FileWriteError{Path: location, Reason: err.Error()}
	}
	return location, nil
}
