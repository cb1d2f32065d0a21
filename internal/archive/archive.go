// Package archive uploads finished session files to an S3-compatible bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultRegion is used when the config leaves the region empty.
const DefaultRegion = "us-east-1"

// ErrNoBucket is returned by New when no bucket is configured.
var ErrNoBucket = errors.New("archive: bucket required")

// Config selects the bucket and how to reach it.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for MinIO and other S3-compatible stores
	Prefix          string
	PathStyle       bool
	AccessKeyID     string // optional, falls back to the default credentials chain
	SecretAccessKey string
}

// objectPutter is the part of the S3 client the store needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes files under Prefix in a single bucket.
type Store struct {
	client objectPutter
	bucket string
	prefix string
	logger *slog.Logger
}

// New builds a Store from the default AWS configuration with cfg applied on top.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("archive: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newStore(client, cfg, logger), nil
}

func newStore(client objectPutter, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}
}

// Key returns the object key a local file is stored under.
func (s *Store) Key(filePath string) string {
	name := filepath.Base(filePath)
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Upload copies the file at filePath into the bucket and returns its key. The
// session name is attached as object metadata.
func (s *Store) Upload(ctx context.Context, filePath, session string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("archive: opening %s: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("archive: stat %s: %w", filePath, err)
	}

	key := s.Key(filePath)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(filePath)),
	}
	if session != "" {
		input.Metadata = map[string]string{"session": session}
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("archive: uploading %s: %w", key, err)
	}
	s.logger.Info("Session archived", "bucket", s.bucket, "key", key, "bytes", info.Size())
	return key, nil
}

func contentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".gz":
		return "application/gzip"
	case ".json":
		return "application/json"
	case ".db":
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}
