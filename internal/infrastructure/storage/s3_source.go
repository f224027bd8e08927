package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/meritledger/backend/internal/application/reconciliation"
	"github.com/meritledger/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// s3API is the subset of *s3.Client the document source needs
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3DocumentSource serves the batch inbox from an S3-compatible bucket.
// The inbox, archive and failed directories are key prefixes; a move is a
// copy followed by removal of the inbox key.
type S3DocumentSource struct {
	client  s3API
	bucket  string
	inbox   string
	archive string
	failed  string
	logger  *zap.Logger
	now     func() time.Time
}

// NewS3Client builds an S3 client from configuration. Static credentials are
// used when both keys are set, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// NewS3DocumentSource creates a document source over bucket
func NewS3DocumentSource(client *s3.Client, bucket string, batch config.BatchConfig, logger *zap.Logger) (*S3DocumentSource, error) {
	return newS3DocumentSource(client, bucket, batch, logger)
}

func newS3DocumentSource(client s3API, bucket string, batch config.BatchConfig, logger *zap.Logger) (*S3DocumentSource, error) {
	if bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	return &S3DocumentSource{
		client:  client,
		bucket:  bucket,
		inbox:   prefix(batch.InboxDir),
		archive: prefix(batch.ArchiveDir),
		failed:  prefix(batch.FailedDir),
		logger:  logger,
		now:     time.Now,
	}, nil
}

func prefix(dir string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return ""
	}
	return dir + "/"
}

// List returns supported objects directly under the inbox prefix, sorted by key
func (s *S3DocumentSource) List(ctx context.Context) ([]reconciliation.SourceFile, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.inbox),
		Delimiter: aws.String("/"),
	})

	var files []reconciliation.SourceFile
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list inbox: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := path.Base(key)
			if key == s.inbox || !IsSupported(name) {
				continue
			}
			files = append(files, reconciliation.SourceFile{Key: key, Name: name})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// Read downloads an object
func (s *S3DocumentSource) Read(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Archive moves a processed object under the archive prefix
func (s *S3DocumentSource) Archive(ctx context.Context, key string) error {
	return s.move(ctx, key, s.archive)
}

// Fail moves a rejected object under the failed prefix
func (s *S3DocumentSource) Fail(ctx context.Context, key string) error {
	return s.move(ctx, key, s.failed)
}

func (s *S3DocumentSource) move(ctx context.Context, key, dest string) error {
	target := dest + stampedName(path.Base(key), s.now())
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(target),
		CopySource: aws.String(copySource(s.bucket, key)),
	})
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", key, err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to remove %s from inbox: %w", key, err)
	}
	s.logger.Debug("Moved inbox object", zap.String("from", key), zap.String("to", target))
	return nil
}

// copySource escapes each key segment but keeps the separators
func copySource(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return bucket + "/" + strings.Join(parts, "/")
}

var _ reconciliation.DocumentSource = (*S3DocumentSource)(nil)
