package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client the syncer uses.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Syncer downloads a client bundle from S3 into a local directory so
// the gateway can serve it as static files and read lazy module bundles
// from disk.
type S3Syncer struct {
	client S3API
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Syncer creates a syncer over an existing S3 client.
func NewS3Syncer(client S3API, bucket, prefix string, logger *slog.Logger) *S3Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Syncer{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

// NewS3SyncerFromEnv creates a syncer using the default AWS credential
// chain (environment, shared config, instance role).
func NewS3SyncerFromEnv(ctx context.Context, bucket, prefix string, logger *slog.Logger) (*S3Syncer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3Syncer(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

// Sync downloads every object under the configured prefix into destDir,
// preserving relative keys as file paths. Existing files are
// overwritten. Returns the number of files written.
func (s *S3Syncer) Sync(ctx context.Context, destDir string) (int, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("create bundle dir: %w", err)
	}

	count := 0
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return count, fmt.Errorf("list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			rel := strings.TrimPrefix(key, s.prefix)
			rel = strings.TrimPrefix(rel, "/")
			if rel == "" || strings.HasSuffix(rel, "/") {
				continue
			}

			if err := s.downloadObject(ctx, key, filepath.Join(destDir, filepath.FromSlash(rel))); err != nil {
				return count, err
			}
			count++
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}

	s.logger.Info("bundle synced from s3", "bucket", s.bucket, "prefix", s.prefix, "files", count)
	return count, nil
}

// downloadObject fetches one object into a local file.
func (s *S3Syncer) downloadObject(ctx context.Context, key, dest string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", dest, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
