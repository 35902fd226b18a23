// Package storage issues presigned S3 URLs so document bytes travel directly
// between the browser and the bucket.
package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	appconfig "hrportal/internal/config"
	"hrportal/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type S3Storage struct {
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
}

// NewS3Storage loads AWS settings from the environment, overridden by cfg.
// Static credentials and a custom endpoint are used when set, e.g. for MinIO or LocalStack.
func NewS3Storage(ctx context.Context, cfg appconfig.StorageConfig) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	return NewS3StorageFromConfig(awsCfg, cfg), nil
}

func NewS3StorageFromConfig(awsCfg aws.Config, cfg appconfig.StorageConfig) *S3Storage {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3Storage{
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		expiry:    expiry,
	}
}

func (s *S3Storage) Expiry() time.Duration {
	return s.expiry
}

// KeyPrefix is the folder every object of one owner and document type lives under
func KeyPrefix(userID uuid.UUID, docType model.DocumentType) string {
	return fmt.Sprintf("documents/%s/%s/", userID, docType)
}

// ObjectKey scopes an upload under its owner and document type. The uuid prefix keeps re-uploads apart.
func (s *S3Storage) ObjectKey(userID uuid.UUID, docType model.DocumentType, fileName string) string {
	name := unsafeKeyChars.ReplaceAllString(path.Base(strings.TrimSpace(fileName)), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return KeyPrefix(userID, docType) + uuid.NewString() + "-" + name
}

func (s *S3Storage) OwnsKey(userID uuid.UUID, docType model.DocumentType, key string) bool {
	return OwnsKey(userID, docType, key)
}

// OwnsKey reports whether key is a single object directly under the owner's
// folder for docType.
func OwnsKey(userID uuid.UUID, docType model.DocumentType, key string) bool {
	name, ok := strings.CutPrefix(key, KeyPrefix(userID, docType))
	if !ok || name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}

func (s *S3Storage) PresignUpload(ctx context.Context, key, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	req, err := s.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign put object: %w", err)
	}
	return req.URL, nil
}

func (s *S3Storage) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign get object: %w", err)
	}
	return req.URL, nil
}
