// Package s3 provides a fragments.DataStore backed by S3 or an
// S3-compatible service such as MinIO. Blobs are keyed as
// "<ownerID>/<fragmentID>", so owner scoping is a key prefix and no
// operation can reach another owner's objects.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fragsvc/fragments/pkg/fragments"
)

// Config options for the S3 backend.
type Config struct {
	Region          string // AWS region (default: us-east-1)
	Bucket          string // S3 bucket name
	AccessKeyID     string // static credentials; default chain when empty
	SecretAccessKey string
	Endpoint        string // optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // path-style addressing (MinIO)

	CreateBucketIfNotExist bool
}

// Store is the S3 data store.
type Store struct {
	client *s3.Client
	bucket string
	region string
}

var _ fragments.DataStore = (*Store)(nil)

// New creates an S3-backed data store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	store := &Store{
		client: s3.NewFromConfig(awsCfg, s3Options...),
		bucket: cfg.Bucket,
		region: cfg.Region,
	}

	if cfg.CreateBucketIfNotExist {
		if err := store.createBucketIfNotExists(ctx); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return store, nil
}

func (s *Store) createBucketIfNotExists(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	// MinIO reports a missing bucket inconsistently across versions.
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) &&
		!strings.Contains(err.Error(), "BadRequest") &&
		!strings.Contains(err.Error(), "NoSuchBucket") {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	createInput := &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	}
	if s.region != "us-east-1" {
		createInput.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	_, err = s.client.CreateBucket(ctx, createInput)
	if err != nil {
		if strings.Contains(err.Error(), "BucketAlreadyExists") ||
			strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func objectKey(ownerID, fragmentID string) string {
	return ownerID + "/" + fragmentID
}

func (s *Store) PutData(ctx context.Context, ownerID, fragmentID string, data []byte) error {
	uploader := manager.NewUploader(s.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(ownerID, fragmentID)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return &fragments.StorageError{
			Backend: "s3",
			Key:     objectKey(ownerID, fragmentID),
			Op:      "put",
			Err:     err,
		}
	}
	return nil
}

func (s *Store) GetData(ctx context.Context, ownerID, fragmentID string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(ownerID, fragmentID)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fragments.ErrNotFound
		}
		return nil, &fragments.StorageError{
			Backend: "s3",
			Key:     objectKey(ownerID, fragmentID),
			Op:      "get",
			Err:     err,
		}
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, &fragments.StorageError{
			Backend: "s3",
			Key:     objectKey(ownerID, fragmentID),
			Op:      "get",
			Err:     err,
		}
	}
	return data, nil
}

func (s *Store) DeleteData(ctx context.Context, ownerID, fragmentID string) error {
	// DeleteObject succeeds for missing keys, which matches the service's
	// tolerance for an already-absent blob during delete.
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(ownerID, fragmentID)),
	})
	if err != nil {
		return &fragments.StorageError{
			Backend: "s3",
			Key:     objectKey(ownerID, fragmentID),
			Op:      "delete",
			Err:     err,
		}
	}
	return nil
}
