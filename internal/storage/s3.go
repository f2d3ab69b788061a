// Package storage provides raw blob storage for uploaded files on S3.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// BlobStore is the raw-file storage contract consumed by the file catalog
// and the content extractor.
type BlobStore interface {
	// Store uploads the bytes and returns an opaque storage id.
	Store(ctx context.Context, organizationID, filename, contentType string, data []byte) (string, error)
	// GetURL returns a presigned, time-limited URL for the object, or nil
	// if the object no longer exists.
	GetURL(ctx context.Context, storageID string) (*string, error)
	Delete(ctx context.Context, storageID string) error
	// GetMetadata returns object metadata, or nil if the object is gone.
	GetMetadata(ctx context.Context, storageID string) (*ObjectMetadata, error)
}

// ObjectMetadata describes a stored object.
type ObjectMetadata struct {
	Size        int64
	ContentType string
}

// S3Store implements BlobStore on an S3-compatible bucket.
type S3Store struct {
	bucket  string
	cli     *s3.Client
	presign *s3.PresignClient
}

// Config holds S3 connection settings.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// NewS3Store builds an S3 client. A custom endpoint enables S3-compatible
// stores (MinIO etc.) in development.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{AccessKeyID: cfg.AccessKey, SecretAccessKey: cfg.SecretKey},
		}))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: cfg.Endpoint, SigningRegion: cfg.Region}, nil
			})))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	cli := s3.NewFromConfig(awsCfg)
	return &S3Store{
		bucket:  cfg.Bucket,
		cli:     cli,
		presign: s3.NewPresignClient(cli),
	}, nil
}

// Store uploads the bytes under a per-organization key and returns the key.
func (s *S3Store) Store(ctx context.Context, organizationID, filename, contentType string, data []byte) (string, error) {
	key := path.Join("uploads", organizationID, time.Now().UTC().Format("20060102"), uuid.Must(uuid.NewV7()).String()+"-"+path.Base(filename))

	uploader := manager.NewUploader(s.cli)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return key, nil
}

// GetURL presigns a GET for the object, returning nil when it is gone.
func (s *S3Store) GetURL(ctx context.Context, storageID string) (*string, error) {
	if meta, err := s.GetMetadata(ctx, storageID); err != nil {
		return nil, err
	} else if meta == nil {
		return nil, nil
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(strings.TrimPrefix(storageID, "/")),
	}, s3.WithPresignExpires(5*time.Minute))
	if err != nil {
		return nil, err
	}
	return aws.String(req.URL), nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (s *S3Store) Delete(ctx context.Context, storageID string) error {
	_, err := s.cli.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageID),
	})
	return err
}

// GetMetadata heads the object, returning nil when it does not exist.
func (s *S3Store) GetMetadata(ctx context.Context, storageID string) (*ObjectMetadata, error) {
	out, err := s.cli.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageID),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ObjectMetadata{
		Size:        out.ContentLength,
		ContentType: aws.ToString(out.ContentType),
	}, nil
}
