package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/sagarc03/stashbox"
)

// Config holds the settings needed to reach a bucket.
type Config struct {
	Bucket          string `mapstructure:"bucket" validate:"required"`
	Region          string `mapstructure:"region" validate:"required"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// API is the subset of the S3 client the store uses.
type API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// PresignAPI is the subset of the presign client the store uses.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store is an ObjectStore backed by a single S3 bucket.
type Store struct {
	client    API
	presigner PresignAPI
	bucket    string
}

// New builds an S3 client from cfg and returns a Store for cfg.Bucket.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("new s3 store: bucket cannot be empty")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new s3 store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewWithClient(client, s3.NewPresignClient(client), cfg.Bucket), nil
}

// NewWithClient returns a Store using already constructed clients.
func NewWithClient(client API, presigner PresignAPI, bucket string) *Store {
	return &Store{client: client, presigner: presigner, bucket: bucket}
}

// Put uploads body under key. When size is known it is sent as the content
// length, which S3 requires for bodies that cannot seek.
func (s *Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (stashbox.StoredObject, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return stashbox.StoredObject{}, mapError("put", key, err)
	}

	slog.Debug("object stored", "bucket", s.bucket, "key", key, "size", size)

	return stashbox.StoredObject{
		Key:          key,
		Size:         max(size, 0),
		LastModified: time.Now().UTC(),
		ContentType:  contentType,
		ETag:         trimETag(aws.ToString(out.ETag)),
	}, nil
}

// Get opens key for reading. The caller must close the returned body.
func (s *Store) Get(ctx context.Context, key string) (stashbox.StoredObject, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return stashbox.StoredObject{}, nil, mapError("get", key, err)
	}

	obj := stashbox.StoredObject{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         trimETag(aws.ToString(out.ETag)),
	}
	if obj.ContentType == "" {
		obj.ContentType = "application/octet-stream"
	}

	return obj, out.Body, nil
}

// List pages through the whole bucket. S3 does not return content types in
// listings, so ContentType is left empty.
func (s *Store) List(ctx context.Context) ([]stashbox.StoredObject, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})

	objects := []stashbox.StoredObject{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError("list", "", err)
		}

		for _, o := range page.Contents {
			objects = append(objects, stashbox.StoredObject{
				Key:          aws.ToString(o.Key),
				Size:         aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified),
				ETag:         trimETag(aws.ToString(o.ETag)),
			})
		}
	}

	slog.Debug("listed bucket", "bucket", s.bucket, "count", len(objects))
	return objects, nil
}

// Delete removes key. S3 deletes are idempotent, so the key is checked with
// HeadObject first and a missing key is reported as stashbox.ErrNotFound.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return mapError("delete", key, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return mapError("delete", key, err)
	}

	return nil
}

// PresignGet returns a presigned GetObject URL for key valid for ttl.
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", mapError("presign", key, err)
	}

	return req.URL, nil
}

// mapError wraps an SDK error in a StoreError, adding stashbox.ErrNotFound for missing keys.
func mapError(op, key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return &stashbox.StoreError{Op: op, Key: key, Err: &notFoundError{err: err}}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return &stashbox.StoreError{Op: op, Key: key, Err: &notFoundError{err: err}}
		}
	}

	return stashbox.NewStoreError(op, key, err)
}

// notFoundError keeps the SDK message while matching stashbox.ErrNotFound.
type notFoundError struct {
	err error
}

func (e *notFoundError) Error() string { return e.err.Error() }

func (e *notFoundError) Unwrap() []error { return []error{e.err, stashbox.ErrNotFound} }

func trimETag(etag string) string {
	if len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"' {
		return etag[1 : len(etag)-1]
	}
	return etag
}
