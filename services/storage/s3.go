package storage

import (
	"context"
	"fmt"
	"time"

	"venuebook/utils/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the slice of the S3 client the storage service uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// PresignFunc returns a time-limited GET URL for bucket/key.
type PresignFunc func(ctx context.Context, bucket, key string, expires time.Duration) (string, error)

// S3Storage keeps documents in a private S3 bucket.
type S3Storage struct {
	client  S3API
	presign PresignFunc
	bucket  string
}

// NewS3StorageWithClient builds an S3Storage around existing clients.
func NewS3StorageWithClient(client S3API, presign PresignFunc, bucket string) *S3Storage {
	return &S3Storage{client: client, presign: presign, bucket: bucket}
}

// S3Config configures NewS3Storage. Endpoint is set for S3-compatible
// services such as MinIO.
type S3Config struct {
	Region   string
	Bucket   string
	Endpoint string
	// Static keys override the default credential chain when both are set.
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3Config) loadOptions() []func(*awsconfig.LoadOptions) error {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}
	return opts
}

// NewS3Storage builds an S3Storage from cfg, falling back to the default
// AWS credential chain.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, cfg.loadOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	presigner := s3.NewPresignClient(client)

	presign := func(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
		req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(expires))
		if err != nil {
			return "", err
		}
		return req.URL, nil
	}
	return NewS3StorageWithClient(client, presign, cfg.Bucket), nil
}

func (s *S3Storage) Upload(ctx context.Context, obj Object) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(obj.Path),
		Body:          obj.Body,
		ContentType:   aws.String(obj.ContentType),
		ContentLength: aws.Int64(obj.Size),
	})
	return apperr.External("s3", err)
}

// Delete removes the object. S3 reports success for missing keys.
func (s *S3Storage) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	return apperr.External("s3", err)
}

func (s *S3Storage) SignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	url, err := s.presign(ctx, s.bucket, path, ClampExpiry(expires))
	if err != nil {
		return "", apperr.External("s3", err)
	}
	return url, nil
}

// List returns every object under prefix.
func (s *S3Storage) List(ctx context.Context, prefix string) ([]StoredObject, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	var objects []StoredObject
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, apperr.External("s3", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, StoredObject{Path: aws.ToString(obj.Key), ModifiedAt: aws.ToTime(obj.LastModified)})
		}
	}
	return objects, nil
}
