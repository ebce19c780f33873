package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/petavatar/api/internal/config"
)

// ObjectInfo is the metadata returned by a head lookup.
type ObjectInfo struct {
	Exists      bool
	Size        int64
	ContentType string
}

// StorageClient defines the object store operations the service needs.
type StorageClient interface {
	Head(ctx context.Context, bucket, key string) (*ObjectInfo, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Upload(ctx context.Context, bucket, key string, body []byte, contentType string) error
	// PresignGet issues a time-limited read grant for a stored object.
	PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
	// PresignPut issues a time-limited upload grant for a key.
	PresignPut(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// S3Client implements StorageClient against S3 or any S3-compatible store.
type S3Client struct {
	s3Client  *s3.Client
	presigner *s3.PresignClient
}

func NewS3Client(cfg *config.S3Config) (*S3Client, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("S3 configuration incomplete")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	}
	if cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.Endpoint}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})

	return &S3Client{
		s3Client:  s3Client,
		presigner: s3.NewPresignClient(s3Client),
	}, nil
}

func (c *S3Client) Head(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	out, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return &ObjectInfo{Exists: false}, nil
		}
		return nil, fmt.Errorf("failed to head s3://%s/%s: %w", bucket, key, err)
	}

	info := &ObjectInfo{Exists: true}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	return info, nil
}

func (c *S3Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (c *S3Client) Upload(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (c *S3Client) PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign GET for s3://%s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

func (c *S3Client) PresignPut(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	req, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign PUT for s3://%s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}
