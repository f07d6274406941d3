package storage

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// defaultS3Region signs requests to custom endpoints that have no region.
const defaultS3Region = "us-east-1"

// S3Options configures NewS3. Empty fields fall back to the default AWS
// credential and region chain.
type S3Options struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	// UsePathStyle is needed by most S3-compatible servers.
	UsePathStyle bool
}

// S3 stores objects on AWS S3 or an S3-compatible endpoint.
type S3 struct {
	client  *s3.Client
	presign *s3.PresignClient
}

func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	var load []func(*awsconfig.LoadOptions) error
	if region := opts.Region; region != "" || opts.Endpoint != "" {
		if region == "" {
			region = defaultS3Region
		}
		load = append(load, awsconfig.WithRegion(region))
	}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		load = append(load, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return &S3{client: client, presign: s3.NewPresignClient(client)}, nil
}

// input builds the PutObject request shared by uploads and presigning, so a
// presigned URL carries the same content type and length constraints.
func (s *S3) input(bucket, key string, opts PutOptions) *s3.PutObjectInput {
	in := &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Metadata: opts.Metadata,
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}
	if opts.Size > 0 {
		in.ContentLength = aws.Int64(opts.Size)
	}
	return in
}

func (s *S3) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	in := s.input(bucket, key, opts)
	in.Body = r

	out, err := s.client.PutObject(ctx, in)
	if err != nil {
		return ObjectInfo{}, err
	}

	size := opts.Size
	if out.Size != nil {
		size = *out.Size
	}
	return ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        size,
		ETag:        aws.ToString(out.ETag),
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
	}, nil
}

// DeleteObject succeeds for missing keys, as S3 itself does.
func (s *S3) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	return err
}

func (s *S3) PresignPut(ctx context.Context, bucket, key string, opts PutOptions, expiry time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, s.input(bucket, key, opts), s3.WithPresignExpires(expiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3) Close() error { return nil }
