package sink

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader is the subset of *manager.Uploader used by S3Sink.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink writes objects to an Amazon S3 bucket through the transfer
// manager, which switches to multipart uploads for large parts.
type S3Sink struct {
	uploader Uploader
	bucket   string
	prefix   string
}

// NewS3Sink wraps an uploader.
func NewS3Sink(uploader Uploader, bucket, prefix string) *S3Sink {
	return &S3Sink{uploader: uploader, bucket: bucket, prefix: prefix}
}

// DialS3 loads the default AWS configuration (environment, shared config,
// instance role) and returns a sink for bucket.
func DialS3(ctx context.Context, opts Options, bucket, prefix string) (*S3Sink, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.S3Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.S3Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("sink: s3 config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return NewS3Sink(manager.NewUploader(client), bucket, prefix), nil
}

// Location returns the object URL for name.
func (s *S3Sink) Location(name string) string {
	return "s3://" + s.bucket + "/" + joinKey(s.prefix, name)
}

// Put uploads data under the sink prefix.
func (s *S3Sink) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(joinKey(s.prefix, name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("sink: s3 put %s: %w", name, err)
	}
	return nil
}
