package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectPutter is the subset of *minio.Client used by MinioSink.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader,
		objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioSink writes objects to a MinIO or other S3-compatible bucket.
type MinioSink struct {
	client objectPutter
	bucket string
	prefix string
}

// NewMinioSink wraps an existing client. prefix is prepended to every
// object name.
func NewMinioSink(client *minio.Client, bucket, prefix string) *MinioSink {
	return &MinioSink{client: client, bucket: bucket, prefix: prefix}
}

// DialMinio connects to opts.MinioEndpoint with static credentials.
func DialMinio(opts Options, bucket, prefix string) (*MinioSink, error) {
	if opts.MinioEndpoint == "" {
		return nil, fmt.Errorf("sink: minio endpoint is not configured")
	}
	client, err := minio.New(opts.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.MinioAccessKey, opts.MinioSecretKey, ""),
		Secure: opts.MinioSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("sink: minio: %w", err)
	}
	return NewMinioSink(client, bucket, prefix), nil
}

// Location returns the object URL for name.
func (s *MinioSink) Location(name string) string {
	return "minio://" + s.bucket + "/" + joinKey(s.prefix, name)
}

// Put uploads data as a single object.
func (s *MinioSink) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, joinKey(s.prefix, name),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("sink: minio put %s: %w", name, err)
	}
	return nil
}
