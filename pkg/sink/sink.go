// Package sink stores output files: in a local directory, a MinIO bucket
// or an Amazon S3 bucket. Every Put is all-or-nothing; a failed Put never
// leaves a truncated object under the target name.
package sink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnsupportedScheme is returned by Open for unknown URL schemes.
var ErrUnsupportedScheme = errors.New("sink: unsupported scheme")

// Sink receives named output files.
type Sink interface {
	// Put stores data under name, replacing any existing object.
	Put(ctx context.Context, name string, data []byte) error
	// Location returns a human-readable address for name.
	Location(name string) string
}

// Cleaner is implemented by sinks that can remove objects left behind by
// an earlier run.
type Cleaner interface {
	// Clean removes every object whose name starts with prefix and
	// reports how many were removed.
	Clean(ctx context.Context, prefix string) (int, error)
}

// Options carries the credentials and endpoints remote sinks need.
type Options struct {
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioSecure    bool
	S3Region       string
}

// Open returns the sink addressed by location: "minio://bucket/prefix",
// "s3://bucket/prefix", or otherwise a local directory path which is
// created if missing.
func Open(ctx context.Context, location string, opts Options) (Sink, error) {
	if !strings.Contains(location, "://") {
		return NewLocalSink(location)
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	bucket := u.Host
	prefix := strings.TrimPrefix(u.Path, "/")
	if bucket == "" {
		return nil, fmt.Errorf("sink: %s: missing bucket", location)
	}

	switch u.Scheme {
	case "minio":
		return DialMinio(opts, bucket, prefix)
	case "s3":
		return DialS3(ctx, opts, bucket, prefix)
	case "file":
		return NewLocalSink(u.Path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

// joinKey joins an object prefix and a name with a single slash.
func joinKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
