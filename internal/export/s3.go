package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options locates the export object.
type S3Options struct {
	Bucket   string
	Key      string // object overwritten by every export
	Region   string
	Endpoint string // custom endpoint such as MinIO; switches to path-style addressing

	// ArchivePrefix, when set, also keeps each export under
	// <ArchivePrefix>/<UTC timestamp>.jsonl.
	ArchivePrefix string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination uploads exports to an S3-compatible bucket.
type S3Destination struct {
	client objectPutter
	opts   S3Options
	now    func() time.Time
}

// NewS3Destination loads AWS credentials from the environment and returns a
// destination for opts.
func NewS3Destination(ctx context.Context, opts S3Options) (*S3Destination, error) {
	if opts.Bucket == "" || opts.Key == "" {
		return nil, fmt.Errorf("s3 export needs a bucket and a key")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Destination(client, opts), nil
}

func newS3Destination(client objectPutter, opts S3Options) *S3Destination {
	return &S3Destination{client: client, opts: opts, now: time.Now}
}

func (d *S3Destination) String() string {
	return "s3://" + d.opts.Bucket + "/" + d.opts.Key
}

// Write uploads data to the configured key and, with an archive prefix, to
// a timestamped copy as well.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	exportedAt := d.now().UTC()
	keys := []string{d.opts.Key}
	if d.opts.ArchivePrefix != "" {
		keys = append(keys, path.Join(d.opts.ArchivePrefix, exportedAt.Format("20060102T150405Z")+".jsonl"))
	}
	for _, key := range keys {
		_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(d.opts.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/x-ndjson"),
			Metadata:    map[string]string{"exported-at": exportedAt.Format(time.RFC3339)},
		})
		if err != nil {
			return fmt.Errorf("s3 put %s: %w", key, err)
		}
	}
	return nil
}
