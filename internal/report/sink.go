package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
)

const s3Scheme = "s3://"

// Sink persists an encoded report under a destination path.
type Sink interface {
	Put(ctx context.Context, dest string, data []byte) error
}

// FileSink writes reports to the local filesystem.
type FileSink struct{}

func (FileSink) Put(_ context.Context, dest string, data []byte) error {
	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "create report directory %s", dir)
		}
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return errors.Wrapf(err, "write report %s", dest)
	}
	return nil
}

// S3Sink uploads reports to s3://bucket/key destinations.
type S3Sink struct {
	uploader *s3manager.Uploader
}

func NewS3Sink(region string) (*S3Sink, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create aws session")
	}
	return &S3Sink{uploader: s3manager.NewUploader(sess)}, nil
}

func (s *S3Sink) Put(ctx context.Context, dest string, data []byte) error {
	bucket, key, err := ParseS3Path(dest)
	if err != nil {
		return err
	}
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrapf(err, "upload report to %s", dest)
	}
	return nil
}

// IsS3Path reports whether dest names an S3 object.
func IsS3Path(dest string) bool {
	return strings.HasPrefix(dest, s3Scheme)
}

// ParseS3Path splits s3://bucket/key.
func ParseS3Path(dest string) (bucket, key string, err error) {
	if !IsS3Path(dest) {
		return "", "", errors.Errorf("not an s3 path: %s", dest)
	}
	rest := strings.TrimPrefix(dest, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", errors.Errorf("s3 path must look like s3://bucket/key: %s", dest)
	}
	return bucket, key, nil
}

// NewSink picks the sink matching dest.
func NewSink(dest, region string) (Sink, error) {
	if IsS3Path(dest) {
		return NewS3Sink(region)
	}
	return FileSink{}, nil
}

// Write encodes r and hands it to sink.
func Write(ctx context.Context, sink Sink, dest string, r *Report) error {
	data, err := r.Marshal()
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	return sink.Put(ctx, dest, data)
}
