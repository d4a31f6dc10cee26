package store

import (
	"bytes"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Sync uploads a finished run's artifacts to an S3 bucket. Nothing in the
// run command constructs one: storage.s3_bucket and storage.s3_prefix are
// parsed, but a run uploads nothing by itself.
type S3Sync struct {
	svc    *s3.S3
	bucket string
	prefix string
}

// NewS3Sync creates a sync client for bucket, using credentials resolved
// the standard AWS SDK way (environment, shared config, or instance role).
func NewS3Sync(region, bucket, prefix string) (*S3Sync, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("store: create aws session: %w", err)
	}
	return &S3Sync{svc: s3.New(sess), bucket: bucket, prefix: prefix}, nil
}

// UploadFile uploads one local file to bucket/prefix/relPath.
func (s *S3Sync) UploadFile(localPath, relPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("store: read %s for upload: %w", localPath, err)
	}

	key := filepath.ToSlash(filepath.Join(s.prefix, relPath))
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.svc.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return err
}

// UploadRunDir walks a run's directory tree and uploads every file,
// preserving its relative path as the S3 key suffix.
func (s *S3Sync) UploadRunDir(runRoot string) error {
	return filepath.Walk(runRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(runRoot, path)
		if err != nil {
			return err
		}
		return s.UploadFile(path, rel)
	})
}
