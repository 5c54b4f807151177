package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/book-expert/lingocast/internal/core"
)

// S3Store uploads objects to an S3 bucket.
type S3Store struct {
	s3Svc         s3iface.S3API
	bucket        string
	region        string
	publicBaseURL string
}

// NewS3Store creates a store for one bucket. When publicBaseURL is empty the
// virtual-hosted bucket URL is used for public links.
func NewS3Store(s3Svc s3iface.S3API, bucket, region, publicBaseURL string) *S3Store {
	return &S3Store{
		s3Svc:         s3Svc,
		bucket:        bucket,
		region:        region,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Upload puts the object with its content type.
func (s *S3Store) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	putInput := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	}

	_, err := s.s3Svc.PutObjectWithContext(ctx, putInput)
	if err != nil {
		var requestErr awserr.RequestFailure
		if errors.As(err, &requestErr) {
			return &core.RemoteError{
				Kind:       core.ErrUploadFailed,
				StatusCode: requestErr.StatusCode(),
				Body:       requestErr.Message(),
			}
		}

		return fmt.Errorf("%w: failed to upload object '%s' to bucket '%s': %w", core.ErrUploadFailed, key, s.bucket, err)
	}

	return nil
}

// PublicURL returns the public link of an object.
func (s *S3Store) PublicURL(key string) (string, error) {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}

	if s.region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key), nil
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}
