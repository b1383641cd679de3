package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Storage.
type S3API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Storage stores objects in one S3 bucket. Object IDs are the object keys.
type S3Storage struct {
	client        S3API
	bucketName    string
	publicBaseURL string
}

func NewS3Storage(client S3API, bucketName, publicBaseURL string) *S3Storage {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucketName)
	}
	return &S3Storage{
		client:        client,
		bucketName:    bucketName,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

func (s *S3Storage) List(ctx context.Context, prefix string) ([]Object, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucketName)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	objects := make([]Object, 0)
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", s.bucketName, err)
		}
		for _, o := range page.Contents {
			key := aws.ToString(o.Key)
			objects = append(objects, Object{ID: key, Name: key})
		}
	}

	return objects, nil
}

func (s *S3Storage) Upload(ctx context.Context, name string, body io.Reader, contentType string) (Object, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(name),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}

	return Object{ID: name, Name: name}, nil
}

func (s *S3Storage) Remove(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}

	ids := make([]s3types.ObjectIdentifier, 0, len(names))
	for _, name := range names {
		ids = append(ids, s3types.ObjectIdentifier{Key: aws.String(name)})
	}

	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucketName),
		Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to remove objects from %s: %w", s.bucketName, err)
	}

	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("failed to remove %d objects from %s, first %s: %s",
			len(out.Errors), s.bucketName, aws.ToString(first.Key), aws.ToString(first.Message))
	}

	return nil
}

func (s *S3Storage) PublicURL(name string) string {
	return s.publicBaseURL + "/" + name
}
