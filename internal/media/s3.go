package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by S3Backend.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Backend stores attachments in a single bucket under attachments/<key>.
type S3Backend struct {
	client S3API
	bucket string
}

func NewS3Backend(client S3API, bucket string) (*S3Backend, error) {
	if client == nil || bucket == "" {
		return nil, fmt.Errorf("media: s3 backend not configured")
	}
	return &S3Backend{client: client, bucket: bucket}, nil
}

const s3KeyPrefix = "attachments/"

func (b *S3Backend) Put(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	s3Key := s3KeyPrefix + key
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(s3Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("media: s3 put %s: %w", s3Key, err)
	}
	return "s3://" + b.bucket + "/" + s3Key, nil
}

func (b *S3Backend) Get(ctx context.Context, key string) ([]byte, error) {
	s3Key := s3KeyPrefix + key
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(s3Key),
	})
	if err != nil {
		return nil, fmt.Errorf("media: s3 get %s: %w", s3Key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("media: s3 read %s: %w", s3Key, err)
	}
	return data, nil
}

func (b *S3Backend) PurgeOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	removed := 0
	var token *string
	for {
		out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(s3KeyPrefix),
			ContinuationToken: token,
		})
		if err != nil {
			return removed, fmt.Errorf("media: s3 list: %w", err)
		}
		for _, obj := range out.Contents {
			if obj.Key == nil || obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
				continue
			}
			_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(b.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return removed, fmt.Errorf("media: s3 delete %s: %w", *obj.Key, err)
			}
			removed++
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			return removed, nil
		}
		token = out.NextContinuationToken
	}
}
