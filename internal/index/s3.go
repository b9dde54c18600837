package index

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sevigo/build-warden/internal/core"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store persists the index as a single S3 object.
type S3Store struct {
	client S3API
	bucket string
	key    string
}

// NewS3Store returns a store for s3://bucket/key.
func NewS3Store(client S3API, bucket, key string) *S3Store {
	return &S3Store{client: client, bucket: bucket, key: key}
}

// Location implements core.IndexStore.
func (s *S3Store) Location() string {
	return "s3://" + s.bucket + "/" + s.key
}

// Load fetches the object. A missing key yields an empty index.
func (s *S3Store) Load(ctx context.Context) (core.Index, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return New(), nil
		}
		return nil, fmt.Errorf("getting index %s: %w", s.Location(), err)
	}
	defer out.Body.Close()

	idx, err := Decode(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", s.Location(), err)
	}
	return idx, nil
}

// Save uploads the encoded index, replacing the previous object.
func (s *S3Store) Save(ctx context.Context, idx core.Index) error {
	i, err := asIndex(idx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := i.Encode(&buf); err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("putting index %s: %w", s.Location(), err)
	}
	return nil
}
