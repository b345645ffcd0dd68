package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"github.com/starford/gebo/internal/apperr"
)

// metadata key under which the original filename travels, since S3 keys
// are opaque ids.
const s3FilenameKey = "filename"

// S3 implements Store on top of an S3 bucket. Objects are keyed by id
// and carry filename plus caller metadata as S3 object metadata.
type S3 struct {
	client *s3.Client
	bucket string
}

// S3Options configures the S3 provider.
type S3Options struct {
	Bucket         string
	Region         string
	Endpoint       string // optional, for S3-compatible stores
	ForcePathStyle bool
}

// NewS3 builds an S3 provider using the default AWS credential chain.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("blob: s3 bucket is required")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("blob: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})
	return &S3{client: client, bucket: opts.Bucket}, nil
}

// NewS3WithClient wires an existing client, used by tests.
func NewS3WithClient(client *s3.Client, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// Put uploads the object. The body is buffered to detect the content
// type and to give the SDK a seekable reader.
func (s *S3) Put(ctx context.Context, id, filename string, r io.Reader, meta Metadata) (*Object, error) {
	if id == "" {
		return nil, fmt.Errorf("blob: id is required")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("blob: read body: %w", err)
	}
	contentType := mimetype.Detect(data).String()

	md := map[string]string{s3FilenameKey: filename}
	for k, v := range meta {
		md[k] = v
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(id),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    md,
	})
	if err != nil {
		return nil, fmt.Errorf("blob: put %s: %w", id, err)
	}
	return &Object{
		ID:          id,
		Filename:    filename,
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata:    meta,
	}, nil
}

// Open fetches the object body and description.
func (s *S3) Open(ctx context.Context, id string) (io.ReadCloser, *Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("blob: open %s: %w", id, s.mapErr(err))
	}
	obj := &Object{ID: id, Metadata: Metadata{}}
	if out.ContentLength != nil {
		obj.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		obj.ContentType = *out.ContentType
	}
	for k, v := range out.Metadata {
		if k == s3FilenameKey {
			obj.Filename = v
			continue
		}
		obj.Metadata[k] = v
	}
	return out.Body, obj, nil
}

// Stat describes the object without fetching the body.
func (s *S3) Stat(ctx context.Context, id string) (*Object, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return nil, fmt.Errorf("blob: stat %s: %w", id, s.mapErr(err))
	}
	obj := &Object{ID: id, Metadata: Metadata{}}
	if out.ContentLength != nil {
		obj.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		obj.ContentType = *out.ContentType
	}
	for k, v := range out.Metadata {
		if k == s3FilenameKey {
			obj.Filename = v
			continue
		}
		obj.Metadata[k] = v
	}
	return obj, nil
}

// Delete removes the object. Deleting a missing key succeeds, matching
// S3 semantics.
func (s *S3) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("blob: delete %s: %w", id, err)
	}
	return nil
}

// URI returns the s3:// location of the object.
func (s *S3) URI(id string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, id)
}

func (s *S3) mapErr(err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return apperr.ErrNotFound
	}
	return err
}
