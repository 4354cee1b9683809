package infra

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"storage-gateway/objects/domain"
)

// s3API é o recorte do client S3 que o store usa (permite fake nos testes).
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store implementa domain.Store sobre um bucket S3-compatível
// (Filebase, R2, minio). Metadados vão junto do PutObject, atômicos
// com a escrita do payload.
type S3Store struct {
	api    s3API
	bucket string
}

func NewS3Store(api s3API, bucket string) *S3Store {
	return &S3Store{api: api, bucket: bucket}
}

// NewClient monta um client S3 com credenciais estáticas e endpoint
// configurável (vazio usa o endpoint AWS padrão da região).
func NewClient(ctx context.Context, region, endpoint, accessKey, secretKey string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s *S3Store) Put(ctx context.Context, obj domain.Object) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(obj.Key),
		Body:   bytes.NewReader(obj.Data),
	}
	if obj.ContentType != "" {
		in.ContentType = aws.String(obj.ContentType)
	}
	if len(obj.Metadata) > 0 {
		in.Metadata = obj.Metadata
	}
	_, err := s.api.PutObject(ctx, in)
	return err
}

func (s *S3Store) Get(ctx context.Context, key string) (domain.Object, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return domain.Object{}, domain.ErrNotFound
		}
		return domain.Object{}, err
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return domain.Object{}, err
	}

	return domain.Object{
		Key:         key,
		Data:        data,
		ContentType: aws.ToString(out.ContentType),
		ETag:        aws.ToString(out.ETag),
		Metadata:    out.Metadata,
		Size:        aws.ToInt64(out.ContentLength),
		Uploaded:    aws.ToTime(out.LastModified),
	}, nil
}

func (s *S3Store) List(ctx context.Context, prefix, cursor string, limit int32) (domain.ListPage, error) {
	in := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(limit),
	}
	if cursor != "" {
		in.ContinuationToken = aws.String(cursor)
	}

	out, err := s.api.ListObjectsV2(ctx, in)
	if err != nil {
		return domain.ListPage{}, err
	}

	page := domain.ListPage{
		Objects:   make([]domain.ObjectInfo, 0, len(out.Contents)),
		Truncated: aws.ToBool(out.IsTruncated),
		Cursor:    aws.ToString(out.NextContinuationToken),
	}
	for _, o := range out.Contents {
		page.Objects = append(page.Objects, domain.ObjectInfo{
			Key:      aws.ToString(o.Key),
			Size:     aws.ToInt64(o.Size),
			Uploaded: aws.ToTime(o.LastModified),
			ETag:     aws.ToString(o.ETag),
		})
	}
	return page, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
