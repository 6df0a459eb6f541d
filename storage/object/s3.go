// Package object provides the S3-compatible blob store behind
// core.FileStorage. It works against AWS S3 as well as MinIO via a custom
// endpoint.
package object

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

var _ core.FileStorage = (*Store)(nil) // interface compliance check

func NewStore(ctx context.Context, conf *core.Config) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(conf.Storage.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			conf.Storage.AccessKey,
			conf.Storage.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "loading storage config")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if conf.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Storage.Endpoint)
			o.UsePathStyle = true // MinIO
		}
	})

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  conf.Storage.Bucket,
		ttl:     conf.Storage.UploadGrantTTL,
	}, nil
}

func (st *Store) SignUpload(ctx context.Context, key, contentType string, size int64) (core.UploadGrant, error) {
	now := time.Now().UTC()
	req, err := st.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(st.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}, s3.WithPresignExpires(st.ttl))
	if err != nil {
		return core.UploadGrant{}, errors.Wrap(err, "presigning upload")
	}

	return core.UploadGrant{
		UploadURL: req.URL,
		FilePath:  key,
		ExpiresAt: now.Add(st.ttl),
	}, nil
}

func (st *Store) Stat(ctx context.Context, key string) (core.ObjectInfo, error) {
	out, err := st.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return core.ObjectInfo{}, core.ErrObjectNotFound
		}
		return core.ObjectInfo{}, errors.Wrap(err, "heading object")
	}

	info := core.ObjectInfo{Key: key}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	return info, nil
}

func (st *Store) Save(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	_, err := st.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(st.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return errors.Wrap(err, "putting object")
	}
	return nil
}

func (st *Store) Delete(ctx context.Context, key string) error {
	_, err := st.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrap(err, "deleting object")
	}
	return nil
}

// isNotFound matches the smithy API error for a missing object. HeadObject
// reports 404 as "NotFound" rather than "NoSuchKey".
func isNotFound(err error) bool {
	type apiError interface{ ErrorCode() string }
	var ae apiError
	if errors.As(err, &ae) {
		code := ae.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}
