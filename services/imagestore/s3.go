// Package imagesvc stores activity card images.
package imagesvc

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store stores images in an S3 compatible bucket (AWS, MinIO).
type S3Store struct {
	client  putObjectAPI
	bucket  string
	baseURL string
}

var _ activity.ImageStore = (*S3Store)(nil)

func NewS3Store(ctx context.Context, conf core.StorageConfig) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(conf.Region)}
	if conf.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.AccessKey, conf.SecretKey, ""),
		))
	}
	awsConf, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}

	client := s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
		o.UsePathStyle = conf.UsePathStyle
	})
	return newS3Store(client, conf), nil
}

func newS3Store(client putObjectAPI, conf core.StorageConfig) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  conf.Bucket,
		baseURL: conf.PublicObjectURL(),
	}
}

func (s *S3Store) PutImage(ctx context.Context, key string, img activity.Image) error {
	// buffered so that the request can be signed and retried
	body, err := io.ReadAll(img.Body)
	if err != nil {
		return errors.Wrap(err, "reading image")
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(img.ContentType),
	})
	return errors.Wrapf(err, "uploading %s", key)
}

func (s *S3Store) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}
