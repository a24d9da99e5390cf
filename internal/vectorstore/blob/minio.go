package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"ragkb/internal/domain"
)

// MinIOConfig locates the object holding the document.
type MinIOConfig struct {
	Endpoint     string
	AccessKeyEnv string
	SecretKeyEnv string
	Bucket       string
	Object       string
	UseSSL       bool
}

// Object keeps the document as a single object in an S3-compatible bucket.
// PutObject replaces the object in one request.
type Object struct {
	client *minio.Client
	bucket string
	object string
}

// NewObject connects to the endpoint and makes sure the bucket exists.
func NewObject(ctx context.Context, cfg MinIOConfig) (*Object, error) {
	if cfg.Bucket == "" || cfg.Object == "" {
		return nil, fmt.Errorf("minio bucket and object are required")
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv(cfg.AccessKeyEnv), os.Getenv(cfg.SecretKeyEnv), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			code := minio.ToErrorResponse(err).Code
			if code != "BucketAlreadyOwnedByYou" && code != "BucketAlreadyExists" {
				return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
			}
		}
	}
	return &Object{client: client, bucket: cfg.Bucket, object: cfg.Object}, nil
}

func (o *Object) Name() string { return o.bucket + "/" + o.object }

func (o *Object) Read(ctx context.Context) ([]byte, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, notExist(err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, notExist(err)
	}
	return data, nil
}

func (o *Object) Write(ctx context.Context, data []byte) error {
	_, err := o.client.PutObject(ctx, o.bucket, o.object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}

func notExist(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return domain.ErrNotExist
	}
	return err
}
