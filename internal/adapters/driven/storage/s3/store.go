// Package s3 archives bulk request/response pairs to an S3-compatible
// object store.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go"

	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.ArchiveSink   = (*Store)(nil)
	_ driven.ArchiveReader = (*Store)(nil)
)

const contentType = "application/json"

// Config holds the object store connection.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// objects is the subset of the object store client the archive needs.
type objects interface {
	put(ctx context.Context, bucket, key string, data []byte) error
	get(ctx context.Context, bucket, key string) ([]byte, error)
}

// Store writes each archived pair as one object.
type Store struct {
	objects objects
	bucket  string
	baseURL string
}

// NewStore connects to the object store and checks the bucket exists.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 endpoint and bucket are required", domain.ErrInvalidInput)
	}

	var (
		client *minio.Client
		err    error
	)
	if cfg.Region != "" {
		client, err = minio.NewWithRegion(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.UseSSL, cfg.Region)
	} else {
		client, err = minio.New(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.UseSSL)
	}
	if err != nil {
		return nil, fmt.Errorf("creating s3 client for %s: %w", cfg.Endpoint, err)
	}

	ok, err := client.BucketExists(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: bucket %s", domain.ErrNotFound, cfg.Bucket)
	}

	return newStore(&minioObjects{client: client}, cfg), nil
}

func newStore(objs objects, cfg Config) *Store {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return &Store{
		objects: objs,
		bucket:  cfg.Bucket,
		baseURL: fmt.Sprintf("%s://%s/%s/", scheme, cfg.Endpoint, cfg.Bucket),
	}
}

// Put uploads data under key and returns the object URL.
func (s *Store) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := s.objects.put(ctx, s.bucket, key, data); err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return s.baseURL + key, nil
}

// Get downloads the object stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.objects.get(ctx, s.bucket, key)
}

// minioObjects adapts *minio.Client to objects.
type minioObjects struct {
	client *minio.Client
}

func (m *minioObjects) put(ctx context.Context, bucket, key string, data []byte) error {
	_, err := m.client.PutObjectWithContext(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *minioObjects) get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := m.client.GetObjectWithContext(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, notFound(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, notFound(err)
	}
	return data, nil
}

func notFound(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return domain.ErrNotFound
	}
	return err
}
