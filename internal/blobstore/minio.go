package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mosaicmedia/media-service/internal/config"
)

// MinioStore implements ObjectStore against MinIO or any S3-compatible
// endpoint. Path-style bucket lookup is forced so non-AWS endpoints work
// without virtual-host DNS.
type MinioStore struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStore creates the client and ensures the bucket exists.
func NewMinioStore(cfg *config.MinIO) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       cfg.UseSSL,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &MinioStore{
		client:     client,
		bucketName: cfg.BucketName,
	}

	if err := store.ensureBucket(); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return store, nil
}

// ensureBucket creates the bucket if it doesn't exist
func (s *MinioStore) ensureBucket() error {
	ctx := context.Background()

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

func (s *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	return obj, nil
}

func (s *MinioStore) Head(ctx context.Context, key string) (ObjectInfo, bool, error) {
	stat, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return ObjectInfo{}, false, nil
		}
		return ObjectInfo{}, false, fmt.Errorf("stat object %q: %w", key, err)
	}

	return ObjectInfo{
		Key:          stat.Key,
		Size:         stat.Size,
		ETag:         stat.ETag,
		ContentType:  stat.ContentType,
		LastModified: stat.LastModified,
	}, true, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
}

// PresignPut signs the content type into the URL so the store rejects a PUT
// that declares a different one.
func (s *MinioStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (*url.URL, error) {
	u, err := s.client.PresignHeader(ctx, http.MethodPut, s.bucketName, key, expiry,
		url.Values{}, http.Header{"Content-Type": []string{contentType}})
	if err != nil {
		return nil, fmt.Errorf("presign put %q: %w", key, err)
	}
	return u, nil
}

func (s *MinioStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (*url.URL, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, expiry, nil)
	if err != nil {
		return nil, fmt.Errorf("presign get %q: %w", key, err)
	}
	return u, nil
}
