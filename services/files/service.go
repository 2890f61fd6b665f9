// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// ErrBucketExists is returned when creating a bucket that already exists.
var ErrBucketExists = errors.New("files: bucket already exists")

// ErrNotFound is returned for missing buckets or objects.
var ErrNotFound = errors.New("files: not found")

// BucketInfo describes one bucket in a listing.
type BucketInfo struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ObjectInfo describes one object in a listing. Entries with IsFolder set
// are pseudo-folders derived from the "/" delimiter, not real objects.
type ObjectInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
	IsFolder     bool      `json:"is_folder"`
}

// ObjectContent is a downloaded object: the reader streams the body and must
// be closed by the caller.
type ObjectContent struct {
	Reader      io.ReadCloser
	Size        int64
	ContentType string
}

// Service wraps an object storage client for the HTTP layer.
//
// Thread Safety: Service is safe for concurrent use.
type Service struct {
	client    *storage.Client
	projectID string
	urlTTL    time.Duration
	logger    *slog.Logger
}

// NewService creates the storage service. The client picks up credentials
// from the environment.
func NewService(ctx context.Context, cfg *Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("files: creating storage client: %w", err)
	}
	return &Service{
		client:    client,
		projectID: cfg.ProjectID,
		urlTTL:    cfg.SignedURLTTL,
		logger:    logger,
	}, nil
}

// Close releases the underlying storage client.
func (s *Service) Close() error {
	return s.client.Close()
}

// ListBuckets lists every bucket in the configured project.
func (s *Service) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	buckets := make([]BucketInfo, 0)
	it := s.client.Buckets(ctx, s.projectID)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("files: listing buckets: %w", err)
		}
		buckets = append(buckets, BucketInfo{
			Name:      attrs.Name,
			CreatedAt: attrs.Created,
		})
	}
	return buckets, nil
}

// CreateBucket creates a bucket, returning ErrBucketExists when the name is
// already taken.
func (s *Service) CreateBucket(ctx context.Context, name string) error {
	err := s.client.Bucket(name).Create(ctx, s.projectID, nil)
	if err != nil {
		if isConflict(err) {
			return ErrBucketExists
		}
		return fmt.Errorf("files: creating bucket %q: %w", name, err)
	}
	s.logger.Info("bucket created", slog.String("bucket", name))
	return nil
}

// ListObjects lists objects under a prefix, one level deep. The "/"
// delimiter turns deeper paths into pseudo-folder entries.
func (s *Service) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	objects := make([]ObjectInfo, 0)
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{
		Prefix:    prefix,
		Delimiter: "/",
	})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			if errors.Is(err, storage.ErrBucketNotExist) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("files: listing objects in %q: %w", bucket, err)
		}
		if attrs.Prefix != "" {
			objects = append(objects, ObjectInfo{Name: attrs.Prefix, IsFolder: true})
			continue
		}
		objects = append(objects, ObjectInfo{
			Name:         attrs.Name,
			Size:         attrs.Size,
			ContentType:  attrs.ContentType,
			LastModified: attrs.Updated,
		})
	}
	return objects, nil
}

// Upload writes an object from a stream, returning the number of bytes
// stored.
func (s *Service) Upload(ctx context.Context, bucket, object, contentType string, body io.Reader) (int64, error) {
	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	written, err := io.Copy(w, body)
	if err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("files: writing object %q: %w", object, err)
	}
	if err := w.Close(); err != nil {
		if errors.Is(err, storage.ErrBucketNotExist) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("files: finalizing object %q: %w", object, err)
	}

	s.logger.Info("object uploaded",
		slog.String("bucket", bucket),
		slog.String("object", object),
		slog.Int64("bytes", written),
	)
	return written, nil
}

// Download opens an object for reading. The caller must close the returned
// reader.
func (s *Service) Download(ctx context.Context, bucket, object string) (*ObjectContent, error) {
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("files: opening object %q: %w", object, err)
	}
	return &ObjectContent{
		Reader:      r,
		Size:        r.Attrs.Size,
		ContentType: r.Attrs.ContentType,
	}, nil
}

// Delete removes an object.
func (s *Service) Delete(ctx context.Context, bucket, object string) error {
	err := s.client.Bucket(bucket).Object(object).Delete(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("files: deleting object %q: %w", object, err)
	}
	s.logger.Info("object deleted",
		slog.String("bucket", bucket),
		slog.String("object", object),
	)
	return nil
}

// SignedURL generates a time-limited download URL for an object. A zero ttl
// selects the configured default.
func (s *Service) SignedURL(bucket, object string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = s.urlTTL
	}
	expires := time.Now().Add(ttl)
	url, err := s.client.Bucket(bucket).SignedURL(object, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: expires,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("files: signing URL for %q: %w", object, err)
	}
	return url, expires, nil
}

// isConflict reports whether a storage error indicates the resource already
// exists.
func isConflict(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == 409
	}
	return false
}
