// Package gcloudstorage stores source images and results in Google Cloud Storage
package gcloudstorage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/cshum/wandkit"
	"github.com/cshum/wandkit/pipeline"
	metrics "github.com/cshum/wandkit/storage"
)

// GCloudStorage Google Cloud Storage implements wandkit.Storage interface
type GCloudStorage struct {
	BaseDir      string
	PathPrefix   string
	ACL          string
	CacheControl string
	SafeChars    string
	Expiration   time.Duration
	Bucket       string

	client    *storage.Client
	safeChars map[byte]bool
	noEscape  bool
}

// New creates GCloudStorage
func New(client *storage.Client, bucket string, options ...Option) *GCloudStorage {
	s := &GCloudStorage{
		client:     client,
		Bucket:     bucket,
		PathPrefix: "/",
		safeChars:  map[byte]bool{},
	}
	for _, option := range options {
		option(s)
	}
	// "--" disables escaping altogether
	s.noEscape = s.SafeChars == "--"
	for _, c := range s.SafeChars {
		s.safeChars[byte(c)] = true
	}
	return s
}

func (s *GCloudStorage) escapeByte(c byte) bool {
	return !s.noEscape && pipeline.DefaultEscapeByte(c) && !s.safeChars[c]
}

// Path transforms and validates image key for object name
func (s *GCloudStorage) Path(image string) (string, bool) {
	image = "/" + pipeline.Normalize(image, s.escapeByte)
	if !strings.HasPrefix(image, s.PathPrefix) {
		return "", false
	}
	joined := path.Join("/", s.BaseDir, strings.TrimPrefix(image, s.PathPrefix))
	// object names do not start with "/"
	return strings.Trim(joined, "/"), true
}

// Get implements wandkit.Storage interface
func (s *GCloudStorage) Get(r *http.Request, image string) (blob *wandkit.Blob, err error) {
	done := metrics.Track("gcloud", "get")
	defer func() { done(err) }()
	ctx := r.Context()
	name, ok := s.Path(image)
	if !ok {
		return nil, wandkit.ErrInvalid
	}
	object := s.client.Bucket(s.Bucket).Object(name)
	attrs, err := object.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, wandkit.ErrNotFound
		}
		return nil, err
	}
	if s.Expiration > 0 && time.Since(attrs.Updated) > s.Expiration {
		return nil, wandkit.ErrExpired
	}
	blob = wandkit.NewBlob(func() (io.ReadCloser, int64, error) {
		reader, err := object.NewReader(ctx)
		if err != nil {
			return nil, 0, err
		}
		if attrs.ContentEncoding == "gzip" {
			// transcoded on read, stored size does not apply
			return reader, 0, nil
		}
		return reader, attrs.Size, nil
	})
	if attrs.ContentType != "" {
		blob.SetContentType(attrs.ContentType)
	}
	blob.Stat = statOf(attrs)
	return blob, nil
}

// Put implements wandkit.Storage interface
func (s *GCloudStorage) Put(ctx context.Context, image string, blob *wandkit.Blob) (err error) {
	done := metrics.Track("gcloud", "put")
	defer func() { done(err) }()
	name, ok := s.Path(image)
	if !ok {
		return wandkit.ErrInvalid
	}
	buf, err := blob.ReadAll()
	if err != nil {
		return err
	}
	writer := s.client.Bucket(s.Bucket).Object(name).NewWriter(ctx)
	if s.ACL != "" {
		writer.PredefinedACL = s.ACL
	}
	writer.ContentType = blob.ContentType()
	if s.CacheControl != "" {
		writer.CacheControl = s.CacheControl
	}
	if _, err = writer.Write(buf); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

// Delete implements wandkit.Storage interface
func (s *GCloudStorage) Delete(ctx context.Context, image string) (err error) {
	done := metrics.Track("gcloud", "delete")
	defer func() { done(err) }()
	name, ok := s.Path(image)
	if !ok {
		return wandkit.ErrInvalid
	}
	return s.client.Bucket(s.Bucket).Object(name).Delete(ctx)
}

// Stat implements wandkit.Storage interface
func (s *GCloudStorage) Stat(ctx context.Context, image string) (*wandkit.Stat, error) {
	name, ok := s.Path(image)
	if !ok {
		return nil, wandkit.ErrInvalid
	}
	attrs, err := s.client.Bucket(s.Bucket).Object(name).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, wandkit.ErrNotFound
		}
		return nil, err
	}
	return statOf(attrs), nil
}

func statOf(attrs *storage.ObjectAttrs) *wandkit.Stat {
	return &wandkit.Stat{
		Size:         attrs.Size,
		ETag:         attrs.Etag,
		ModifiedTime: attrs.Updated,
	}
}
