// Package s3storage stores source images and results in an S3 bucket
package s3storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cshum/wandkit"
	"github.com/cshum/wandkit/pipeline"
	"github.com/cshum/wandkit/storage"
)

// S3Storage AWS S3 Storage implements wandkit.Storage interface
type S3Storage struct {
	Client *s3.Client
	Bucket string

	BaseDir        string
	PathPrefix     string
	ACL            string
	SafeChars      string
	StorageClass   string
	CacheControl   string
	Expiration     time.Duration
	Endpoint       string
	ForcePathStyle bool

	safeChars map[byte]bool
}

// New creates S3Storage, a bucket of form "bucket/base/dir" sets BaseDir
func New(cfg aws.Config, bucket string, options ...Option) *S3Storage {
	baseDir := "/"
	if idx := strings.Index(bucket, "/"); idx > -1 {
		baseDir = bucket[idx:]
		bucket = bucket[:idx]
	}
	s := &S3Storage{
		Bucket:       bucket,
		BaseDir:      baseDir,
		PathPrefix:   "/",
		ACL:          string(types.ObjectCannedACLPublicRead),
		StorageClass: string(types.StorageClassStandard),
		safeChars:    map[byte]bool{},
	}
	for _, option := range options {
		option(s)
	}
	// https://docs.aws.amazon.com/AmazonS3/latest/userguide/object-keys.html#object-key-guidelines-safe-characters
	for _, c := range "!\"()*" + s.SafeChars {
		s.safeChars[byte(c)] = true
	}
	s.Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			// S3 compatible services rarely support default checksums
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
		o.UsePathStyle = s.ForcePathStyle
	})
	return s
}

func (s *S3Storage) escapeByte(c byte) bool {
	return pipeline.DefaultEscapeByte(c) && !s.safeChars[c]
}

// Path transforms and validates image key for storage path
func (s *S3Storage) Path(image string) (string, bool) {
	image = "/" + pipeline.Normalize(image, s.escapeByte)
	if !strings.HasPrefix(image, s.PathPrefix) {
		return "", false
	}
	return path.Join(s.BaseDir, strings.TrimPrefix(image, s.PathPrefix)), true
}

func (s *S3Storage) key(image string) (string, bool) {
	p, ok := s.Path(image)
	return strings.TrimPrefix(p, "/"), ok
}

// Get implements wandkit.Storage interface, the object is fetched on first read
func (s *S3Storage) Get(r *http.Request, image string) (*wandkit.Blob, error) {
	ctx := r.Context()
	key, ok := s.key(image)
	if !ok {
		return nil, wandkit.ErrInvalid
	}
	var blob *wandkit.Blob
	blob = wandkit.NewBlob(func() (_ io.ReadCloser, _ int64, err error) {
		done := storage.Track("s3", "get")
		defer func() { done(err) }()
		out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(key),
		})
		if isNotFound(err) {
			return nil, 0, wandkit.ErrNotFound
		} else if err != nil {
			return nil, 0, err
		}
		if s.Expiration > 0 && out.LastModified != nil &&
			time.Since(*out.LastModified) > s.Expiration {
			_ = out.Body.Close()
			return nil, 0, wandkit.ErrExpired
		}
		if out.ContentType != nil {
			blob.SetContentType(*out.ContentType)
		}
		blob.Stat = &wandkit.Stat{
			Size:         aws.ToInt64(out.ContentLength),
			ETag:         aws.ToString(out.ETag),
			ModifiedTime: aws.ToTime(out.LastModified),
		}
		return out.Body, aws.ToInt64(out.ContentLength), nil
	})
	return blob, nil
}

// Put implements wandkit.Storage interface
func (s *S3Storage) Put(ctx context.Context, image string, blob *wandkit.Blob) (err error) {
	done := storage.Track("s3", "put")
	defer func() { done(err) }()
	key, ok := s.key(image)
	if !ok {
		return wandkit.ErrInvalid
	}
	buf, err := blob.ReadAll()
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		ACL:           types.ObjectCannedACL(s.ACL),
		Body:          bytes.NewReader(buf),
		Bucket:        aws.String(s.Bucket),
		ContentType:   aws.String(blob.ContentType()),
		ContentLength: aws.Int64(int64(len(buf))),
		Key:           aws.String(key),
		StorageClass:  types.StorageClass(s.StorageClass),
	}
	if s.CacheControl != "" {
		input.CacheControl = aws.String(s.CacheControl)
	}
	_, err = s.Client.PutObject(ctx, input)
	return err
}

// Delete implements wandkit.Storage interface
func (s *S3Storage) Delete(ctx context.Context, image string) (err error) {
	done := storage.Track("s3", "delete")
	defer func() { done(err) }()
	key, ok := s.key(image)
	if !ok {
		return wandkit.ErrInvalid
	}
	_, err = s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	return err
}

// Stat implements wandkit.Storage interface
func (s *S3Storage) Stat(ctx context.Context, image string) (*wandkit.Stat, error) {
	key, ok := s.key(image)
	if !ok {
		return nil, wandkit.ErrInvalid
	}
	head, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil, wandkit.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &wandkit.Stat{
		Size:         aws.ToInt64(head.ContentLength),
		ETag:         aws.ToString(head.ETag),
		ModifiedTime: aws.ToTime(head.LastModified),
	}, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		code := ae.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
