package s3storage

import (
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cshum/wandkit/storage"
)

// Option S3Storage option
type Option func(s *S3Storage)

// WithBaseDir stores objects under the key prefix dir
func WithBaseDir(dir string) Option {
	return func(s *S3Storage) {
		if dir != "" {
			s.BaseDir = storage.CleanDir(dir)
		}
	}
}

// WithPathPrefix serves only image keys under prefix
func WithPathPrefix(prefix string) Option {
	return func(s *S3Storage) {
		if prefix != "" {
			s.PathPrefix = storage.CleanDir(prefix)
		}
	}
}

// WithACL sets the canned ACL of stored images, ignoring unknown values
func WithACL(acl string) Option {
	return func(s *S3Storage) {
		if slices.Contains(types.ObjectCannedACL("").Values(), types.ObjectCannedACL(acl)) {
			s.ACL = acl
		}
	}
}

// WithStorageClass sets the storage class of stored images, STANDARD for unknown values
func WithStorageClass(class string) Option {
	return func(s *S3Storage) {
		s.StorageClass = string(types.StorageClassStandard)
		if slices.Contains(types.StorageClass("").Values(), types.StorageClass(class)) {
			s.StorageClass = class
		}
	}
}

// WithCacheControl sets the Cache-Control header of stored images,
// served as is when the bucket fronts a CDN
func WithCacheControl(cacheControl string) Option {
	return func(s *S3Storage) {
		s.CacheControl = cacheControl
	}
}

// WithSafeChars excludes chars from image key escaping
func WithSafeChars(chars string) Option {
	return func(s *S3Storage) {
		if chars != "" {
			s.SafeChars = chars
		}
	}
}

// WithExpiration treats objects older than exp as expired
func WithExpiration(exp time.Duration) Option {
	return func(s *S3Storage) {
		if exp > 0 {
			s.Expiration = exp
		}
	}
}

// WithEndpoint targets an S3 compatible service
func WithEndpoint(endpoint string) Option {
	return func(s *S3Storage) {
		if endpoint != "" {
			s.Endpoint = endpoint
		}
	}
}

// WithForcePathStyle addresses buckets as endpoint/bucket/key
func WithForcePathStyle(forcePathStyle bool) Option {
	return func(s *S3Storage) {
		s.ForcePathStyle = forcePathStyle
	}
}
