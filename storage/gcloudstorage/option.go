package gcloudstorage

import (
	"slices"
	"strings"
	"time"

	"github.com/cshum/wandkit/storage"
)

// Option GCloudStorage option
type Option func(s *GCloudStorage)

// predefinedACLs accepted by object inserts
var predefinedACLs = []string{
	"authenticatedRead", "bucketOwnerFullControl", "bucketOwnerRead",
	"private", "projectPrivate", "publicRead",
}

// WithBaseDir stores objects under the name prefix dir
func WithBaseDir(dir string) Option {
	return func(s *GCloudStorage) {
		if dir != "" {
			// object names do not start with "/"
			s.BaseDir = strings.Trim(storage.CleanDir(dir), "/")
		}
	}
}

// WithPathPrefix serves only image keys under prefix
func WithPathPrefix(prefix string) Option {
	return func(s *GCloudStorage) {
		if prefix != "" {
			s.PathPrefix = storage.CleanDir(prefix)
		}
	}
}

// WithACL sets the predefined ACL of stored images, ignoring unknown values
func WithACL(acl string) Option {
	return func(s *GCloudStorage) {
		if slices.Contains(predefinedACLs, acl) {
			s.ACL = acl
		}
	}
}

// WithCacheControl sets the Cache-Control metadata of stored images
func WithCacheControl(cacheControl string) Option {
	return func(s *GCloudStorage) {
		s.CacheControl = cacheControl
	}
}

// WithSafeChars excludes chars from image key escaping, "--" disables escaping
func WithSafeChars(chars string) Option {
	return func(s *GCloudStorage) {
		if chars != "" {
			s.SafeChars = chars
		}
	}
}

// WithExpiration treats objects updated longer than exp ago as expired
func WithExpiration(exp time.Duration) Option {
	return func(s *GCloudStorage) {
		if exp > 0 {
			s.Expiration = exp
		}
	}
}
