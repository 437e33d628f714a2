// Package awsconfig configures S3 loader, storage and result storage
package awsconfig

import (
	"context"
	"flag"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/cshum/wandkit"
	"github.com/cshum/wandkit/storage/s3storage"
	"go.uber.org/zap"
)

// WithAWS with AWS S3 loader, storage and result storage config option
func WithAWS(fs *flag.FlagSet, cb func() (*zap.Logger, bool)) wandkit.Option {
	var (
		awsRegion = fs.String("aws-region", "",
			"AWS Region. Required if using S3 Loader or storage")
		awsAccessKeyID = fs.String("aws-access-key-id", "",
			"AWS Access Key ID. Credentials default to the AWS default chain if not set")
		awsSecretAccessKey = fs.String("aws-secret-access-key", "",
			"AWS Secret Access Key")
		awsSessionToken = fs.String("aws-session-token", "",
			"AWS Session Token. Optional temporary credentials token")
		s3Endpoint = fs.String("s3-endpoint", "",
			"Optional S3 Endpoint to override default")
		s3ForcePathStyle = fs.Bool("s3-force-path-style", false,
			"S3 force the request to use path-style addressing s3.amazonaws.com/bucket/key, instead of bucket.s3.amazonaws.com/key")
		s3SafeChars = fs.String("s3-safe-chars", "",
			"S3 safe characters to be excluded from image key escape")

		s3LoaderBucket = fs.String("s3-loader-bucket", "",
			"S3 Bucket for S3 Loader. Enable S3 Loader only if this value present")
		s3LoaderBaseDir = fs.String("s3-loader-base-dir", "",
			"Base directory for S3 Loader")
		s3LoaderPathPrefix = fs.String("s3-loader-path-prefix", "",
			"Base path prefix for S3 Loader")

		s3StorageBucket = fs.String("s3-storage-bucket", "",
			"S3 Bucket for S3 Storage. Enable S3 Storage only if this value present")
		s3StorageBaseDir = fs.String("s3-storage-base-dir", "",
			"Base directory for S3 Storage")
		s3StoragePathPrefix = fs.String("s3-storage-path-prefix", "",
			"Base path prefix for S3 Storage")
		s3StorageACL = fs.String("s3-storage-acl", "public-read",
			"Upload ACL for S3 Storage")
		s3StorageClass = fs.String("s3-storage-class", "STANDARD",
			"S3 File Storage Class. Available values: REDUCED_REDUNDANCY, STANDARD_IA, ONEZONE_IA, INTELLIGENT_TIERING, GLACIER, DEEP_ARCHIVE. Default: STANDARD")
		s3StorageExpiration = fs.Duration("s3-storage-expiration", 0,
			"S3 Storage expiration duration e.g. 24h. Default no expiration")
		s3StorageCacheControl = fs.String("s3-storage-cache-control", "",
			"Cache-Control header of objects put by S3 Storage")

		s3ResultStorageBucket = fs.String("s3-result-storage-bucket", "",
			"S3 Bucket for S3 Result Storage. Enable S3 Result Storage only if this value present")
		s3ResultStorageBaseDir = fs.String("s3-result-storage-base-dir", "",
			"Base directory for S3 Result Storage")
		s3ResultStoragePathPrefix = fs.String("s3-result-storage-path-prefix", "",
			"Base path prefix for S3 Result Storage")
		s3ResultStorageACL = fs.String("s3-result-storage-acl", "public-read",
			"Upload ACL for S3 Result Storage")
		s3ResultStorageClass = fs.String("s3-result-storage-class", "STANDARD",
			"S3 File Storage Class for results")
		s3ResultStorageExpiration = fs.Duration("s3-result-storage-expiration", 0,
			"S3 Result Storage expiration duration e.g. 24h. Default no expiration")
		s3ResultStorageCacheControl = fs.String("s3-result-storage-cache-control", "",
			"Cache-Control header of processed images put by S3 Result Storage e.g. public, max-age=86400")
	)
	logger, _ := cb()
	return func(app *wandkit.App) {
		if *s3StorageBucket == "" && *s3LoaderBucket == "" && *s3ResultStorageBucket == "" {
			return
		}
		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(*awsRegion),
		}
		if *awsAccessKeyID != "" && *awsSecretAccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					*awsAccessKeyID, *awsSecretAccessKey, *awsSessionToken)))
		}
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			logger.Fatal("aws-config", zap.Error(err))
		}
		newS3 := func(bucket string, options ...s3storage.Option) *s3storage.S3Storage {
			return s3storage.New(cfg, bucket, append([]s3storage.Option{
				s3storage.WithEndpoint(*s3Endpoint),
				s3storage.WithForcePathStyle(*s3ForcePathStyle),
				s3storage.WithSafeChars(*s3SafeChars),
			}, options...)...)
		}
		if *s3StorageBucket != "" {
			app.Storages = append(app.Storages, newS3(*s3StorageBucket,
				s3storage.WithPathPrefix(*s3StoragePathPrefix),
				s3storage.WithBaseDir(*s3StorageBaseDir),
				s3storage.WithACL(*s3StorageACL),
				s3storage.WithStorageClass(*s3StorageClass),
				s3storage.WithExpiration(*s3StorageExpiration),
				s3storage.WithCacheControl(*s3StorageCacheControl),
			))
		}
		if *s3LoaderBucket != "" &&
			(*s3LoaderPathPrefix != *s3StoragePathPrefix ||
				*s3LoaderBucket != *s3StorageBucket ||
				*s3LoaderBaseDir != *s3StorageBaseDir) {
			// storages already serve as loaders, only add one that differs
			app.Loaders = append(app.Loaders, newS3(*s3LoaderBucket,
				s3storage.WithPathPrefix(*s3LoaderPathPrefix),
				s3storage.WithBaseDir(*s3LoaderBaseDir),
			))
		}
		if *s3ResultStorageBucket != "" {
			app.ResultStorages = append(app.ResultStorages, newS3(*s3ResultStorageBucket,
				s3storage.WithPathPrefix(*s3ResultStoragePathPrefix),
				s3storage.WithBaseDir(*s3ResultStorageBaseDir),
				s3storage.WithACL(*s3ResultStorageACL),
				s3storage.WithStorageClass(*s3ResultStorageClass),
				s3storage.WithExpiration(*s3ResultStorageExpiration),
				s3storage.WithCacheControl(*s3ResultStorageCacheControl),
			))
		}
	}
}
