// Package gcloudconfig configures Google Cloud Storage loader, storage and result storage
package gcloudconfig

import (
	"context"
	"flag"

	"cloud.google.com/go/storage"
	"github.com/cshum/wandkit"
	"github.com/cshum/wandkit/storage/gcloudstorage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// WithGCloud with Google Cloud Storage loader, storage and result storage config option.
// Credentials are resolved from GOOGLE_APPLICATION_CREDENTIALS unless a credentials file is given.
func WithGCloud(fs *flag.FlagSet, cb func() (*zap.Logger, bool)) wandkit.Option {
	var (
		gcloudCredentialsFile = fs.String("gcloud-credentials-file", "",
			"Google Cloud service account credentials JSON file")
		gcloudSafeChars = fs.String("gcloud-safe-chars", "",
			"Google Cloud safe characters to be excluded from image key escape. Set -- for no-op")

		gcloudLoaderBucket = fs.String("gcloud-loader-bucket", "",
			"Bucket name for Google Cloud Storage Loader. Enable Google Cloud Loader only if this value present")
		gcloudLoaderBaseDir = fs.String("gcloud-loader-base-dir", "",
			"Base directory for Google Cloud Loader")
		gcloudLoaderPathPrefix = fs.String("gcloud-loader-path-prefix", "",
			"Base path prefix for Google Cloud Loader")

		gcloudStorageBucket = fs.String("gcloud-storage-bucket", "",
			"Bucket name for Google Cloud Storage. Enable Google Cloud Storage only if this value present")
		gcloudStorageBaseDir = fs.String("gcloud-storage-base-dir", "",
			"Base directory for Google Cloud")
		gcloudStoragePathPrefix = fs.String("gcloud-storage-path-prefix", "",
			"Base path prefix for Google Cloud Storage")
		gcloudStorageACL = fs.String("gcloud-storage-acl", "",
			"Upload ACL for Google Cloud Storage")
		gcloudStorageExpiration = fs.Duration("gcloud-storage-expiration", 0,
			"Google Cloud Storage expiration duration e.g. 24h. Default no expiration")
		gcloudStorageCacheControl = fs.String("gcloud-storage-cache-control", "",
			"Cache-Control metadata of objects written by Google Cloud Storage")

		gcloudResultStorageBucket = fs.String("gcloud-result-storage-bucket", "",
			"Bucket name for Google Cloud Result Storage. Enable Google Cloud Result Storage only if this value present")
		gcloudResultStorageBaseDir = fs.String("gcloud-result-storage-base-dir", "",
			"Base directory for Google Cloud Result Storage")
		gcloudResultStoragePathPrefix = fs.String("gcloud-result-storage-path-prefix", "",
			"Base path prefix for Google Cloud Result Storage")
		gcloudResultStorageACL = fs.String("gcloud-result-storage-acl", "",
			"Upload ACL for Google Cloud Result Storage")
		gcloudResultStorageExpiration = fs.Duration("gcloud-result-storage-expiration", 0,
			"Google Cloud Result Storage expiration duration e.g. 24h. Default no expiration")
		gcloudResultStorageCacheControl = fs.String("gcloud-result-storage-cache-control", "",
			"Cache-Control metadata of processed images written by Google Cloud Result Storage")
	)
	logger, _ := cb()
	return func(app *wandkit.App) {
		if *gcloudStorageBucket == "" && *gcloudLoaderBucket == "" && *gcloudResultStorageBucket == "" {
			return
		}
		var opts []option.ClientOption
		if *gcloudCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(*gcloudCredentialsFile))
		}
		client, err := storage.NewClient(context.Background(), opts...)
		if err != nil {
			logger.Fatal("gcloud-client", zap.Error(err))
		}
		if *gcloudStorageBucket != "" {
			app.Storages = append(app.Storages,
				gcloudstorage.New(client, *gcloudStorageBucket,
					gcloudstorage.WithPathPrefix(*gcloudStoragePathPrefix),
					gcloudstorage.WithBaseDir(*gcloudStorageBaseDir),
					gcloudstorage.WithACL(*gcloudStorageACL),
					gcloudstorage.WithSafeChars(*gcloudSafeChars),
					gcloudstorage.WithExpiration(*gcloudStorageExpiration),
					gcloudstorage.WithCacheControl(*gcloudStorageCacheControl),
				),
			)
		}
		if *gcloudLoaderBucket != "" &&
			(*gcloudLoaderPathPrefix != *gcloudStoragePathPrefix ||
				*gcloudLoaderBucket != *gcloudStorageBucket ||
				*gcloudLoaderBaseDir != *gcloudStorageBaseDir) {
			app.Loaders = append(app.Loaders,
				gcloudstorage.New(client, *gcloudLoaderBucket,
					gcloudstorage.WithPathPrefix(*gcloudLoaderPathPrefix),
					gcloudstorage.WithBaseDir(*gcloudLoaderBaseDir),
					gcloudstorage.WithSafeChars(*gcloudSafeChars),
				),
			)
		}
		if *gcloudResultStorageBucket != "" {
			app.ResultStorages = append(app.ResultStorages,
				gcloudstorage.New(client, *gcloudResultStorageBucket,
					gcloudstorage.WithPathPrefix(*gcloudResultStoragePathPrefix),
					gcloudstorage.WithBaseDir(*gcloudResultStorageBaseDir),
					gcloudstorage.WithACL(*gcloudResultStorageACL),
					gcloudstorage.WithSafeChars(*gcloudSafeChars),
					gcloudstorage.WithExpiration(*gcloudResultStorageExpiration),
					gcloudstorage.WithCacheControl(*gcloudResultStorageCacheControl),
				),
			)
		}
	}
}
