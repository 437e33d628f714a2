package config

import (
	"flag"

	"github.com/cshum/wandkit"
	"github.com/cshum/wandkit/storage/filestorage"
	"go.uber.org/zap"
)

// withFileSystem with file loader, storage and result storage options,
// each enabled only when its base dir is set
func withFileSystem(fs *flag.FlagSet, cb func() (*zap.Logger, bool)) wandkit.Option {
	var (
		safeChars = fs.String("file-safe-chars", "",
			"File safe characters to be excluded from image key escape")

		loaderBaseDir = fs.String("file-loader-base-dir", "",
			"Base directory for File Loader. Enable File Loader only if this value present")
		loaderPathPrefix = fs.String("file-loader-path-prefix", "",
			"Base path prefix for File Loader")

		storageBaseDir = fs.String("file-storage-base-dir", "",
			"Base directory for File Storage. Enable File Storage only if this value present")
		storagePathPrefix = fs.String("file-storage-path-prefix", "",
			"Base path prefix for File Storage")
		storageMkdirPermission = fs.String("file-storage-mkdir-permission", "0755",
			"File Storage mkdir permission")
		storageWritePermission = fs.String("file-storage-write-permission", "0666",
			"File Storage write permission")
		storageExpiration = fs.Duration("file-storage-expiration", 0,
			"File Storage expiration duration e.g. 24h. Default no expiration")

		resultStorageBaseDir = fs.String("file-result-storage-base-dir", "",
			"Base directory for File Result Storage. Enable File Result Storage only if this value present")
		resultStoragePathPrefix = fs.String("file-result-storage-path-prefix", "",
			"Base path prefix for File Result Storage")
		resultStorageMkdirPermission = fs.String("file-result-storage-mkdir-permission", "0755",
			"File Result Storage mkdir permission")
		resultStorageWritePermission = fs.String("file-result-storage-write-permission", "0666",
			"File Result Storage write permission")
		resultStorageExpiration = fs.Duration("file-result-storage-expiration", 0,
			"File Result Storage expiration duration e.g. 24h. Default no expiration")
	)
	_, _ = cb()
	return func(app *wandkit.App) {
		if *storageBaseDir != "" {
			app.Storages = append(app.Storages,
				filestorage.New(*storageBaseDir,
					filestorage.WithPathPrefix(*storagePathPrefix),
					filestorage.WithMkdirPermission(*storageMkdirPermission),
					filestorage.WithWritePermission(*storageWritePermission),
					filestorage.WithSafeChars(*safeChars),
					filestorage.WithExpiration(*storageExpiration),
				),
			)
		}
		if *loaderBaseDir != "" {
			app.Loaders = append(app.Loaders,
				filestorage.New(*loaderBaseDir,
					filestorage.WithPathPrefix(*loaderPathPrefix),
					filestorage.WithSafeChars(*safeChars),
				),
			)
		}
		if *resultStorageBaseDir != "" {
			app.ResultStorages = append(app.ResultStorages,
				filestorage.New(*resultStorageBaseDir,
					filestorage.WithPathPrefix(*resultStoragePathPrefix),
					filestorage.WithMkdirPermission(*resultStorageMkdirPermission),
					filestorage.WithWritePermission(*resultStorageWritePermission),
					filestorage.WithSafeChars(*safeChars),
					filestorage.WithExpiration(*resultStorageExpiration),
				),
			)
		}
	}
}
