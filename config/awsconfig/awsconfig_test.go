package awsconfig

import (
	"testing"

	"github.com/cshum/wandkit"
	"github.com/cshum/wandkit/config"
	"github.com/cshum/wandkit/loader/httploader"
	"github.com/cshum/wandkit/storage/s3storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var credentialArgs = []string{
	"-aws-region", "asdf",
	"-aws-access-key-id", "asdf",
	"-aws-secret-access-key", "asdf",
	"-s3-endpoint", "http://localhost:9000",
	"-s3-force-path-style",
	"-s3-safe-chars", "!",
}

func TestS3Loader(t *testing.T) {
	srv := config.CreateServer(append([]string{
		"-s3-loader-bucket", "a",
		"-s3-loader-base-dir", "foo",
		"-s3-loader-path-prefix", "abcd",
	}, credentialArgs...), WithAWS)
	app := srv.App.(*wandkit.App)
	require.Len(t, app.Loaders, 2)
	loader := app.Loaders[0].(*s3storage.S3Storage)
	assert.Equal(t, "a", loader.Bucket)
	assert.Equal(t, "/foo/", loader.BaseDir)
	assert.Equal(t, "/abcd/", loader.PathPrefix)
	assert.Equal(t, "!", loader.SafeChars)
	assert.Equal(t, "http://localhost:9000", loader.Endpoint)
	assert.True(t, loader.ForcePathStyle)
	assert.NotNil(t, loader.Client)
	assert.IsType(t, &httploader.HTTPLoader{}, app.Loaders[1])
}

func TestS3Storage(t *testing.T) {
	srv := config.CreateServer(append([]string{
		"-s3-storage-bucket", "a",
		"-s3-storage-base-dir", "foo",
		"-s3-storage-path-prefix", "abcd",
		"-s3-storage-class", "STANDARD_IA",
		"-s3-storage-acl", "private",

		"-s3-loader-bucket", "a",
		"-s3-loader-base-dir", "foo",
		"-s3-loader-path-prefix", "abcd",

		"-s3-result-storage-bucket", "b",
		"-s3-result-storage-base-dir", "bar",
		"-s3-result-storage-path-prefix", "bcda",
		"-s3-result-storage-expiration", "24h",
		"-s3-result-storage-cache-control", "public, max-age=86400",
	}, credentialArgs...), WithAWS)
	app := srv.App.(*wandkit.App)
	assert.Len(t, app.Loaders, 1)

	storage := app.Storages[0].(*s3storage.S3Storage)
	assert.Equal(t, "a", storage.Bucket)
	assert.Equal(t, "/foo/", storage.BaseDir)
	assert.Equal(t, "/abcd/", storage.PathPrefix)
	assert.Equal(t, "!", storage.SafeChars)
	assert.Equal(t, "STANDARD_IA", storage.StorageClass)
	assert.Equal(t, "private", storage.ACL)

	resultStorage := app.ResultStorages[0].(*s3storage.S3Storage)
	assert.Equal(t, "b", resultStorage.Bucket)
	assert.Equal(t, "/bar/", resultStorage.BaseDir)
	assert.Equal(t, "/bcda/", resultStorage.PathPrefix)
	assert.Equal(t, "STANDARD", resultStorage.StorageClass)
	assert.Equal(t, "public-read", resultStorage.ACL)
	assert.Equal(t, "24h0m0s", resultStorage.Expiration.String())
	assert.Equal(t, "public, max-age=86400", resultStorage.CacheControl)
	assert.Empty(t, storage.CacheControl)
}

func TestNoBucket(t *testing.T) {
	srv := config.CreateServer(credentialArgs, WithAWS)
	app := srv.App.(*wandkit.App)
	assert.Empty(t, app.Storages)
	assert.Empty(t, app.ResultStorages)
	assert.Len(t, app.Loaders, 1)
}
