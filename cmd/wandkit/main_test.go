package main

import (
	"testing"

	"github.com/cshum/wandkit"
	"github.com/cshum/wandkit/loader/httploader"
	"github.com/cshum/wandkit/storage/filestorage"
	"github.com/cshum/wandkit/storage/gcloudstorage"
	"github.com/cshum/wandkit/storage/s3storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	srv := newServer()
	app := srv.App.(*wandkit.App)
	assert.False(t, app.Unsafe)
	assert.Empty(t, app.Storages)
	assert.Empty(t, app.ResultStorages)
	require.Len(t, app.Loaders, 1)
	assert.IsType(t, &httploader.HTTPLoader{}, app.Loaders[0])
}

func TestVersion(t *testing.T) {
	assert.Nil(t, newServer("-version"))
}

func TestLoaderOrder(t *testing.T) {
	t.Setenv("STORAGE_EMULATOR_HOST", "localhost:12345")

	srv := newServer(
		"-file-loader-base-dir", "./foo",

		"-aws-region", "asdf",
		"-aws-access-key-id", "asdf",
		"-aws-secret-access-key", "asdf",
		"-s3-loader-bucket", "a",
		"-s3-result-storage-bucket", "b",

		"-gcloud-loader-bucket", "c",
		"-gcloud-storage-bucket", "d",
	)
	app := srv.App.(*wandkit.App)
	require.Len(t, app.Loaders, 4)
	assert.IsType(t, &filestorage.FileStorage{}, app.Loaders[0])
	assert.IsType(t, &s3storage.S3Storage{}, app.Loaders[1])
	assert.IsType(t, &gcloudstorage.GCloudStorage{}, app.Loaders[2])
	assert.IsType(t, &httploader.HTTPLoader{}, app.Loaders[3])
	require.Len(t, app.Storages, 1)
	assert.Equal(t, "d", app.Storages[0].(*gcloudstorage.GCloudStorage).Bucket)
	require.Len(t, app.ResultStorages, 1)
	assert.Equal(t, "b", app.ResultStorages[0].(*s3storage.S3Storage).Bucket)
}
