package collab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stonedestroyer/hydrus/pkg/importer"
)

func TestFakeImportFileAssignsHash(t *testing.T) {
	f := NewFake()
	status, result, err := f.ImportFile(context.Background(), "/tmp/a.jpg", importer.ImportFileOptions{}, nil, true, "https://example.org/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, importer.StatusSuccessful, status)
	assert.NotEmpty(t, result.Hash)

	status, hash, err := f.URLStatus(context.Background(), "https://example.org/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, importer.StatusRedundant, status)
	assert.Equal(t, result.Hash, hash)
}

func TestFakeURLStatusUnknownIsNew(t *testing.T) {
	f := NewFake()
	status, hash, err := f.URLStatus(context.Background(), "https://example.org/never-seen.jpg")
	require.NoError(t, err)
	assert.Equal(t, importer.StatusNew, status)
	assert.Empty(t, hash)
}

func TestFakeMD5StatusRedundantAfterSeed(t *testing.T) {
	f := NewFake()
	var md5 [16]byte
	copy(md5[:], []byte("0123456789abcdef"))
	f.SeedKnownMD5(md5, "known-hash")

	status, hash, err := f.MD5Status(context.Background(), md5)
	require.NoError(t, err)
	assert.Equal(t, importer.StatusRedundant, status)
	assert.Equal(t, importer.Hash("known-hash"), hash)
}

func TestFakePageDeleted(t *testing.T) {
	f := NewFake()
	assert.False(t, f.PageDeleted("page-1"))
	f.MarkPageDeleted("page-1")
	assert.True(t, f.PageDeleted("page-1"))
}

func TestFakeContentUpdatesRecordsTags(t *testing.T) {
	f := NewFake()
	err := f.ContentUpdates(context.Background(), importer.ServiceKeysToContentUpdates{
		"local_tags": {{Hash: "h1", Tags: []string{"filename:a.jpg"}}},
	})
	require.NoError(t, err)
	assert.Contains(t, f.Tags("h1")["local_tags"], "filename:a.jpg")
}
