package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MCooperBorkenhagen/gtools/internal/artifact"
)

func TestModelInfoFromBlob(t *testing.T) {
	want := runConfig("run1", "id1", 300)
	b := newTestBucket(t, map[string][]byte{
		"run1/id1/config.json": encodeInfo(t, want),
	})

	got, err := ModelInfoFromBlob(context.Background(), b.Object("run1/id1/config.json"))
	require.NoError(t, err)

	want.Name = "run1/id1/config.json"
	want.BucketName = testBucket
	assert.Equal(t, want, got)
}

func TestModelInfoFromBlobMissing(t *testing.T) {
	b := newTestBucket(t, nil)

	_, err := ModelInfoFromBlob(context.Background(), b.Object("run1/id1/config.json"))
	assert.ErrorIs(t, err, artifact.ErrObjectNotFound)
	assert.ErrorIs(t, err, storage.ErrObjectNotExist)
	assert.ErrorContains(t, err, "run1/id1/config.json")
}

func TestModelInfoFromBlobMalformed(t *testing.T) {
	b := newTestBucket(t, map[string][]byte{
		"run1/id1/config.json": []byte(`{"run": truncated`),
	})

	_, err := ModelInfoFromBlob(context.Background(), b.Object("run1/id1/config.json"))
	assert.ErrorIs(t, err, artifact.ErrDeserialize)
}

func TestModelStateFromBlob(t *testing.T) {
	want := epochState(t, "run1/id1/epoch_7.npz")
	b := newTestBucket(t, map[string][]byte{
		"run1/id1/epoch_7.npz": encodeState(t, want),
	})

	got, err := ModelStateFromBlob(context.Background(), b.Object("run1/id1/epoch_7.npz"))
	require.NoError(t, err)

	assert.Equal(t, "run1/id1/epoch_7.npz", got.Name)
	assert.Equal(t, testBucket, got.BucketName)
	assert.True(t, got.EncoderHidden.Eq(want.EncoderHidden))
	assert.True(t, got.EncoderCell.Eq(want.EncoderCell))
	assert.True(t, got.DecoderHidden.Eq(want.DecoderHidden))
	assert.True(t, got.DecoderCell.Eq(want.DecoderCell))
	assert.True(t, got.Output.Eq(want.Output))
}

func TestModelStateFromBlobMissing(t *testing.T) {
	b := newTestBucket(t, nil)

	_, err := ModelStateFromBlob(context.Background(), b.Object("run1/id1/epoch_7.npz"))
	assert.ErrorIs(t, err, artifact.ErrObjectNotFound)
}

func TestModelStateFromBlobMalformed(t *testing.T) {
	b := newTestBucket(t, map[string][]byte{
		"run1/id1/epoch_7.npz": []byte("not a zip archive"),
	})

	_, err := ModelStateFromBlob(context.Background(), b.Object("run1/id1/epoch_7.npz"))
	assert.ErrorIs(t, err, artifact.ErrDeserialize)
}

func TestBlobToFile(t *testing.T) {
	content := encodeInfo(t, runConfig("run1", "id1", 300))
	b := newTestBucket(t, map[string][]byte{
		"run1/id1/config.json": content,
	})
	dir := t.TempDir()

	local, err := BlobToFile(context.Background(), b.Object("run1/id1/config.json"), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run1", "id1", "config.json"), local)

	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestBlobToFileOverwrites(t *testing.T) {
	content := []byte("epoch,loss\n0,0.41\n")
	b := newTestBucket(t, map[string][]byte{
		"run1/id1/losses.csv": content,
	})
	dir := t.TempDir()

	local := artifact.LocalPath(dir, "run1/id1/losses.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(local), 0o755))
	require.NoError(t, os.WriteFile(local, []byte("stale contents from a previous pull"), 0o644))

	got, err := BlobToFile(context.Background(), b.Object("run1/id1/losses.csv"), dir)
	require.NoError(t, err)
	assert.Equal(t, local, got)

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestBlobToFileMissing(t *testing.T) {
	b := newTestBucket(t, nil)

	_, err := BlobToFile(context.Background(), b.Object("run1/id1/config.json"), t.TempDir())
	assert.ErrorIs(t, err, artifact.ErrObjectNotFound)
}
