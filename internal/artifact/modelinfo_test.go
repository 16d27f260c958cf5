package artifact

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModelInfo() ModelInfo {
	return ModelInfo{
		Run:          "run1",
		TrackingID:   "id1",
		HiddenUnits:  300,
		Epochs:       50,
		BatchSize:    32,
		Seed:         886,
		LearningRate: 0.001,
		Optimizer:    "adam",
		Loss:         "binary_crossentropy",
		Traindata:    "train.csv",
		Testdata:     "test.csv",
		Name:         "run1/id1/config.json",
		BucketName:   "gtools-test",
	}
}

func TestModelInfoFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	info := testModelInfo()

	local, err := info.WriteFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run1", "id1", "config.json"), local)

	got, err := ModelInfoFromFile(local, info.BucketName)
	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestWriteFileOverwrites(t *testing.T) {
	dir := t.TempDir()
	info := testModelInfo()

	local, err := info.WriteFile(dir)
	require.NoError(t, err)

	info.HiddenUnits = 600
	_, err = info.WriteFile(dir)
	require.NoError(t, err)

	got, err := ModelInfoFromFile(local, info.BucketName)
	require.NoError(t, err)
	assert.Equal(t, 600, got.HiddenUnits)
}

func TestWriteFileRejectsMalformedName(t *testing.T) {
	info := testModelInfo()
	info.Name = "config.json"

	_, err := info.WriteFile(t.TempDir())
	assert.ErrorIs(t, err, ErrMalformedPath)
}

func TestModelInfoFromFileMissing(t *testing.T) {
	_, err := ModelInfoFromFile(filepath.Join(t.TempDir(), "run1", "id1", "config.json"), "gtools-test")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestModelInfoFromFileMalformed(t *testing.T) {
	local := LocalPath(t.TempDir(), "run1/id1/config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(local), 0o755))
	require.NoError(t, os.WriteFile(local, []byte("hidden_units: 300"), 0o644))

	_, err := ModelInfoFromFile(local, "gtools-test")
	assert.ErrorIs(t, err, ErrDeserialize)
}

func TestDecodeModelInfoMalformed(t *testing.T) {
	_, err := DecodeModelInfo(strings.NewReader("hidden_units: 300"))
	assert.ErrorIs(t, err, ErrDeserialize)
}
