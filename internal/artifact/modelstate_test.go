package artifact

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func testTensor(salt float32, shape ...int) *tensor.Dense {
	n := 1
	for _, d := range shape {
		n *= d
	}
	backing := make([]float32, n)
	for i := range backing {
		backing[i] = salt + float32(i)*0.5
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
}

func testModelState(t *testing.T) ModelState {
	t.Helper()
	state, err := NewModelState(
		testTensor(1, 4, 3),
		testTensor(2, 4, 3),
		testTensor(3, 4, 3),
		testTensor(4, 4, 3),
		testTensor(5, 4, 5, 2),
		"run1/id1/epoch_7.npz",
		"gtools-test",
	)
	require.NoError(t, err)
	return state
}

func TestModelStateAccessors(t *testing.T) {
	state := testModelState(t)
	assert.Equal(t, 4, state.Items())
	assert.Equal(t, 3, state.Units())
	assert.Equal(t, 5, state.MaxLength())
}

func TestNewModelStateRejectsMismatchedShapes(t *testing.T) {
	// One state component with a different item count.
	_, err := NewModelState(
		testTensor(1, 4, 3),
		testTensor(2, 4, 3),
		testTensor(3, 5, 3),
		testTensor(4, 4, 3),
		testTensor(5, 4, 5, 2),
		"run1/id1/epoch_7.npz",
		"gtools-test",
	)
	assert.ErrorIs(t, err, ErrDeserialize)

	// Output item count disagreeing with the state components.
	_, err = NewModelState(
		testTensor(1, 4, 3),
		testTensor(2, 4, 3),
		testTensor(3, 4, 3),
		testTensor(4, 4, 3),
		testTensor(5, 9, 5, 2),
		"run1/id1/epoch_7.npz",
		"gtools-test",
	)
	assert.ErrorIs(t, err, ErrDeserialize)

	// Output must be 3-D.
	_, err = NewModelState(
		testTensor(1, 4, 3),
		testTensor(2, 4, 3),
		testTensor(3, 4, 3),
		testTensor(4, 4, 3),
		testTensor(5, 4, 5),
		"run1/id1/epoch_7.npz",
		"gtools-test",
	)
	assert.ErrorIs(t, err, ErrDeserialize)

	// State components must be 2-D.
	_, err = NewModelState(
		testTensor(1, 4, 3, 1),
		testTensor(2, 4, 3),
		testTensor(3, 4, 3),
		testTensor(4, 4, 3),
		testTensor(5, 4, 5, 2),
		"run1/id1/epoch_7.npz",
		"gtools-test",
	)
	assert.ErrorIs(t, err, ErrDeserialize)
}

func TestModelStateFileRoundTrip(t *testing.T) {
	state := testModelState(t)

	local, err := state.WriteFile(t.TempDir())
	require.NoError(t, err)

	got, err := ModelStateFromFile(local, state.BucketName)
	require.NoError(t, err)

	assert.Equal(t, state.Name, got.Name)
	assert.Equal(t, state.BucketName, got.BucketName)
	assert.True(t, state.EncoderHidden.Eq(got.EncoderHidden))
	assert.True(t, state.EncoderCell.Eq(got.EncoderCell))
	assert.True(t, state.DecoderHidden.Eq(got.DecoderHidden))
	assert.True(t, state.DecoderCell.Eq(got.DecoderCell))
	assert.True(t, state.Output.Eq(got.Output))
}

func TestEncodeModelStateMemberNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeModelState(&buf, testModelState(t)))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{
		"encoder_hidden.npy",
		"encoder_cell.npy",
		"decoder_hidden.npy",
		"decoder_cell.npy",
		"output.npy",
	}, names)
}

func TestDecodeModelStateMissingMember(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("encoder_hidden.npy")
	require.NoError(t, err)
	require.NoError(t, testTensor(1, 4, 3).WriteNpy(w))
	require.NoError(t, zw.Close())

	_, err = DecodeModelState(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "run1/id1/epoch_0.npz", "gtools-test")
	assert.ErrorIs(t, err, ErrDeserialize)
}

func TestDecodeModelStateNotAnArchive(t *testing.T) {
	data := []byte("not an npz archive")
	_, err := DecodeModelState(bytes.NewReader(data), int64(len(data)), "run1/id1/epoch_0.npz", "gtools-test")
	assert.ErrorIs(t, err, ErrDeserialize)
}
