package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gorgonia.org/tensor"
)

// ModelState is one epoch snapshot of a trained model: the recurrent state
// of encoder and decoder plus the model output, with provenance for the
// object it was loaded from. Instances are built once and never mutated.
//
// The four state components share one (items, units) shape; the output is
// (items, max length, classes). The derived counts are computed from the
// underlying shapes, with the encoder cell state as the authoritative
// component, so they can never diverge from the data.
type ModelState struct {
	EncoderHidden *tensor.Dense
	EncoderCell   *tensor.Dense
	DecoderHidden *tensor.Dense
	DecoderCell   *tensor.Dense
	Output        *tensor.Dense

	// Provenance, attached at load time and never stored in the file.
	Name       string
	BucketName string
}

// NewModelState validates component shapes and builds the record. All four
// state components must be 2-D with one shared shape; the output must be 3-D
// with a first dimension equal to the state items count.
func NewModelState(encoderHidden, encoderCell, decoderHidden, decoderCell, output *tensor.Dense, object, bucketName string) (ModelState, error) {
	states := []struct {
		name string
		t    *tensor.Dense
	}{
		{memberEncoderHidden, encoderHidden},
		{memberEncoderCell, encoderCell},
		{memberDecoderHidden, decoderHidden},
		{memberDecoderCell, decoderCell},
	}
	for _, s := range states {
		if s.t == nil {
			return ModelState{}, fmt.Errorf("%w: missing component %s", ErrDeserialize, s.name)
		}
		if s.t.Dims() != 2 {
			return ModelState{}, fmt.Errorf("%w: component %s must be 2-D, got shape %v", ErrDeserialize, s.name, s.t.Shape())
		}
	}
	for _, s := range states {
		if !s.t.Shape().Eq(encoderCell.Shape()) {
			return ModelState{}, fmt.Errorf("%w: component %s shape %v does not match encoder cell shape %v",
				ErrDeserialize, s.name, s.t.Shape(), encoderCell.Shape())
		}
	}
	if output == nil {
		return ModelState{}, fmt.Errorf("%w: missing component %s", ErrDeserialize, memberOutput)
	}
	if output.Dims() != 3 {
		return ModelState{}, fmt.Errorf("%w: component %s must be 3-D, got shape %v", ErrDeserialize, memberOutput, output.Shape())
	}
	if output.Shape()[0] != encoderCell.Shape()[0] {
		return ModelState{}, fmt.Errorf("%w: component %s covers %d items, state components cover %d",
			ErrDeserialize, memberOutput, output.Shape()[0], encoderCell.Shape()[0])
	}

	return ModelState{
		EncoderHidden: encoderHidden,
		EncoderCell:   encoderCell,
		DecoderHidden: decoderHidden,
		DecoderCell:   decoderCell,
		Output:        output,
		Name:          object,
		BucketName:    bucketName,
	}, nil
}

// Items is the number of items in the snapshot, the first dimension of the
// encoder cell state.
func (s ModelState) Items() int {
	return s.EncoderCell.Shape()[0]
}

// Units is the recurrent layer width, the last dimension of the encoder
// cell state.
func (s ModelState) Units() int {
	shape := s.EncoderCell.Shape()
	return shape[len(shape)-1]
}

// MaxLength is the padded output sequence length, the second dimension of
// the output component.
func (s ModelState) MaxLength() int {
	return s.Output.Shape()[1]
}

// DecodeModelState reads an epoch snapshot in npz form and attaches the
// given provenance.
func DecodeModelState(r io.ReaderAt, size int64, object, bucketName string) (ModelState, error) {
	c, err := decodeNPZ(r, size)
	if err != nil {
		return ModelState{}, fmt.Errorf("state %s: %w", object, err)
	}
	return NewModelState(c.encoderHidden, c.encoderCell, c.decoderHidden, c.decoderCell, c.output, object, bucketName)
}

// EncodeModelState writes the snapshot in the npz layout the training jobs
// produce; provenance is not stored.
func EncodeModelState(w io.Writer, state ModelState) error {
	return encodeNPZ(w, state)
}

// WriteFile serializes the snapshot under destDir at the local path implied
// by its Name, creating intermediate directories and overwriting any
// existing file. It returns the local path written.
func (s ModelState) WriteFile(destDir string) (string, error) {
	if _, err := ParsePath(s.Name); err != nil {
		return "", err
	}
	local := LocalPath(destDir, s.Name)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", local, err)
	}
	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", local, err)
	}
	if err := EncodeModelState(f, s); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", local, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", local, err)
	}
	return local, nil
}

// ModelStateFromFile rebuilds a snapshot from a file previously written by
// WriteFile, or downloaded with the same directory mirroring. The remote
// object name is recovered from the trailing path segments; the bucket is
// supplied by the caller since a local file carries no bucket identity.
func ModelStateFromFile(path, bucketName string) (ModelState, error) {
	name, err := RemoteName(path)
	if err != nil {
		return ModelState{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return ModelState{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return ModelState{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return DecodeModelState(f, fi.Size(), name, bucketName)
}
