package artifact

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"gorgonia.org/tensor"
)

// Member names inside an epoch snapshot archive, matching the keywords the
// training jobs pass to numpy.savez.
const (
	memberEncoderHidden = "encoder_hidden"
	memberEncoderCell   = "encoder_cell"
	memberDecoderHidden = "decoder_hidden"
	memberDecoderCell   = "decoder_cell"
	memberOutput        = "output"
)

const npyExt = ".npy"

type stateComponents struct {
	encoderHidden *tensor.Dense
	encoderCell   *tensor.Dense
	decoderHidden *tensor.Dense
	decoderCell   *tensor.Dense
	output        *tensor.Dense
}

// decodeNPZ reads the zip-of-npy layout numpy.savez produces. Extra members
// are ignored; a missing component or an undecodable member fails the whole
// snapshot.
func decodeNPZ(r io.ReaderAt, size int64) (stateComponents, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return stateComponents{}, fmt.Errorf("%w: not an npz archive: %v", ErrDeserialize, err)
	}

	members := make(map[string]*tensor.Dense, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return stateComponents{}, fmt.Errorf("%w: open member %s: %v", ErrDeserialize, f.Name, err)
		}
		t := new(tensor.Dense)
		err = t.ReadNpy(rc)
		rc.Close()
		if err != nil {
			return stateComponents{}, fmt.Errorf("%w: decode member %s: %v", ErrDeserialize, f.Name, err)
		}
		members[strings.TrimSuffix(f.Name, npyExt)] = t
	}

	var c stateComponents
	for _, m := range []struct {
		name string
		dst  **tensor.Dense
	}{
		{memberEncoderHidden, &c.encoderHidden},
		{memberEncoderCell, &c.encoderCell},
		{memberDecoderHidden, &c.decoderHidden},
		{memberDecoderCell, &c.decoderCell},
		{memberOutput, &c.output},
	} {
		t, ok := members[m.name]
		if !ok {
			return stateComponents{}, fmt.Errorf("%w: missing member %s", ErrDeserialize, m.name)
		}
		*m.dst = t
	}
	return c, nil
}

// encodeNPZ writes the snapshot components in the same zip-of-npy layout,
// one npy member per component.
func encodeNPZ(w io.Writer, state ModelState) error {
	zw := zip.NewWriter(w)
	for _, m := range []struct {
		name string
		t    *tensor.Dense
	}{
		{memberEncoderHidden, state.EncoderHidden},
		{memberEncoderCell, state.EncoderCell},
		{memberDecoderHidden, state.DecoderHidden},
		{memberDecoderCell, state.DecoderCell},
		{memberOutput, state.Output},
	} {
		f, err := zw.Create(m.name + npyExt)
		if err != nil {
			return fmt.Errorf("create member %s: %w", m.name, err)
		}
		if err := m.t.WriteNpy(f); err != nil {
			return fmt.Errorf("encode member %s: %w", m.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close npz archive: %w", err)
	}
	return nil
}
