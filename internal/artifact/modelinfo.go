package artifact

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ModelInfo is the configuration record of one training run, read from the
// run's config.json object. Instances are built once and never mutated.
type ModelInfo struct {
	Run          string  `json:"run"`
	TrackingID   string  `json:"tracking_id"`
	HiddenUnits  int     `json:"hidden_units"`
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	Seed         int     `json:"seed"`
	LearningRate float64 `json:"learning_rate"`
	Optimizer    string  `json:"optimizer"`
	Loss         string  `json:"loss"`
	Traindata    string  `json:"traindata"`
	Testdata     string  `json:"testdata"`

	// Provenance, attached at load time and never stored in the file.
	Name       string `json:"-"`
	BucketName string `json:"-"`
}

// DecodeModelInfo parses a config.json payload. Provenance fields are left
// empty; callers attach them from the source object or file.
func DecodeModelInfo(r io.Reader) (ModelInfo, error) {
	var info ModelInfo
	if err := json.NewDecoder(r).Decode(&info); err != nil {
		return ModelInfo{}, fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	return info, nil
}

// EncodeModelInfo writes the configuration fields as indented JSON.
func EncodeModelInfo(w io.Writer, info ModelInfo) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		return fmt.Errorf("encode model info: %w", err)
	}
	return nil
}

// WriteFile serializes the record under destDir at the local path implied by
// its Name, creating intermediate directories and overwriting any existing
// file. It returns the local path written.
func (m ModelInfo) WriteFile(destDir string) (string, error) {
	if _, err := ParsePath(m.Name); err != nil {
		return "", err
	}
	local := LocalPath(destDir, m.Name)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", local, err)
	}
	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", local, err)
	}
	if err := EncodeModelInfo(f, m); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", local, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", local, err)
	}
	return local, nil
}

// ModelInfoFromFile rebuilds a record from a file previously written by
// WriteFile, or downloaded with the same directory mirroring. The remote
// object name is recovered from the trailing path segments; the bucket is
// supplied by the caller since a local file carries no bucket identity.
func ModelInfoFromFile(path, bucketName string) (ModelInfo, error) {
	name, err := RemoteName(path)
	if err != nil {
		return ModelInfo{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return ModelInfo{}, err
	}
	defer f.Close()

	info, err := DecodeModelInfo(f)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("file %s: %w", path, err)
	}
	info.Name = name
	info.BucketName = bucketName
	return info, nil
}
