package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/MCooperBorkenhagen/gtools/internal/artifact"
)

// ModelInfoFromBlob fetches one configuration object and decodes it into a
// record stamped with its object name and bucket.
func ModelInfoFromBlob(ctx context.Context, ref *storage.ObjectHandle) (artifact.ModelInfo, error) {
	rc, err := ref.NewReader(ctx)
	if err != nil {
		return artifact.ModelInfo{}, objectErr(ref.ObjectName(), err)
	}
	defer rc.Close()

	info, err := artifact.DecodeModelInfo(rc)
	if err != nil {
		return artifact.ModelInfo{}, objectErr(ref.ObjectName(), err)
	}
	info.Name = ref.ObjectName()
	info.BucketName = ref.BucketName()
	return info, nil
}

// ModelStateFromBlob fetches one epoch state object and decodes its npz
// payload. The archive is buffered in memory before decoding; epoch
// snapshots are small enough that streaming is not worth the zip gymnastics.
func ModelStateFromBlob(ctx context.Context, ref *storage.ObjectHandle) (artifact.ModelState, error) {
	rc, err := ref.NewReader(ctx)
	if err != nil {
		return artifact.ModelState{}, objectErr(ref.ObjectName(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return artifact.ModelState{}, objectErr(ref.ObjectName(), err)
	}
	state, err := artifact.DecodeModelState(bytes.NewReader(data), int64(len(data)), ref.ObjectName(), ref.BucketName())
	if err != nil {
		return artifact.ModelState{}, err
	}
	return state, nil
}

// BlobToFile streams one object to destDir, mirroring the object name as the
// relative file path. Existing files are overwritten. Returns the local path
// written.
func BlobToFile(ctx context.Context, ref *storage.ObjectHandle, destDir string) (string, error) {
	rc, err := ref.NewReader(ctx)
	if err != nil {
		return "", objectErr(ref.ObjectName(), err)
	}
	defer rc.Close()

	local := artifact.LocalPath(destDir, ref.ObjectName())
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", fmt.Errorf("object %s: %w", ref.ObjectName(), err)
	}
	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("object %s: %w", ref.ObjectName(), err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return "", fmt.Errorf("object %s: %w", ref.ObjectName(), err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("object %s: %w", ref.ObjectName(), err)
	}
	return local, nil
}

// objectErr stamps err with the object name and, for objects the service
// does not know, joins in the artifact layer's not-found sentinel so both
// errors.Is chains hold.
func objectErr(object string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("object %s: %w: %w", object, artifact.ErrObjectNotFound, err)
	}
	return fmt.Errorf("object %s: %w", object, err)
}
