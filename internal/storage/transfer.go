package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage/transfermanager"

	"github.com/MCooperBorkenhagen/gtools/internal/artifact"
)

// DefaultWorkers is the transfer concurrency used when the caller passes a
// non-positive worker count.
const DefaultWorkers = 8

// DownloadResult reports the outcome for one requested object. Path is set
// only when the object landed on disk intact.
type DownloadResult struct {
	Object string
	Path   string
	Err    error
}

// DownloadMany fetches the named objects into destDir concurrently,
// mirroring object names as relative paths. One result per requested
// object comes back in input order; a failed object marks only its own
// result and never aborts the batch. A name requested more than once is
// transferred once, with the outcome repeated for each occurrence. The
// returned error covers setup problems only.
func (b *Bucket) DownloadMany(ctx context.Context, objects []string, destDir string, workers int) ([]DownloadResult, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	d, err := transfermanager.NewDownloader(b.client, transfermanager.WithWorkers(workers))
	if err != nil {
		return nil, fmt.Errorf("downloader: %w", err)
	}

	// Duplicate names would race two writers on one mirror path, so each
	// distinct name is transferred once.
	byObject := make(map[string]*DownloadResult, len(objects))
	distinct := make([]*DownloadResult, 0, len(objects))
	for _, object := range objects {
		if _, ok := byObject[object]; ok {
			continue
		}
		res := &DownloadResult{Object: object}
		byObject[object] = res
		distinct = append(distinct, res)
	}

	var files []*os.File
	var fileResults []*DownloadResult

	for _, res := range distinct {
		local := artifact.LocalPath(destDir, res.Object)
		if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			res.Err = fmt.Errorf("object %s: %w", res.Object, err)
			continue
		}
		f, err := os.Create(local)
		if err != nil {
			res.Err = fmt.Errorf("object %s: %w", res.Object, err)
			continue
		}
		res.Path = local
		files = append(files, f)
		fileResults = append(fileResults, res)

		err = d.DownloadObject(ctx, &transfermanager.DownloadObjectInput{
			Bucket:      b.name,
			Object:      res.Object,
			Destination: f,
		})
		if err != nil {
			res.Err = objectErr(res.Object, err)
		}
	}

	// WaitAndClose joins every per-object error into one; those surface
	// individually through the returned outputs, so the joined form is
	// dropped.
	outs, _ := d.WaitAndClose()
	for _, out := range outs {
		res, ok := byObject[out.Object]
		if !ok {
			continue
		}
		if out.Err != nil {
			res.Err = objectErr(out.Object, out.Err)
		}
	}

	for i, f := range files {
		closeErr := f.Close()
		res := fileResults[i]
		if closeErr != nil && res.Err == nil {
			res.Err = fmt.Errorf("object %s: %w", res.Object, closeErr)
		}
		// A failed object leaves no half-written mirror file behind.
		if res.Err != nil {
			res.Path = ""
			os.Remove(f.Name())
		}
	}

	results := make([]DownloadResult, len(objects))
	for i, object := range objects {
		results[i] = *byObject[object]
	}
	return results, nil
}

// DownloadBucket mirrors the entire bucket into destDir. The listing
// happens up front; the transfer reuses DownloadMany semantics.
func (b *Bucket) DownloadBucket(ctx context.Context, destDir string, workers int) ([]DownloadResult, error) {
	objects, err := b.ObjectNames(ctx, "")
	if err != nil {
		return nil, err
	}
	return b.DownloadMany(ctx, objects, destDir, workers)
}
