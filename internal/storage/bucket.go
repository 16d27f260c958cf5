package storage

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/MCooperBorkenhagen/gtools/internal/artifact"
)

// Bucket binds an externally constructed storage client to one bucket and
// exposes the listing, fetch and bulk download operations of the artifact
// layer. All listings preserve the service's listing order and never drop a
// prefix match.
type Bucket struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// NewBucket wraps an authenticated client. The client stays owned by the
// caller; closing it invalidates the Bucket.
func NewBucket(client *storage.Client, name string) *Bucket {
	return &Bucket{
		client: client,
		bucket: client.Bucket(name),
		name:   name,
	}
}

// Name returns the bucket identifier.
func (b *Bucket) Name() string {
	return b.name
}

// Object returns the SDK handle for one object in the bucket.
func (b *Bucket) Object(name string) *storage.ObjectHandle {
	return b.bucket.Object(name)
}

// ListModelInfo enumerates the configuration objects recorded under one run
// and materializes one record per object found. A single fetch or parse
// failure fails the whole call; nothing is silently dropped.
func (b *Bucket) ListModelInfo(ctx context.Context, run string) ([]artifact.ModelInfo, error) {
	refs, err := b.ListModelInfoRefs(ctx, run)
	if err != nil {
		return nil, err
	}
	infos := make([]artifact.ModelInfo, 0, len(refs))
	for _, ref := range refs {
		info, err := ModelInfoFromBlob(ctx, ref)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ListModelInfoRefs enumerates the configuration objects of one run without
// fetching content, deferring any download to the caller.
func (b *Bucket) ListModelInfoRefs(ctx context.Context, run string) ([]*storage.ObjectHandle, error) {
	names, err := b.listNames(ctx, artifact.RunPrefix(run), artifact.IsConfigObject)
	if err != nil {
		return nil, err
	}
	return b.handles(names), nil
}

// ListEpochRefs enumerates the epoch state objects of one tracked run
// instance, references only. Order is the bucket listing order, which is
// lexicographic on the object name, so epoch_10 sorts before epoch_2;
// callers needing numeric order sort by artifact.EpochIndex themselves.
func (b *Bucket) ListEpochRefs(ctx context.Context, run, trackingID string) ([]*storage.ObjectHandle, error) {
	names, err := b.listNames(ctx, artifact.TrackingPrefix(run, trackingID), artifact.IsEpochObject)
	if err != nil {
		return nil, err
	}
	return b.handles(names), nil
}

// ListRuns returns the distinct run names in the bucket, from a delimiter
// listing of the first path segment.
func (b *Bucket) ListRuns(ctx context.Context) ([]string, error) {
	return b.listPrefixes(ctx, "")
}

// ListTrackingIDs returns the distinct tracking ids recorded under one run.
func (b *Bucket) ListTrackingIDs(ctx context.Context, run string) ([]string, error) {
	return b.listPrefixes(ctx, artifact.RunPrefix(run))
}

// ObjectNames lists every object name under prefix, in listing order. An
// empty prefix lists the whole bucket.
func (b *Bucket) ObjectNames(ctx context.Context, prefix string) ([]string, error) {
	return b.listNames(ctx, prefix, nil)
}

func (b *Bucket) listNames(ctx context.Context, prefix string, keep func(string) bool) ([]string, error) {
	var names []string
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", b.name, prefix, err)
		}
		if keep != nil && !keep(attrs.Name) {
			continue
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (b *Bucket) listPrefixes(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", b.name, prefix, err)
		}
		// Plain objects outside the directory convention come back with
		// Name set instead of Prefix; they are not run directories.
		if attrs.Prefix == "" {
			continue
		}
		out = append(out, strings.TrimSuffix(strings.TrimPrefix(attrs.Prefix, prefix), "/"))
	}
	return out, nil
}

func (b *Bucket) handles(names []string) []*storage.ObjectHandle {
	refs := make([]*storage.ObjectHandle, len(names))
	for i, name := range names {
		refs[i] = b.bucket.Object(name)
	}
	return refs
}
