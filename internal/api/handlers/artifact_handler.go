// gtools/internal/api/handlers/artifact_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/MCooperBorkenhagen/gtools/internal/artifact"
	"github.com/MCooperBorkenhagen/gtools/internal/storage"
)

// maxDownloadJobs caps how many bulk downloads run at once; requests beyond
// the cap are refused rather than queued.
const maxDownloadJobs = 4

// DownloadSettings carries the download defaults a request may override.
type DownloadSettings struct {
	Dir     string
	Workers int
}

type ArtifactHandler struct {
	store     *storage.Bucket
	downloads DownloadSettings
	jobs      *semaphore.Weighted
}

func NewArtifactHandler(store *storage.Bucket, downloads DownloadSettings) *ArtifactHandler {
	return &ArtifactHandler{
		store:     store,
		downloads: downloads,
		jobs:      semaphore.NewWeighted(maxDownloadJobs),
	}
}

type modelResponse struct {
	artifact.ModelInfo
	Object string `json:"object"`
	Bucket string `json:"bucket"`
}

type epochResponse struct {
	Object string `json:"object"`
	Epoch  int    `json:"epoch"`
	Bucket string `json:"bucket"`
}

type downloadRequest struct {
	Objects     []string `json:"objects"`
	Destination string   `json:"destination"`
	Workers     int      `json:"workers"`
}

type downloadOutcome struct {
	Object string `json:"object"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ListRuns returns the run names present in the bucket
func (h *ArtifactHandler) ListRuns(c *gin.Context) {
	runs, err := h.store.ListRuns(c.Request.Context())
	if err != nil {
		mapArtifactError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bucket": h.store.Name(), "runs": runs})
}

// ListModels returns the model configuration records under one run
func (h *ArtifactHandler) ListModels(c *gin.Context) {
	run := c.Param("run")

	infos, err := h.store.ListModelInfo(c.Request.Context(), run)
	if err != nil {
		mapArtifactError(c, err)
		return
	}

	models := make([]modelResponse, len(infos))
	for i, info := range infos {
		models[i] = modelResponse{ModelInfo: info, Object: info.Name, Bucket: info.BucketName}
	}

	c.JSON(http.StatusOK, gin.H{"run": run, "models": models})
}

// ListEpochs returns the epoch snapshots recorded for one tracked model, in
// bucket listing order; each entry carries its parsed epoch index so clients
// can sort numerically
func (h *ArtifactHandler) ListEpochs(c *gin.Context) {
	run := c.Param("run")
	tracking := c.Param("tracking")

	refs, err := h.store.ListEpochRefs(c.Request.Context(), run, tracking)
	if err != nil {
		mapArtifactError(c, err)
		return
	}

	epochs := make([]epochResponse, 0, len(refs))
	for _, ref := range refs {
		index, err := artifact.EpochIndex(ref.ObjectName())
		if err != nil {
			continue
		}
		epochs = append(epochs, epochResponse{Object: ref.ObjectName(), Epoch: index, Bucket: ref.BucketName()})
	}

	c.JSON(http.StatusOK, gin.H{"run": run, "tracking_id": tracking, "epochs": epochs})
}

// CreateDownload runs a bulk download of the named objects and reports one
// outcome per object. An empty object list mirrors the whole bucket.
func (h *ArtifactHandler) CreateDownload(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if !h.jobs.TryAcquire(1) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many downloads in flight"})
		return
	}
	defer h.jobs.Release(1)

	destDir := req.Destination
	if destDir == "" {
		destDir = h.downloads.Dir
	}
	workers := req.Workers
	if workers <= 0 {
		workers = h.downloads.Workers
	}

	var (
		results []storage.DownloadResult
		err     error
	)
	if len(req.Objects) == 0 {
		results, err = h.store.DownloadBucket(c.Request.Context(), destDir, workers)
	} else {
		results, err = h.store.DownloadMany(c.Request.Context(), req.Objects, destDir, workers)
	}
	if err != nil {
		mapArtifactError(c, err)
		return
	}

	outcomes := make([]downloadOutcome, len(results))
	failed := 0
	for i, res := range results {
		outcomes[i] = downloadOutcome{Object: res.Object, Path: res.Path}
		if res.Err != nil {
			outcomes[i].Error = res.Err.Error()
			failed++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"destination": destDir,
		"requested":   len(results),
		"failed":      failed,
		"results":     outcomes,
	})
}

// mapArtifactError translates the artifact error taxonomy onto HTTP codes.
// Broken bucket content reads as a bad upstream, not a client fault.
func mapArtifactError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, artifact.ErrMalformedPath):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, artifact.ErrObjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, artifact.ErrDeserialize):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Msg("artifact request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
