package main

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/MCooperBorkenhagen/gtools/internal/artifact"
	"github.com/MCooperBorkenhagen/gtools/internal/storage"
	"github.com/MCooperBorkenhagen/gtools/pkg/logger"
)

func listRuns(c *cli.Context) error {
	store := bucketFrom(c)

	runs, err := store.ListRuns(c.Context)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Println(run)
	}
	return nil
}

func listModels(c *cli.Context) error {
	store := bucketFrom(c)

	infos, err := store.ListModelInfo(c.Context, c.String("run"))
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Printf("%s\thidden=%d epochs=%d batch=%d lr=%g optimizer=%s loss=%s\n",
			info.Name, info.HiddenUnits, info.Epochs, info.BatchSize,
			info.LearningRate, info.Optimizer, info.Loss)
	}
	return nil
}

func listEpochs(c *cli.Context) error {
	store := bucketFrom(c)

	refs, err := store.ListEpochRefs(c.Context, c.String("run"), c.String("tracking"))
	if err != nil {
		return err
	}
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.ObjectName()
	}
	if c.Bool("sort") {
		sort.Slice(names, func(i, j int) bool {
			a, _ := artifact.EpochIndex(names[i])
			b, _ := artifact.EpochIndex(names[j])
			return a < b
		})
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func fetchObject(c *cli.Context) error {
	store := bucketFrom(c)

	local, err := storage.BlobToFile(c.Context, store.Object(c.String("object")), c.String("dir"))
	if err != nil {
		return err
	}
	fmt.Println(local)
	return nil
}

func pullObjects(c *cli.Context) error {
	store := bucketFrom(c)

	objects := c.StringSlice("object")
	if len(objects) == 0 {
		run := c.String("run")
		if run == "" {
			return fmt.Errorf("nothing to pull: pass --object or --run")
		}
		prefix := artifact.RunPrefix(run)
		if tracking := c.String("tracking"); tracking != "" {
			prefix = artifact.TrackingPrefix(run, tracking)
		}
		var err error
		objects, err = store.ObjectNames(c.Context, prefix)
		if err != nil {
			return err
		}
		if len(objects) == 0 {
			return fmt.Errorf("no objects under %s/%s", store.Name(), prefix)
		}
	}

	results, err := store.DownloadMany(c.Context, objects, c.String("dir"), c.Int("workers"))
	if err != nil {
		return err
	}
	return reportResults(results)
}

func mirrorBucket(c *cli.Context) error {
	store := bucketFrom(c)

	results, err := store.DownloadBucket(c.Context, c.String("dir"), c.Int("workers"))
	if err != nil {
		return err
	}
	return reportResults(results)
}

// reportResults prints each downloaded path and returns an error summarizing
// any per-object failures.
func reportResults(results []storage.DownloadResult) error {
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			logger.Log.Warn().Err(res.Err).Str("object", res.Object).Msg("download failed")
			continue
		}
		fmt.Println(res.Path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(results))
	}
	logger.Log.Info().Int("objects", len(results)).Msg("download complete")
	return nil
}
