package main

import (
	"context"
	"fmt"
	"log"
	"os"

	gcs "cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"google.golang.org/api/option"

	"github.com/MCooperBorkenhagen/gtools/internal/storage"
)

type contextKey string

const clientKey contextKey = "storage-client"

func newBucketFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "bucket",
		Usage:   "Bucket holding the experiment artifacts",
		Value:   "gtools-models",
		EnvVars: []string{"GCS_BUCKET"},
	}
}

func newDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "dir",
		Usage:   "Local directory downloads mirror into",
		Value:   "./data/artifacts",
		EnvVars: []string{"DOWNLOAD_DIR"},
	}
}

func newWorkersFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:    "workers",
		Usage:   "Concurrent transfers for bulk downloads",
		Value:   storage.DefaultWorkers,
		EnvVars: []string{"DOWNLOAD_WORKERS"},
	}
}

func initClient(c *cli.Context) error {
	client, err := gcs.NewClient(c.Context, option.WithScopes(gcs.ScopeReadOnly))
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	// Store the client in the context
	c.Context = context.WithValue(c.Context, clientKey, client)
	return nil
}

func closeClient(c *cli.Context) error {
	// Close the storage client when done
	if client, ok := c.Context.Value(clientKey).(*gcs.Client); ok && client != nil {
		return client.Close()
	}
	return nil
}

func bucketFrom(c *cli.Context) *storage.Bucket {
	client := c.Context.Value(clientKey).(*gcs.Client)
	return storage.NewBucket(client, c.String("bucket"))
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "gtools",
		Usage: "Browse and download experiment artifacts from the model bucket",
		Commands: []*cli.Command{
			{
				Name:   "runs",
				Usage:  "List run names present in the bucket",
				Flags:  []cli.Flag{newBucketFlag()},
				Before: initClient,
				After:  closeClient,
				Action: listRuns,
			},
			{
				Name:  "models",
				Usage: "List model configurations recorded under a run",
				Flags: []cli.Flag{
					newBucketFlag(),
					&cli.StringFlag{
						Name:     "run",
						Usage:    "Run name",
						Required: true,
					},
				},
				Before: initClient,
				After:  closeClient,
				Action: listModels,
			},
			{
				Name:  "epochs",
				Usage: "List epoch snapshots of one tracked model",
				Flags: []cli.Flag{
					newBucketFlag(),
					&cli.StringFlag{
						Name:     "run",
						Usage:    "Run name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "tracking",
						Usage:    "Tracking id of the model",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "sort",
						Usage: "Sort numerically by epoch index instead of listing order",
					},
				},
				Before: initClient,
				After:  closeClient,
				Action: listEpochs,
			},
			{
				Name:  "fetch",
				Usage: "Fetch a single object into the mirror directory",
				Flags: []cli.Flag{
					newBucketFlag(),
					newDirFlag(),
					&cli.StringFlag{
						Name:     "object",
						Usage:    "Remote object name",
						Required: true,
					},
				},
				Before: initClient,
				After:  closeClient,
				Action: fetchObject,
			},
			{
				Name:  "pull",
				Usage: "Download objects concurrently, by name or by run prefix",
				Flags: []cli.Flag{
					newBucketFlag(),
					newDirFlag(),
					newWorkersFlag(),
					&cli.StringSliceFlag{
						Name:  "object",
						Usage: "Remote object name (repeatable)",
					},
					&cli.StringFlag{
						Name:  "run",
						Usage: "Pull every artifact of this run",
					},
					&cli.StringFlag{
						Name:  "tracking",
						Usage: "Restrict --run to one tracking id",
					},
				},
				Before: initClient,
				After:  closeClient,
				Action: pullObjects,
			},
			{
				Name:  "mirror",
				Usage: "Download every artifact in the bucket",
				Flags: []cli.Flag{
					newBucketFlag(),
					newDirFlag(),
					newWorkersFlag(),
				},
				Before: initClient,
				After:  closeClient,
				Action: mirrorBucket,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
