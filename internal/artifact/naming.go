// Package artifact defines the experiment-artifact records stored under the
// <run_name>/<tracking_id>/<artifact> naming convention, their file codecs,
// and the pure path logic shared by the listing and download layers.
package artifact

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// Artifact filenames under <run_name>/<tracking_id>/.
const (
	ConfigFileName = "config.json"

	epochPrefix = "epoch_"
	epochExt    = ".npz"
)

// Path is the parsed form of a remote object name.
type Path struct {
	Run        string
	TrackingID string
	Artifact   string
}

// ParsePath splits an object name into its convention segments. It requires
// at least run, tracking id and artifact filename, all non-empty.
func ParsePath(object string) (Path, error) {
	parts := strings.Split(object, "/")
	if len(parts) < 3 {
		return Path{}, fmt.Errorf("%w: %q needs at least <run_name>/<tracking_id>/<artifact>", ErrMalformedPath, object)
	}
	for _, part := range parts {
		if part == "" {
			return Path{}, fmt.Errorf("%w: %q has an empty segment", ErrMalformedPath, object)
		}
	}
	return Path{
		Run:        parts[0],
		TrackingID: parts[1],
		Artifact:   strings.Join(parts[2:], "/"),
	}, nil
}

// EpochIndex parses the integer index from an epoch artifact name, which may
// be a full object path or a bare filename. The filename must look like
// epoch_<index>.npz with a non-negative index.
func EpochIndex(object string) (int, error) {
	base := path.Base(object)
	if !strings.HasPrefix(base, epochPrefix) || !strings.HasSuffix(base, epochExt) {
		return 0, fmt.Errorf("%w: %q is not an epoch artifact", ErrMalformedPath, object)
	}
	index, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, epochPrefix), epochExt))
	if err != nil || index < 0 {
		return 0, fmt.Errorf("%w: %q has no numeric epoch index", ErrMalformedPath, object)
	}
	return index, nil
}

// IsConfigObject reports whether the object name is a run configuration file
// directly under <run_name>/<tracking_id>/.
func IsConfigObject(object string) bool {
	p, err := ParsePath(object)
	return err == nil && p.Artifact == ConfigFileName
}

// IsEpochObject reports whether the object name is an epoch state snapshot
// directly under <run_name>/<tracking_id>/.
func IsEpochObject(object string) bool {
	p, err := ParsePath(object)
	if err != nil || strings.Contains(p.Artifact, "/") {
		return false
	}
	_, err = EpochIndex(p.Artifact)
	return err == nil
}

// ConfigObject builds the remote name of a run's configuration object.
func ConfigObject(run, trackingID string) string {
	return path.Join(run, trackingID, ConfigFileName)
}

// EpochObject builds the remote name of an epoch state object.
func EpochObject(run, trackingID string, epoch int) string {
	return path.Join(run, trackingID, fmt.Sprintf("%s%d%s", epochPrefix, epoch, epochExt))
}

// RunPrefix is the listing prefix covering every artifact of a run.
func RunPrefix(run string) string {
	return run + "/"
}

// TrackingPrefix is the listing prefix covering one tracked run instance.
func TrackingPrefix(run, trackingID string) string {
	return run + "/" + trackingID + "/"
}

// LocalPath maps a remote object name to the local path mirroring it under
// destDir. An empty destDir mirrors into the working directory.
func LocalPath(destDir, object string) string {
	return filepath.Join(destDir, filepath.FromSlash(object))
}

// RemoteName recovers the remote object name from a local path produced by
// LocalPath: the trailing <run_name>/<tracking_id>/<artifact> segments.
func RemoteName(localPath string) (string, error) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(localPath)), "/")
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: %q is shorter than <run_name>/<tracking_id>/<artifact>", ErrMalformedPath, localPath)
	}
	return strings.Join(parts[len(parts)-3:], "/"), nil
}
