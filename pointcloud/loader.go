package pointcloud

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/edaniels/golog"
)

// FindFiles enumerates the files in dir matching any of the given
// extensions. A file discoverable through more than one extension pattern is
// counted once; ordering is by pattern then path so results are stable.
func FindFiles(dir string, extensions []string, logger golog.Logger) ([]string, error) {
	seen := map[string]bool{}
	var found []string
	for _, ext := range extensions {
		ext = strings.TrimPrefix(ext, ".")
		matches, err := filepath.Glob(filepath.Join(dir, "*."+ext))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		for _, m := range matches {
			key := filepath.Clean(m)
			if seen[key] {
				continue
			}
			seen[key] = true
			found = append(found, m)
		}
	}
	logger.Infof("found %d point cloud files in %s", len(found), dir)
	return found, nil
}

// LoadDirectory reads every point cloud file in dir with one of the accepted
// extensions and merges them into a single cloud. A file that fails to parse
// is logged and skipped; if nothing parses the result is an explicitly empty
// cloud, never an error, so downstream stages must tolerate zero points.
func LoadDirectory(dir string, extensions []string, logger golog.Logger) (*PointCloud, error) {
	files, err := FindFiles(dir, extensions, logger)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		logger.Warnf("no point cloud files found in %s", dir)
		return New(), nil
	}

	merged := New()
	loaded := 0
	for _, fn := range files {
		pc, err := NewFromFile(fn, logger)
		if err != nil {
			logger.Warnf("skipping %s: %s", fn, err)
			continue
		}
		merged.Merge(pc)
		loaded++
	}
	if loaded == 0 {
		logger.Warnf("no point cloud files in %s could be parsed", dir)
		return New(), nil
	}
	logger.Infof("merged %d files into %d points", loaded, merged.Size())
	return merged, nil
}
