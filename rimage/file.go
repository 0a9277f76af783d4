package rimage

import (
	"image"
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// NewFromFile decodes the image at the given path. If maxDim is positive and
// either dimension exceeds it, the image is downscaled to fit while keeping
// its aspect ratio.
func NewFromFile(path string, maxDim int) (*Image, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	decoded, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error decoding %q", path)
	}
	if maxDim > 0 {
		b := decoded.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			decoded = imaging.Fit(decoded, maxDim, maxDim, imaging.Lanczos)
		}
	}
	out := NewFromStdImage(decoded)
	out.Meta = Meta{Path: path}
	return out, nil
}

// FindImages globs a directory for the given extensions (without dots),
// returning a sorted, de-duplicated list of paths.
func FindImages(dir string, extensions []string, logger golog.Logger) ([]string, error) {
	seen := map[string]bool{}
	var found []string
	for _, ext := range extensions {
		ext = strings.TrimPrefix(ext, ".")
		matches, err := filepath.Glob(filepath.Join(dir, "*."+ext))
		if err != nil {
			return nil, errors.Wrapf(err, "error searching %q for %q files", dir, ext)
		}
		sort.Strings(matches)
		for _, m := range matches {
			cleaned := filepath.Clean(m)
			if seen[cleaned] {
				continue
			}
			seen[cleaned] = true
			found = append(found, cleaned)
		}
	}
	logger.Infof("found %d image files in %q", len(found), dir)
	return found, nil
}

// LoadImages decodes every path, skipping files that fail to decode with a
// warning. Order follows the input paths.
func LoadImages(paths []string, maxDim int, logger golog.Logger) []*Image {
	imgs := make([]*Image, 0, len(paths))
	for _, p := range paths {
		img, err := NewFromFile(p, maxDim)
		if err != nil {
			logger.Warnw("skipping unreadable image", "path", p, "error", err)
			continue
		}
		imgs = append(imgs, img)
	}
	logger.Infof("loaded %d of %d images", len(imgs), len(paths))
	return imgs
}
