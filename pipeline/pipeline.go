// Package pipeline runs the full reconstruction: point cloud loading,
// cleanup, classification, meshing, image cleaning, and texturing.
package pipeline

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/hleong75/Reconstitution/classify"
	"github.com/hleong75/Reconstitution/geometry"
	"github.com/hleong75/Reconstitution/mesh"
	"github.com/hleong75/Reconstitution/pointcloud"
	"github.com/hleong75/Reconstitution/rimage"
	"github.com/hleong75/Reconstitution/texclean"
	"github.com/hleong75/Reconstitution/texture"
)

// Config configures a full pipeline run.
type Config struct {
	// LiDARDir holds the input point cloud files.
	LiDARDir string `json:"lidar_dir"`
	// LiDARFormats lists accepted point cloud extensions, without dots.
	LiDARFormats []string `json:"lidar_formats"`
	// ImageDir holds the street-level texture imagery.
	ImageDir string `json:"image_dir"`
	// ImageFormats lists accepted image extensions, without dots.
	ImageFormats []string `json:"image_formats"`
	// ImageMaxDim downscales loaded images whose larger side exceeds it.
	// Zero disables resizing.
	ImageMaxDim int `json:"image_max_dim"`
	// VoxelSize is the downsampling voxel edge length, in the cloud's units.
	// Zero disables downsampling.
	VoxelSize float64 `json:"voxel_size"`
	// OutlierNeighbors is the neighborhood size for statistical outlier
	// removal.
	OutlierNeighbors int `json:"outlier_neighbors"`
	// OutlierStdRatio is the distance threshold in standard deviations.
	OutlierStdRatio float64 `json:"outlier_std_ratio"`
	// Mesh configures surface reconstruction.
	Mesh mesh.Config `json:"mesh"`
	// Cleaning configures transient object removal from imagery.
	Cleaning texclean.Config `json:"cleaning"`
}

// CheckValid fills zero fields with defaults.
func (c *Config) CheckValid() error {
	if len(c.LiDARFormats) == 0 {
		c.LiDARFormats = []string{"las", "laz", "ply", "pcd"}
	}
	if len(c.ImageFormats) == 0 {
		c.ImageFormats = []string{"jpg", "jpeg", "png"}
	}
	if c.OutlierNeighbors == 0 {
		c.OutlierNeighbors = 20
	}
	if c.OutlierStdRatio == 0 {
		c.OutlierStdRatio = 2.0
	}
	return multierr.Combine(c.Mesh.CheckValid(), c.Cleaning.CheckValid())
}

// Result is the output of a pipeline run.
type Result struct {
	Cloud         *pointcloud.PointCloud
	Mesh          *mesh.Mesh
	CleanedImages []*rimage.Image
	Fallback      bool
}

// Pipeline wires the reconstruction stages together. All capabilities are
// injected so runs are testable without models or native geometry backends.
type Pipeline struct {
	conf        Config
	engine      geometry.Engine
	classifier  *classify.Classifier
	cleaner     *texclean.Cleaner
	synthesizer *texture.Synthesizer
	logger      golog.Logger
}

// New returns a pipeline. The segmentation models may be nil; classification
// and cleaning then use their fallback paths.
func New(
	conf Config,
	engine geometry.Engine,
	pointModel classify.Model,
	segModel texclean.SegModel,
	logger golog.Logger,
) (*Pipeline, error) {
	if err := conf.CheckValid(); err != nil {
		return nil, err
	}
	cleaner, err := texclean.NewCleaner(segModel, conf.Cleaning, logger)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		conf:        conf,
		engine:      engine,
		classifier:  classify.NewClassifier(pointModel, logger),
		cleaner:     cleaner,
		synthesizer: texture.NewSynthesizer(logger),
		logger:      logger,
	}, nil
}

// Run executes the pipeline end to end. The context is checked between
// stages; a stage already underway runs to completion.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	cloud, err := p.prepareCloud(ctx)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	outcome := p.classifier.Classify(cloud)
	ground := classify.Extract(cloud, pointcloud.LabelGround, p.logger)
	buildings := classify.Extract(cloud, pointcloud.LabelBuilding, p.logger)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reconstructor, err := mesh.NewReconstructor(p.engine, p.conf.Mesh, p.logger)
	if err != nil {
		return nil, err
	}
	m, err := reconstructor.Reconstruct(ground, buildings)
	if err != nil {
		p.logger.Errorw("surface reconstruction failed", "error", err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	images, err := p.prepareImages()
	if err != nil {
		return nil, err
	}
	cleaned := p.cleaner.CleanBatch(images)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.synthesizer.Colorize(m, cleaned)

	return &Result{
		Cloud:         cloud,
		Mesh:          m,
		CleanedImages: cleaned,
		Fallback:      outcome.Fallback,
	}, nil
}

// prepareCloud loads, downsamples, and denoises the merged input cloud.
func (p *Pipeline) prepareCloud(ctx context.Context) (*pointcloud.PointCloud, error) {
	cloud, err := pointcloud.LoadDirectory(p.conf.LiDARDir, p.conf.LiDARFormats, p.logger)
	if err != nil {
		return nil, errors.Wrap(err, "error loading point clouds")
	}
	if cloud.Size() == 0 {
		return cloud, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.conf.VoxelSize > 0 {
		down, err := p.engine.Downsample(cloud, p.conf.VoxelSize)
		if err != nil {
			return nil, errors.Wrap(err, "error downsampling point cloud")
		}
		p.logger.Infof("downsampled %d points to %d", cloud.Size(), down.Size())
		cloud = down
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	denoised, removed, err := p.engine.RemoveOutliers(cloud, p.conf.OutlierNeighbors, p.conf.OutlierStdRatio)
	if err != nil {
		return nil, errors.Wrap(err, "error removing outliers")
	}
	p.logger.Infof("removed %d outlier points", len(removed))
	return denoised, nil
}

// prepareImages finds and decodes texture imagery. A missing or empty image
// directory yields an empty set, not an error.
func (p *Pipeline) prepareImages() ([]*rimage.Image, error) {
	if p.conf.ImageDir == "" {
		p.logger.Warn("no image directory configured, mesh will use fallback coloring")
		return nil, nil
	}
	paths, err := rimage.FindImages(p.conf.ImageDir, p.conf.ImageFormats, p.logger)
	if err != nil {
		return nil, errors.Wrap(err, "error finding images")
	}
	return rimage.LoadImages(paths, p.conf.ImageMaxDim, p.logger), nil
}
