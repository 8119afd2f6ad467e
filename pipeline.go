package denoise

import (
	"fmt"
	"time"

	"github.com/gogpu/denoise/internal/parallel"
)

// Option configures a Pipeline during creation.
//
// Example:
//
//	// Default: GOMAXPROCS workers, combine radius 2
//	p, err := denoise.NewPipeline(tiles, rect, layout)
//
//	// Single worker, per-pixel variance only
//	p, err := denoise.NewPipeline(tiles, rect, layout,
//	    denoise.WithWorkers(1), denoise.WithCombineRadius(0))
type Option func(*pipelineOptions)

type pipelineOptions struct {
	workers       int
	combineRadius int
}

func defaultOptions() pipelineOptions {
	return pipelineOptions{
		workers:       0, // GOMAXPROCS
		combineRadius: maxCombineRadius,
	}
}

// WithWorkers sets the number of worker goroutines used to evaluate the
// per-pixel stages. Zero or negative selects GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *pipelineOptions) {
		o.workers = n
	}
}

// WithCombineRadius sets the smoothing radius of the half-combine stage.
// Radius 0 keeps the per-pixel split variance; radius 1 or 2 replaces it
// with the upper-percentile order statistic over the surrounding window.
func WithCombineRadius(r int) Option {
	return func(o *pipelineOptions) {
		o.combineRadius = r
	}
}

// Pipeline drives the prefilter stages over a working rectangle.
//
// It owns the stage scheduling the per-pixel kernels deliberately leave
// to their caller: each stage is sharded into rows and executed on a
// worker pool, and the pool's completion wait acts as the barrier
// between the divide/extract stage and the combine stage, so combine
// windows only ever read fully populated half-buffers.
//
// A Pipeline allocates the output buffers it returns but never touches
// the render buffers referenced by its Tiles. Close releases the worker
// pool; results stay valid afterwards.
type Pipeline struct {
	tiles  *Tiles
	rect   Rect
	layout Layout
	radius int
	pool   *parallel.Pool
}

// ShadowResult holds the prefiltered shadow feature: the raw working
// buffers written by the divide stage plus the combined mean and
// smoothed buffer variance the NLM stage filters.
type ShadowResult struct {
	ShadowBuffers

	// Mean is the average of the two unfiltered half-images.
	Mean []float32

	// Variance is the half-combined split variance of the shadow
	// feature, smoothed with the pipeline's combine radius.
	Variance []float32
}

// FeatureResult holds a prefiltered plain feature pass.
type FeatureResult struct {
	Mean     []float32
	Variance []float32
}

// NewPipeline creates a pipeline over the given tile grid, working
// rectangle and buffer layout. The returned pipeline must be closed when
// no longer needed.
func NewPipeline(tiles *Tiles, rect Rect, layout Layout, opts ...Option) (*Pipeline, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if tiles == nil {
		return nil, fmt.Errorf("denoise: nil tile grid")
	}
	if rect.Empty() {
		return nil, fmt.Errorf("denoise: empty working rectangle %+v", rect)
	}
	if layout.PassStride <= 0 {
		return nil, fmt.Errorf("denoise: pass stride %d, must be positive", layout.PassStride)
	}
	if layout.DenoisingOffset < 0 {
		return nil, fmt.Errorf("denoise: negative denoising offset %d", layout.DenoisingOffset)
	}
	if o.combineRadius < 0 || o.combineRadius > maxCombineRadius {
		return nil, fmt.Errorf("denoise: combine radius %d outside [0, %d]", o.combineRadius, maxCombineRadius)
	}
	if tiles.X[0] > tiles.X[1] || tiles.X[1] > tiles.X[2] ||
		tiles.Y[0] > tiles.Y[1] || tiles.Y[1] > tiles.Y[2] {
		return nil, fmt.Errorf("denoise: tile boundaries not sorted: x=%v y=%v", tiles.X, tiles.Y)
	}

	p := &Pipeline{
		tiles:  tiles,
		rect:   rect,
		layout: layout,
		radius: o.combineRadius,
		pool:   parallel.New(o.workers),
	}

	Logger().Debug("pipeline created",
		"rect", fmt.Sprintf("[%d,%d)x[%d,%d)", rect.X0, rect.X1, rect.Y0, rect.Y1),
		"alignedWidth", rect.AlignedWidth(),
		"workers", p.pool.Workers(),
		"combineRadius", p.radius)

	return p, nil
}

// Close releases the pipeline's worker pool.
// Close is safe to call multiple times.
func (p *Pipeline) Close() {
	p.pool.Close()
}

// PrefilterShadow runs the shadow division over the working rectangle and
// combines the two half-images into the final mean and smoothed variance.
//
// The shadow pass splits its samples into odd and even halves, so sample
// must be at least 4 for both halves to carry the two samples the
// variance normalization needs.
func (p *Pipeline) PrefilterShadow(sample int) (*ShadowResult, error) {
	if sample < 4 {
		return nil, fmt.Errorf("denoise: shadow prefilter needs at least 4 samples, have %d", sample)
	}

	n := p.rect.BufferLen()
	res := &ShadowResult{
		ShadowBuffers: ShadowBuffers{
			UnfilteredA:     make([]float32, n),
			UnfilteredB:     make([]float32, n),
			SampleVariance:  make([]float32, n),
			SampleVarianceV: make([]float32, n),
			BufferVariance:  make([]float32, n),
		},
		Mean:     make([]float32, n),
		Variance: make([]float32, n),
	}

	start := time.Now()
	p.runRows(func(x, y int) {
		DivideShadow(sample, p.tiles, x, y, res.ShadowBuffers, p.rect, p.layout)
	})
	// Divide stage complete for the whole rectangle; combine windows may
	// now read any neighborhood of the half-buffers.
	p.runRows(func(x, y int) {
		CombineHalves(x, y, res.Mean, res.Variance,
			res.UnfilteredA, res.UnfilteredB, p.rect, p.radius)
	})

	Logger().Debug("shadow prefilter",
		"sample", sample,
		"pixels", p.rect.Width()*p.rect.Height(),
		"elapsed", time.Since(start))

	return res, nil
}

// PrefilterFeature normalizes a plain feature pass into mean and variance
// buffers over the working rectangle. meanOffset and varOffset locate the
// feature's fields within the denoising sub-block. sample must be at
// least 2.
func (p *Pipeline) PrefilterFeature(sample, meanOffset, varOffset int) (*FeatureResult, error) {
	if sample < 2 {
		return nil, fmt.Errorf("denoise: feature prefilter needs at least 2 samples, have %d", sample)
	}

	n := p.rect.BufferLen()
	res := &FeatureResult{
		Mean:     make([]float32, n),
		Variance: make([]float32, n),
	}

	start := time.Now()
	p.runRows(func(x, y int) {
		GetFeature(sample, p.tiles, meanOffset, varOffset, x, y,
			res.Mean, res.Variance, p.rect, p.layout)
	})

	Logger().Debug("feature prefilter",
		"sample", sample,
		"meanOffset", meanOffset,
		"varOffset", varOffset,
		"elapsed", time.Since(start))

	return res, nil
}

// Combine merges two fully populated half-buffers of any feature into a
// combined mean and a smoothed split-variance buffer, using the
// pipeline's combine radius. Both inputs must cover the pipeline's
// working rectangle.
func (p *Pipeline) Combine(a, b []float32) (mean, variance []float32, err error) {
	n := p.rect.BufferLen()
	if len(a) < n || len(b) < n {
		return nil, nil, fmt.Errorf("denoise: half-buffer too short: have %d/%d, need %d", len(a), len(b), n)
	}

	mean = make([]float32, n)
	variance = make([]float32, n)
	p.runRows(func(x, y int) {
		CombineHalves(x, y, mean, variance, a, b, p.rect, p.radius)
	})
	return mean, variance, nil
}

// runRows evaluates fn for every pixel of the working rectangle, sharded
// into one job per row. It returns once every pixel has been processed,
// which makes consecutive calls act as pipeline-stage barriers.
func (p *Pipeline) runRows(fn func(x, y int)) {
	jobs := make([]func(), 0, p.rect.Height())
	for y := p.rect.Y0; y < p.rect.Y1; y++ {
		row := y
		jobs = append(jobs, func() {
			for x := p.rect.X0; x < p.rect.X1; x++ {
				fn(x, row)
			}
		})
	}
	p.pool.ExecuteAll(jobs)
}
