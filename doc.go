// Package denoise provides the prefilter stage of a Monte Carlo path-tracer
// denoiser.
//
// # Overview
//
// A path tracer accumulates per-pixel sample statistics (mean, variance,
// odd/even half-sample splits) into render buffers that are laid out across
// a 3x3 grid of render tiles. Before a non-local-means (NLM) filter can run,
// those raw accumulators have to be turned into compact rectangular working
// buffers holding normalized means and robust variance estimates. That
// conversion is what this package does.
//
// The core is three pure per-pixel operations sharing one addressing helper:
//
//   - Tiles.Locate maps a frame pixel to its owning tile's buffer,
//     offset and stride.
//   - DivideShadow converts the shadow pass (two weight/sum/sumSq half
//     accumulations) into two ratio half-images plus three variance buffers.
//   - GetFeature normalizes any plain feature pass (albedo, normal, depth,
//     ...) into a mean and a variance buffer.
//   - CombineHalves merges two half-buffers into a mean and a robust,
//     order-statistic based variance estimate.
//
// # Quick Start
//
//	import "github.com/gogpu/denoise"
//
//	tiles := denoise.NewFrameTiles(w, h, renderBuffer)
//	rect := denoise.Rect{X0: 0, Y0: 0, X1: w, Y1: h}
//	layout := denoise.Layout{PassStride: stride, DenoisingOffset: off}
//
//	p, err := denoise.NewPipeline(tiles, rect, layout)
//	if err != nil { ... }
//	defer p.Close()
//
//	shadow, err := p.PrefilterShadow(sample)
//
// The per-pixel functions can also be called directly for callers that run
// their own scheduling; they are stateless, never allocate, and write only
// the working-rectangle index derived from the pixel they are given.
//
// # Architecture
//
// The package is organized into:
//   - Public API: Tiles, Rect, Layout, the per-pixel kernels and Pipeline
//   - Internal: parallel (row-sharded worker pool)
//   - Tooling: preview heatmaps (preview.go), cmd/prefilterdemo
//
// Downstream NLM weighting and reconstruction are out of scope; consumers
// read the flat float32 buffers produced here.
package denoise
