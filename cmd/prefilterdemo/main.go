// Command prefilterdemo exercises the denoise prefilter on a synthetic
// render: it accumulates a noisy shadow pass and a depth pass the way a
// path tracer would, runs the prefilter pipeline over the frame and
// writes heatmap PNGs of the resulting working buffers.
package main

import (
	"flag"
	"log"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/gogpu/denoise"
)

// Render-buffer layout of the synthetic frame. The denoising block uses
// the conventional float offsets: depth mean/variance at 12/13 and the
// six shadow fields starting at 14.
const (
	passStride      = 20
	denoisingOffset = 0
	depthMeanOffset = 12
	depthVarOffset  = 13
	shadowBase      = 14
)

func main() {
	var (
		width   = flag.Int("width", 256, "frame width")
		height  = flag.Int("height", 256, "frame height")
		samples = flag.Int("samples", 64, "accumulated sample count")
		radius  = flag.Int("radius", 2, "combine smoothing radius (0-2)")
		noise   = flag.Float64("noise", 0.25, "per-sample noise amplitude")
		outDir  = flag.String("out", ".", "output directory for heatmap PNGs")
		verbose = flag.Bool("v", false, "enable debug logging")
		seed    = flag.Int64("seed", 1, "random seed")
	)
	flag.Parse()

	if *verbose {
		denoise.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	buf := synthesize(*width, *height, *samples, *noise, rand.New(rand.NewSource(*seed)))
	tiles := denoise.NewFrameTiles(*width, *height, buf)
	rect := denoise.Rect{X0: 0, Y0: 0, X1: *width, Y1: *height}
	layout := denoise.Layout{
		PassStride:      passStride,
		DenoisingOffset: denoisingOffset,
		SplitVariance:   true,
	}

	p, err := denoise.NewPipeline(tiles, rect, layout, denoise.WithCombineRadius(*radius))
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	shadow, err := p.PrefilterShadow(*samples)
	if err != nil {
		log.Fatalf("Shadow prefilter failed: %v", err)
	}
	depth, err := p.PrefilterFeature(*samples, depthMeanOffset, depthVarOffset)
	if err != nil {
		log.Fatalf("Depth prefilter failed: %v", err)
	}

	outputs := map[string][]float32{
		"shadow_mean.png":            shadow.Mean,
		"shadow_variance.png":        shadow.Variance,
		"shadow_sample_variance.png": shadow.SampleVariance,
		"shadow_buffer_variance.png": shadow.BufferVariance,
		"depth_mean.png":             depth.Mean,
		"depth_variance.png":         depth.Variance,
	}
	for name, b := range outputs {
		path := filepath.Join(*outDir, name)
		if err := denoise.SaveHeatmapPNG(path, b, rect, 0); err != nil {
			log.Fatalf("Failed to save %s: %v", path, err)
		}
	}

	log.Printf("Prefiltered %dx%d frame at %d samples, wrote %d heatmaps to %s",
		*width, *height, *samples, len(outputs), *outDir)
}

// synthesize accumulates a noisy shadow pass and a clean-ish depth pass
// into a flat render buffer, split into odd/even sample halves the way a
// renderer fills its denoising block.
func synthesize(width, height, samples int, noise float64, rng *rand.Rand) []float32 {
	buf := make([]float32, width*height*passStride)

	cx, cy := float64(width)/2, float64(height)/2
	r := float64(min(width, height)) / 3

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			base := (y*width + x) * passStride

			// Ground truth: a soft circular shadow on a tilted plane.
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			occlusion := 1 / (1 + math.Exp((d-r)/6))
			depth := 1 + float64(y)/float64(height)

			for s := 0; s < samples; s++ {
				v := occlusion + noise*(rng.Float64()*2-1)

				// Odd samples into half A, even into half B.
				half := shadowBase + 3
				if s%2 == 0 {
					half = shadowBase
				}
				buf[base+half+0]++
				buf[base+half+1] += float32(v)
				buf[base+half+2] += float32(v * v)

				dv := depth + 0.01*noise*(rng.Float64()*2-1)
				buf[base+depthMeanOffset] += float32(dv)
				buf[base+depthVarOffset] += float32(dv * dv)
			}
		}
	}
	return buf
}
