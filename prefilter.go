package denoise

// Per-pixel prefilter kernels. Each function is a pure transform from the
// raw render-buffer accumulators to the rectangular working buffers the
// NLM stage consumes. They hold no state, never allocate and write only
// the single working-buffer index derived from the pixel they are given,
// so invocations over different pixels are free to run concurrently.
//
// Numeric policy: near-zero ratio weights are floored at weightEpsilon,
// variances that go negative from floating-point cancellation are clamped
// to zero, and sample counts below 2 are an unenforced precondition (a
// zero Bessel divisor count-1 yields Inf/NaN). None of these surface as
// errors.

// weightEpsilon floors the accumulated weight in ratio estimates so a
// pixel with (near-)zero weight divides cleanly instead of branching.
const weightEpsilon = 1e-7

// maxCombineRadius bounds the CombineHalves smoothing window. The window
// values live in a fixed 25-element array sized for (2*2+1)^2 pixels;
// growing the radius would overflow it and change the estimator's
// statistical behavior, so the bound is part of the contract.
const maxCombineRadius = 2

// ShadowBuffers holds the five working buffers DivideShadow writes.
// All of them are caller-allocated with at least rect.BufferLen() floats.
type ShadowBuffers struct {
	// UnfilteredA and UnfilteredB are the two half-images of the shadow
	// feature: the occlusion ratio estimated from the odd and even
	// sample subsets independently.
	UnfilteredA, UnfilteredB []float32

	// SampleVariance is the pooled per-sample variance of the ratio.
	// It propagates the two half variances as if independent and
	// additive instead of applying a delta-method ratio correction,
	// which makes it biased; downstream weighting accounts for that.
	SampleVariance []float32

	// SampleVarianceV estimates the variance of SampleVariance itself,
	// from the discrepancy of the two half variances. Noisy; consumers
	// treat it as an estimator-confidence signal, not as a variance to
	// be filtered like SampleVariance.
	SampleVarianceV []float32

	// BufferVariance is the split-buffer variance of the shadow
	// feature: unbiased but noisy, derived purely from the difference
	// of the two half estimates.
	BufferVariance []float32
}

// DivideShadow performs the shadow division for one pixel: it reads the
// pixel's six shadow accumulator fields through tiles and writes the two
// ratio half-images and the three variance estimates at the pixel's
// working-rectangle index.
//
// sample is the total accumulated sample count of the pass; the odd half
// holds ceil(sample/2) samples and the even half floor(sample/2). Both
// must be at least 2 for the variance normalization to be defined.
func DivideShadow(sample int, tiles *Tiles, x, y int, out ShadowBuffers, rect Rect, layout Layout) {
	buf, base := tiles.pixel(x, y, layout.PassStride)
	center := buf[base+layout.DenoisingOffset+shadowBaseOffset:]

	idx := rect.Index(x, y)
	unfilteredA := center[shadowSumA] / max(center[shadowWeightA], weightEpsilon)
	unfilteredB := center[shadowSumB] / max(center[shadowWeightB], weightEpsilon)
	out.UnfilteredA[idx] = unfilteredA
	out.UnfilteredB[idx] = unfilteredB

	varA := center[shadowSumSqA]
	varB := center[shadowSumSqB]
	oddSample := (sample + 1) / 2
	evenSample := sample / 2
	if layout.SplitVariance {
		varA = max(0, varA-unfilteredA*unfilteredA*float32(oddSample))
		varB = max(0, varB-unfilteredB*unfilteredB*float32(evenSample))
	}
	varA /= float32(oddSample - 1)
	varB /= float32(evenSample - 1)

	out.SampleVariance[idx] = 0.5 * (varA + varB) / float32(sample)
	out.SampleVarianceV[idx] = 0.5 * (varA - varB) * (varA - varB) / float32(sample*sample)
	out.BufferVariance[idx] = 0.5 * (unfilteredA - unfilteredB) * (unfilteredA - unfilteredB)
}

// GetFeature loads one pixel of a plain feature pass (albedo, normal,
// depth, ...) into the mean and variance working buffers, normalized by
// the sample count. meanOffset and varOffset are the float offsets of the
// feature's mean and variance fields within the pixel's denoising block.
//
// The variance written is the variance of the mean (standard-error form),
// so sample must be at least 2.
func GetFeature(sample int, tiles *Tiles, meanOffset, varOffset, x, y int, mean, variance []float32, rect Rect, layout Layout) {
	buf, base := tiles.pixel(x, y, layout.PassStride)
	center := buf[base+layout.DenoisingOffset:]

	idx := rect.Index(x, y)
	m := center[meanOffset] / float32(sample)
	mean[idx] = m
	norm := float32(sample) * float32(sample-1)
	if layout.SplitVariance {
		variance[idx] = max(0, (center[varOffset]-m*m*float32(sample))/norm)
	} else {
		variance[idx] = center[varOffset] / norm
	}
}

// CombineHalves merges the A/B half-buffers of a feature at one pixel.
// Either output may be nil to skip it. The mean is the plain average of
// the halves. The variance is the split-buffer estimate 0.25*(a-b)^2:
// taken at the pixel alone when radius is 0, otherwise as the value at
// rank floor(7n/8) of the sorted per-pixel split variances over the
// (2*radius+1)^2 window clipped to rect.
//
// The upper-percentile rank keeps a local noise spike (a firefly) from
// being washed out the way a mean would, while still smoothing single
// sample anomalies. radius must not exceed 2.
func CombineHalves(x, y int, mean, variance, a, b []float32, rect Rect, radius int) {
	idx := rect.Index(x, y)

	if mean != nil {
		mean[idx] = 0.5 * (a[idx] + b[idx])
	}
	if variance == nil {
		return
	}
	if radius == 0 {
		d := a[idx] - b[idx]
		variance[idx] = 0.25 * d * d
		return
	}

	bufferW := rect.AlignedWidth()
	var values [25]float32
	n := 0
	for py := max(y-radius, rect.Y0); py < min(y+radius+1, rect.Y1); py++ {
		for px := max(x-radius, rect.X0); px < min(x+radius+1, rect.X1); px++ {
			pidx := (py-rect.Y0)*bufferW + (px - rect.X0)
			d := a[pidx] - b[pidx]
			values[n] = 0.25 * d * d
			n++
		}
	}
	// Insertion sort; fast enough for at most 25 elements.
	for i := 1; i < n; i++ {
		v := values[i]
		j := i - 1
		for ; j >= 0 && values[j] > v; j-- {
			values[j+1] = values[j]
		}
		values[j+1] = v
	}
	variance[idx] = values[(7*n)/8]
}
