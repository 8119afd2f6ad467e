package denoise

// Render-buffer layout of the shadow pass. The six shadow fields live at
// shadowBaseOffset floats past the denoising sub-block of each pixel and
// hold two independent half-sample accumulations: the odd samples in the
// A fields, the even samples in the B fields.
const (
	shadowBaseOffset = 14

	shadowWeightA = 0 // accumulated sample weight, half A
	shadowSumA    = 1 // accumulated occlusion sum, half A
	shadowSumSqA  = 2 // accumulated sum of squares (or centered variance), half A
	shadowWeightB = 3
	shadowSumB    = 4
	shadowSumSqB  = 5
)

// Layout carries the render-buffer layout constants of the current render.
// Both values come from the producing render pipeline and stay fixed for
// the lifetime of a pass.
type Layout struct {
	// PassStride is the number of floats each pixel occupies across all
	// render passes.
	PassStride int

	// DenoisingOffset is the float offset of the denoising sub-block
	// within a pixel's PassStride floats.
	DenoisingOffset int

	// SplitVariance selects how the variance accumulators are stored.
	// When true the variance field is a plain sum of squares and the
	// kernels subtract the squared mean to center it; when false the
	// accumulator is already centered.
	SplitVariance bool
}

// Tiles describes a 3x3 grid of render tiles covering a frame.
//
// X and Y hold the column/row split coordinates; a pixel bins into
// column 0 when x < X[1], column 1 when x < X[2], column 2 otherwise
// (rows are symmetric). Tiles are indexed row-major, tile = row*3 + col.
//
// The per-tile buffers are owned by the render-buffer system; Tiles only
// references them. The grid is built once per render pass and is read-only
// to this package. Binning is the only addressing check performed: a pixel
// outside every tile's valid region produces silently wrong addressing,
// which the producer must rule out by construction.
type Tiles struct {
	X, Y [3]int

	// Offsets is the per-tile element offset added to a pixel's
	// (y*stride + x) position before scaling by the pass stride.
	Offsets [9]int

	// Strides is the per-tile row pitch in pixels.
	Strides [9]int

	// Buffers holds each tile's render-buffer storage.
	Buffers [9][]float32
}

// NewFrameTiles returns a Tiles describing a single untiled frame of the
// given size backed by buf. Every pixel of [0,width) x [0,height) bins to
// the center tile; the surrounding eight tiles are empty. This is the
// layout a renderer uses when denoising a whole frame at once rather than
// tile by tile.
func NewFrameTiles(width, height int, buf []float32) *Tiles {
	t := &Tiles{
		X: [3]int{0, 0, width},
		Y: [3]int{0, 0, height},
	}
	t.Offsets[4] = 0
	t.Strides[4] = width
	t.Buffers[4] = buf
	return t
}

// TileFor returns the row-major index of the tile owning pixel (x, y).
func (t *Tiles) TileFor(x, y int) int {
	xtile := 2
	if x < t.X[1] {
		xtile = 0
	} else if x < t.X[2] {
		xtile = 1
	}
	ytile := 2
	if y < t.Y[1] {
		ytile = 0
	} else if y < t.Y[2] {
		ytile = 1
	}
	return ytile*3 + xtile
}

// Locate resolves the frame pixel (x, y) to its owning tile's storage:
// the tile buffer, the element offset, the row stride in pixels and the
// tile index. The float fields of the pixel then live at
// buf[((y*stride + x + offset) * passStride) + fieldOffset].
func (t *Tiles) Locate(x, y int) (buf []float32, offset, stride, tile int) {
	tile = t.TileFor(x, y)
	return t.Buffers[tile], t.Offsets[tile], t.Strides[tile], tile
}

// pixel returns the tile buffer holding (x, y) and the base index of that
// pixel's floats for the given pass stride.
func (t *Tiles) pixel(x, y, passStride int) ([]float32, int) {
	buf, offset, stride, _ := t.Locate(x, y)
	return buf, (y*stride + x + offset) * passStride
}
