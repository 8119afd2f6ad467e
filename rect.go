package denoise

// bufferAlign is the row alignment, in pixels, of every working buffer.
// Rows are padded up to a multiple of 4 floats so downstream vectorized
// consumers can load them without scalar prologues.
const bufferAlign = 4

// Rect is the working rectangle of a prefilter pass: the pixel region
// [X0,X1) x [Y0,Y1) over which all output buffers are laid out row-major
// with the row width rounded up to a multiple of 4.
//
// Every working-buffer index is (y-Y0)*AlignedWidth() + (x-X0); buffers
// passed to the kernels must hold at least BufferLen() floats.
type Rect struct {
	X0, Y0 int // inclusive lower corner
	X1, Y1 int // exclusive upper corner
}

// Width returns the unpadded pixel width of the rectangle.
func (r Rect) Width() int { return r.X1 - r.X0 }

// Height returns the pixel height of the rectangle.
func (r Rect) Height() int { return r.Y1 - r.Y0 }

// AlignedWidth returns the row pitch of working buffers laid out over r:
// the width rounded up to a multiple of 4 pixels.
func (r Rect) AlignedWidth() int { return alignUp(r.Width(), bufferAlign) }

// Index returns the working-buffer index of the frame pixel (x, y).
// The pixel must lie inside the rectangle; no bounds check is performed.
func (r Rect) Index(x, y int) int {
	return (y-r.Y0)*r.AlignedWidth() + (x - r.X0)
}

// BufferLen returns the minimum length of a working buffer covering r.
func (r Rect) BufferLen() int { return r.AlignedWidth() * r.Height() }

// Contains reports whether the frame pixel (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X0 && x < r.X1 && y >= r.Y0 && y < r.Y1
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// alignUp rounds v up to the next multiple of align.
// align must be a power of two.
func alignUp(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}
