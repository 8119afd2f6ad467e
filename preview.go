package denoise

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
)

// Heatmap renders a working buffer as a grayscale image for inspection.
// Values are normalized linearly from the buffer's [min, max] range to
// [0, 255]; a flat buffer renders black. Only the rect.Width() leading
// pixels of each aligned row are read, so alignment padding never leaks
// into the preview.
func Heatmap(buf []float32, rect Rect) *image.Gray {
	w, h := rect.Width(), rect.Height()
	img := image.NewGray(image.Rect(0, 0, w, h))

	lo := float32(math.Inf(1))
	hi := float32(math.Inf(-1))
	aligned := rect.AlignedWidth()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := buf[y*aligned+x]
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}

	scale := float32(0)
	if hi > lo {
		scale = 255 / (hi - lo)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := (buf[y*aligned+x] - lo) * scale
			img.SetGray(x, y, color.Gray{Y: uint8(min(max(v, 0), 255))})
		}
	}
	return img
}

// SaveHeatmapPNG writes a heatmap of the working buffer to a PNG file.
// If maxDim is positive and the rectangle's larger side exceeds it, the
// image is scaled down to fit using Catmull-Rom resampling; otherwise it
// is written at native size.
func SaveHeatmapPNG(path string, buf []float32, rect Rect, maxDim int) error {
	if rect.Empty() {
		return fmt.Errorf("denoise: empty rectangle for heatmap %q", path)
	}
	if len(buf) < rect.BufferLen() {
		return fmt.Errorf("denoise: buffer too short for heatmap: have %d, need %d", len(buf), rect.BufferLen())
	}

	var img image.Image = Heatmap(buf, rect)
	w, h := rect.Width(), rect.Height()
	if maxDim > 0 && max(w, h) > maxDim {
		scale := float64(maxDim) / float64(max(w, h))
		dst := image.NewGray(image.Rect(0, 0,
			max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = dst
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, img)
}
