// Package imaging holds the in-memory frame snapshot shared by the quality
// and liveness checks. A Frame is a plain RGBA pixel buffer decoupled from
// whatever the host captured it with (canvas, camera, decoded upload).
package imaging

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"

	"github.com/civitas-labs/facegate/internal/domain"
)

// Decode reads a JPEG or PNG stream into a Frame
func Decode(r io.Reader) (*Frame, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return FromImage(img), nil
}

// Frame is an RGBA snapshot of one video frame. Pix is packed row-major,
// 4 bytes per pixel.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewFrame allocates a zeroed frame
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// FromImage converts a decoded image into a Frame
func FromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	f := NewFrame(bounds.Dx(), bounds.Dy())

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			f.Pix[i] = uint8(r >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(b >> 8)
			f.Pix[i+3] = uint8(a >> 8)
			i += 4
		}
	}

	return f
}

// RGBA returns the channel values at (x, y). Out-of-bounds reads return zero.
func (f *Frame) RGBA(x, y int) (r, g, b, a uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, 0, 0, 0
	}
	i := (y*f.Width + x) * 4
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]
}

// Gray returns the grayscale intensity at (x, y) as the plain channel
// average (R+G+B)/3.
func (f *Frame) Gray(x, y int) float64 {
	r, g, b, _ := f.RGBA(x, y)
	return (float64(r) + float64(g) + float64(b)) / 3.0
}

// Crop copies the region covered by box, clamped to the frame bounds.
// An empty intersection yields a zero-size frame.
func (f *Frame) Crop(box domain.BoundingBox) *Frame {
	x0 := clamp(int(box.X), 0, f.Width)
	y0 := clamp(int(box.Y), 0, f.Height)
	x1 := clamp(int(box.X+box.Width), 0, f.Width)
	y1 := clamp(int(box.Y+box.Height), 0, f.Height)

	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}

	out := NewFrame(x1-x0, y1-y0)
	for y := y0; y < y1; y++ {
		srcOff := (y*f.Width + x0) * 4
		dstOff := (y - y0) * out.Width * 4
		copy(out.Pix[dstOff:dstOff+out.Width*4], f.Pix[srcOff:srcOff+out.Width*4])
	}

	return out
}

// Clone returns an independent copy of the frame
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Width:  f.Width,
		Height: f.Height,
		Pix:    make([]uint8, len(f.Pix)),
	}
	copy(out.Pix, f.Pix)
	return out
}

// EncodePNG writes the frame as PNG, for backends that consume encoded images
func (f *Frame) EncodePNG(w io.Writer) error {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	copy(img.Pix, f.Pix)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return nil
}

// SameDimensions reports whether two frames can be diffed pixel by pixel
func (f *Frame) SameDimensions(other *Frame) bool {
	return other != nil && f.Width == other.Width && f.Height == other.Height
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
