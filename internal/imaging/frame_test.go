package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civitas-labs/facegate/internal/domain"
)

func solidFrame(width, height int, r, g, b uint8) *Frame {
	f := NewFrame(width, height)
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i] = r
		f.Pix[i+1] = g
		f.Pix[i+2] = b
		f.Pix[i+3] = 255
	}
	return f
}

func TestFrame_Gray(t *testing.T) {
	f := solidFrame(4, 4, 30, 60, 90)

	assert.InDelta(t, 60.0, f.Gray(1, 1), 1e-9)
	assert.Zero(t, f.Gray(-1, 0))
	assert.Zero(t, f.Gray(0, 4))
}

func TestFrame_Crop(t *testing.T) {
	f := solidFrame(10, 10, 100, 100, 100)

	crop := f.Crop(domain.BoundingBox{X: 2, Y: 2, Width: 4, Height: 4})
	assert.Equal(t, 4, crop.Width)
	assert.Equal(t, 4, crop.Height)
	assert.InDelta(t, 100.0, crop.Gray(0, 0), 1e-9)
}

func TestFrame_CropClampsToBounds(t *testing.T) {
	f := solidFrame(10, 10, 1, 1, 1)

	crop := f.Crop(domain.BoundingBox{X: 8, Y: 8, Width: 100, Height: 100})
	assert.Equal(t, 2, crop.Width)
	assert.Equal(t, 2, crop.Height)

	empty := f.Crop(domain.BoundingBox{X: 50, Y: 50, Width: 10, Height: 10})
	assert.Zero(t, empty.Width)
	assert.Zero(t, empty.Height)
}

func TestFrame_Clone(t *testing.T) {
	f := solidFrame(3, 3, 10, 10, 10)
	c := f.Clone()

	c.Pix[0] = 200
	assert.Equal(t, uint8(10), f.Pix[0], "clone must not share the pixel buffer")
	assert.True(t, f.SameDimensions(c))
	assert.False(t, f.SameDimensions(nil))
}

func TestDecode_PNGRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 9, G: 9, B: 9, A: 255})
	img.Set(1, 1, color.RGBA{R: 90, G: 90, B: 90, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	f, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Width)
	assert.Equal(t, 2, f.Height)
	assert.InDelta(t, 9.0, f.Gray(0, 0), 1e-9)
	assert.InDelta(t, 90.0, f.Gray(1, 1), 1e-9)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}
