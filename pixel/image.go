package pixel

import (
	"encoding/binary"
	"image"
	"image/color"

	"github.com/BeatGlow/fbtft/draw"
)

type Image interface {
	draw.Image

	// Clear the image.
	Clear()

	// Fill the image with a single color.
	Fill(color.Color)
}

// Buffer holds the pixel values and is a container that is used by most image formats in this package.
type Buffer struct {
	// Rect is the image bounding box.
	Rect image.Rectangle

	// Pix are the image pixels.
	Pix []byte

	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
}

func (p *Buffer) Bounds() image.Rectangle {
	return p.Rect
}

func (p *Buffer) Clear() {
	clear(p.Pix)
}

// CRGB16Image is a 16-bits per pixel 5-6-5-bit RGB image.
type CRGB16Image struct {
	Buffer
	Order binary.ByteOrder
}

// NewCRGB16Image allocates a big endian image.
func NewCRGB16Image(w, h int) *CRGB16Image {
	return NewCRGB16ImageFrom(w, h, make([]byte, w*2*h))
}

// NewCRGB16ImageFrom wraps pix, which must hold at least w*h*2 bytes, as a
// big endian image.
func NewCRGB16ImageFrom(w, h int, pix []byte) *CRGB16Image {
	return &CRGB16Image{
		Buffer: Buffer{
			Rect:   image.Rect(0, 0, w, h),
			Pix:    pix,
			Stride: w * 2,
		},
		Order: binary.BigEndian,
	}
}

func (p *CRGB16Image) ColorModel() color.Model {
	return CRGB16Model
}

// PixOffset returns the index of the first byte of pixel (x, y).
func (p *CRGB16Image) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}

func (p *CRGB16Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}

	v := p.Order.Uint16(p.Pix[p.PixOffset(x, y):])
	return CRGB16{v}
}

func (p *CRGB16Image) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}

	v := crgb16Model(c).(CRGB16).V
	p.Order.PutUint16(p.Pix[p.PixOffset(x, y):], v)
}

// FillRect fills the part of r inside the image.
func (p *CRGB16Image) FillRect(r image.Rectangle, c color.Color) {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return
	}

	var value [2]byte
	p.Order.PutUint16(value[:], crgb16Model(c).(CRGB16).V)

	start := p.PixOffset(r.Min.X, r.Min.Y)
	row := p.Pix[start : start+r.Dx()*2]
	for i := 0; i < len(row); i += 2 {
		copy(row[i:], value[:])
	}
	for y := r.Min.Y + 1; y < r.Max.Y; y++ {
		copy(p.Pix[p.PixOffset(r.Min.X, y):], row)
	}
}

func (p *CRGB16Image) Fill(c color.Color) {
	p.FillRect(p.Rect, c)
}

// Interface checks.
var (
	_ Image = (*CRGB16Image)(nil)
)
