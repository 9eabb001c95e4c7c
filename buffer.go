package fbtft

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/BeatGlow/fbtft/draw"
	"github.com/BeatGlow/fbtft/framebuffer"
	"github.com/BeatGlow/fbtft/pixel"
)

// BytesPerPixel of the RGB565 pixel format.
const BytesPerPixel = 2

// Metadata is the fixed description of a Buffer, reported verbatim to the
// registration consumer.
type Metadata struct {
	Width  int
	Height int
	Stride int
	Size   int
	Format framebuffer.Format
}

func (m Metadata) String() string {
	return fmt.Sprintf("%dx%d %s stride %d size %d", m.Width, m.Height, m.Format, m.Stride, m.Size)
}

// Buffer is a fixed size RGB565 pixel buffer. The drawing methods are safe
// for concurrent use; every mutation marks the buffer dirty.
//
// Buffer implements [draw.Image] and [draw.Filler].
type Buffer struct {
	mu    sync.Mutex
	img   *pixel.CRGB16Image
	meta  Metadata
	free  func([]byte) error
	dirty atomic.Bool
	dead  atomic.Bool

	// shown is the frame last handed to the display, guarded by mu.
	// While views hold the raw storage it is compared against the pixels
	// to pick up writes that bypass the dirty flag.
	shown []byte
	views atomic.Int32
}

// Allocate reserves a zeroed width x height buffer.
func Allocate(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, invalidArgument("buffer: invalid size %dx%d", width, height)
	}

	meta := Metadata{
		Width:  width,
		Height: height,
		Stride: width * BytesPerPixel,
		Size:   width * height * BytesPerPixel,
		Format: framebuffer.RGB565,
	}
	pix, free, err := allocPixels(meta.Size)
	if err != nil {
		return nil, newError(KindAllocation, StageAlloc, err)
	}

	return &Buffer{
		img:   pixel.NewCRGB16ImageFrom(width, height, pix[:meta.Size:meta.Size]),
		meta:  meta,
		free:  free,
		shown: make([]byte, meta.Size),
	}, nil
}

func (b *Buffer) String() string {
	return "buffer " + b.meta.String()
}

// Metadata returns the fixed buffer description.
func (b *Buffer) Metadata() Metadata {
	return b.meta
}

func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.meta.Width, b.meta.Height)
}

func (b *Buffer) ColorModel() color.Model {
	return pixel.CRGB16Model
}

func (b *Buffer) At(x, y int) color.Color {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.img.Pix == nil {
		return color.Transparent
	}
	return b.img.At(x, y)
}

func (b *Buffer) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(b.Bounds()) {
		return
	}
	b.mutate(func(img *pixel.CRGB16Image) {
		img.Set(x, y, c)
	})
}

// FillRect fills the part of r inside the buffer. A rectangle entirely
// outside the buffer is a no-op.
func (b *Buffer) FillRect(r image.Rectangle, c color.Color) {
	r = r.Intersect(b.Bounds())
	if r.Empty() {
		return
	}
	b.mutate(func(img *pixel.CRGB16Image) {
		img.FillRect(r, c)
	})
}

// Fill the whole buffer with a single color.
func (b *Buffer) Fill(c color.Color) {
	b.FillRect(b.Bounds(), c)
}

// Clear the buffer to black.
func (b *Buffer) Clear() {
	b.mutate(func(img *pixel.CRGB16Image) {
		img.Clear()
	})
}

// CopyArea copies the src area to dst within the buffer. Overlapping areas
// are handled; both areas are clipped to the buffer.
func (b *Buffer) CopyArea(dst image.Point, src image.Rectangle) {
	bounds := b.Bounds()
	delta := dst.Sub(src.Min)
	dr := src.Intersect(bounds).Add(delta).Intersect(bounds)
	if dr.Empty() {
		return
	}
	sp := dr.Min.Sub(delta)

	b.mutate(func(img *pixel.CRGB16Image) {
		n := dr.Dx() * BytesPerPixel
		rows := dr.Dy()
		copyRow := func(i int) {
			d := img.PixOffset(dr.Min.X, dr.Min.Y+i)
			s := img.PixOffset(sp.X, sp.Y+i)
			copy(img.Pix[d:d+n], img.Pix[s:s+n])
		}
		if dr.Min.Y > sp.Y {
			for i := rows - 1; i >= 0; i-- {
				copyRow(i)
			}
		} else {
			for i := 0; i < rows; i++ {
				copyRow(i)
			}
		}
	})
}

// Blit draws src with its bounds minimum at dst, converting to RGB565.
// src may be the buffer itself or another Buffer.
func (b *Buffer) Blit(dst image.Point, src image.Image) {
	if other, ok := src.(*Buffer); ok {
		if other == b {
			b.CopyArea(dst, b.Bounds())
			return
		}
		if src = other.image(); src == nil {
			return
		}
	}

	sb := src.Bounds()
	r := image.Rectangle{Min: dst, Max: dst.Add(sb.Size())}.Intersect(b.Bounds())
	if r.Empty() {
		return
	}
	sp := sb.Min.Add(r.Min.Sub(dst))
	b.mutate(func(img *pixel.CRGB16Image) {
		draw.Draw(img, r, src, sp, draw.Src)
	})
}

func (b *Buffer) mutate(fn func(*pixel.CRGB16Image)) {
	b.mu.Lock()
	if b.img.Pix == nil {
		b.mu.Unlock()
		return
	}
	fn(b.img)
	b.mu.Unlock()
	b.touch()
}

func (b *Buffer) touch() {
	b.dirty.Store(true)
}

// Dirty reports whether the buffer has unflushed writes, including raw
// writes through mapped views.
func (b *Buffer) Dirty() bool {
	if b.dirty.Load() {
		return true
	}
	if b.views.Load() == 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.img.Pix != nil && !bytes.Equal(b.img.Pix, b.shown)
}

// takeFrame clears the dirty flag and, if the buffer changed since the last
// frame taken, copies the pixels into dst. It reports whether dst holds a
// new frame.
func (b *Buffer) takeFrame(dst []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.img.Pix == nil {
		return false
	}
	dirty := b.dirty.Swap(false)
	if !dirty && (b.views.Load() == 0 || bytes.Equal(b.img.Pix, b.shown)) {
		return false
	}
	copy(dst, b.img.Pix)
	copy(b.shown, b.img.Pix)
	return true
}

// unmapView drops a view that exposed the raw storage. Pending raw writes
// are turned into a dirty flag.
func (b *Buffer) unmapView() {
	b.mu.Lock()
	changed := b.img.Pix != nil && !bytes.Equal(b.img.Pix, b.shown)
	b.views.Add(-1)
	b.mu.Unlock()
	if changed {
		b.touch()
	}
}

// image returns a copy of the pixels, nil once released.
func (b *Buffer) image() *pixel.CRGB16Image {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.img.Pix == nil {
		return nil
	}
	pix := make([]byte, len(b.img.Pix))
	copy(pix, b.img.Pix)
	return pixel.NewCRGB16ImageFrom(b.meta.Width, b.meta.Height, pix)
}

// Released reports whether Release was called.
func (b *Buffer) Released() bool {
	return b.dead.Load()
}

// Release frees the pixel storage. All views returned by Map must be
// unmapped first; the driver cannot detect views still in use. Releasing
// twice is a no-op.
func (b *Buffer) Release() error {
	if !b.dead.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	pix := b.img.Pix
	b.img.Pix = nil
	b.mu.Unlock()

	if b.free == nil {
		return nil
	}
	if err := b.free(pix[:cap(pix)]); err != nil {
		return newError(KindAllocation, StageDetach, err)
	}
	return nil
}

var _ draw.Filler = (*Buffer)(nil)
