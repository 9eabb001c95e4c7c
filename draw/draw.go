// Package draw implements shape primitives on top of [image/draw].
//
// Destinations that implement [Filler] get their rectangles filled in one
// call instead of pixel by pixel.
package draw

import (
	"image"
	"image/color"
	"image/draw"
)

// Drawer is an alias for [image/draw.Drawer].
type Drawer = draw.Drawer

// Image is an alias for [image/draw.Image].
type Image = draw.Image

// Op is an alias for image/draw.Op
type Op = draw.Op

const (
	// Over specifies ``(src in mask) over dst''.
	Over Op = iota

	// Src specifies ``src in mask''.
	Src
)

// Filler is an Image with a solid rectangle fill. FillRect must clip r to
// the image bounds.
type Filler interface {
	Image

	FillRect(r image.Rectangle, c color.Color)
}

// Draw calls [DrawMask] with a nil mask.
func Draw(dst Image, r image.Rectangle, src image.Image, sp image.Point, op Op) {
	DrawMask(dst, r, src, sp, nil, image.Point{}, op)
}

// DrawMask aligns r.Min in dst with sp in src and mp in mask and then replaces the rectangle r
// in dst with the result of a Porter-Duff composition. A nil mask is treated as opaque.
func DrawMask(dst Image, r image.Rectangle, src image.Image, sp image.Point, mask image.Image, mp image.Point, op Op) {
	if u, ok := src.(*image.Uniform); ok && mask == nil && op == Src {
		if f, ok := dst.(Filler); ok {
			f.FillRect(r, u.C)
			return
		}
	}
	draw.DrawMask(dst, r, src, sp, mask, mp, op)
}

func fill(dst Image, r image.Rectangle, c color.Color) {
	if f, ok := dst.(Filler); ok {
		f.FillRect(r, c)
		return
	}
	r = r.Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.Set(x, y, c)
		}
	}
}
