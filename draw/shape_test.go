package draw

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

var on = color.Gray{Y: 0xff}

type fillRecorder struct {
	*image.Gray
	rects []image.Rectangle
}

func (f *fillRecorder) FillRect(r image.Rectangle, c color.Color) {
	r = r.Intersect(f.Bounds())
	f.rects = append(f.rects, r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			f.Set(x, y, c)
		}
	}
}

func count(img *image.Gray) (n int) {
	for _, v := range img.Pix {
		if v != 0 {
			n++
		}
	}
	return
}

func TestLine(t *testing.T) {
	tests := []struct {
		Name string
		A, B image.Point
		Want int
	}{
		{"point", image.Pt(3, 3), image.Pt(3, 3), 1},
		{"horizontal", image.Pt(0, 1), image.Pt(7, 1), 8},
		{"horizontal-reversed", image.Pt(7, 1), image.Pt(0, 1), 8},
		{"vertical", image.Pt(2, 0), image.Pt(2, 4), 5},
		{"diagonal", image.Pt(0, 0), image.Pt(7, 7), 8},
		{"anti-diagonal", image.Pt(7, 0), image.Pt(0, 7), 8},
		{"steep", image.Pt(1, 0), image.Pt(3, 7), 8},
		{"clipped", image.Pt(-4, 2), image.Pt(20, 2), 8},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			img := image.NewGray(image.Rect(0, 0, 8, 8))
			Line(img, test.A, test.B, on)
			assert.Equal(t, test.Want, count(img))
			if test.A.In(img.Bounds()) {
				assert.Equal(t, on, img.GrayAt(test.A.X, test.A.Y))
			}
			if test.B.In(img.Bounds()) {
				assert.Equal(t, on, img.GrayAt(test.B.X, test.B.Y))
			}
		})
	}
}

func TestRectangle(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	Rectangle(img, image.Rect(1, 2, 5, 7), on)

	assert.Equal(t, 2*4+2*3, count(img))
	for _, p := range []image.Point{{1, 2}, {4, 2}, {1, 6}, {4, 6}} {
		assert.Equal(t, on, img.GrayAt(p.X, p.Y), "corner %s", p)
	}
	assert.Equal(t, uint8(0), img.GrayAt(2, 4).Y)
}

func TestBoxUsesFiller(t *testing.T) {
	f := &fillRecorder{Gray: image.NewGray(image.Rect(0, 0, 8, 8))}
	Box(f, image.Rect(2, 2, 6, 5), on)

	assert.Equal(t, []image.Rectangle{image.Rect(2, 2, 6, 5)}, f.rects)
	assert.Equal(t, 12, count(f.Gray))
}

func TestBoxWithoutFiller(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	Box(img, image.Rect(-2, -2, 3, 3), on)
	assert.Equal(t, 9, count(img))
}

func TestRoundedBox(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	RoundedBox(img, image.Rect(0, 0, 16, 16), 4, on)

	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y, "corner is rounded")
	assert.Equal(t, on, img.GrayAt(8, 8))
	assert.Equal(t, on, img.GrayAt(8, 0))
	assert.Equal(t, on, img.GrayAt(0, 8))
}

func TestRoundedRectangle(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	RoundedRectangle(img, image.Rect(0, 0, 16, 16), 4, on)

	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y, "corner is rounded")
	assert.Equal(t, uint8(0), img.GrayAt(8, 8).Y, "outline only")
	assert.Equal(t, on, img.GrayAt(8, 0))
	assert.Equal(t, on, img.GrayAt(15, 8))
}

func TestDrawUniformUsesFiller(t *testing.T) {
	f := &fillRecorder{Gray: image.NewGray(image.Rect(0, 0, 4, 4))}
	Draw(f, f.Bounds(), image.NewUniform(on), image.Point{}, Src)
	assert.Len(t, f.rects, 1)
	assert.Equal(t, 16, count(f.Gray))
}
