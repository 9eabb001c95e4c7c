package pixel

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

func TestCRGB16Image(t *testing.T) {
	testImage(t, func(size image.Point) Image {
		return NewCRGB16Image(size.X, size.Y)
	}, CRGB16Model)
}

func TestCRGB16ImageByteOrder(t *testing.T) {
	i := NewCRGB16Image(2, 2)
	i.Set(1, 1, CRGB16{0x1234})
	if v := i.Pix[i.PixOffset(1, 1)]; v != 0x12 {
		t.Errorf("expected high byte first, got %#02x", v)
	}
	if v := i.Pix[i.PixOffset(1, 1)+1]; v != 0x34 {
		t.Errorf("expected low byte second, got %#02x", v)
	}
	if v := i.PixOffset(1, 1); v != 6 {
		t.Errorf("expected offset 6, got %d", v)
	}
}

func TestCRGB16ImageFillRect(t *testing.T) {
	tests := []struct {
		Name string
		Rect image.Rectangle
		Want int
	}{
		{"inside", image.Rect(1, 1, 3, 3), 4},
		{"clipped", image.Rect(-2, -2, 2, 2), 4},
		{"outside", image.Rect(10, 10, 20, 20), 0},
		{"empty", image.Rect(2, 2, 2, 4), 0},
		{"all", image.Rect(-100, -100, 100, 100), 16},
	}
	for _, test := range tests {
		t.Run(test.Name, func(it *testing.T) {
			i := NewCRGB16Image(4, 4)
			i.FillRect(test.Rect, White)
			var n int
			for y := 0; y < 4; y++ {
				for x := 0; x < 4; x++ {
					in := (image.Point{X: x, Y: y}).In(test.Rect)
					v := i.At(x, y)
					if v == White {
						n++
					}
					if in != (v == White) {
						it.Fatalf("pixel (%d,%d) is %#+v", x, y, v)
					}
				}
			}
			if n != test.Want {
				it.Errorf("expected %d pixels set, got %d", test.Want, n)
			}
		})
	}
}

func TestNewCRGB16ImageFrom(t *testing.T) {
	pix := make([]byte, 8)
	i := NewCRGB16ImageFrom(2, 2, pix)
	i.Fill(Red)
	for n := 0; n < len(pix); n += 2 {
		if pix[n] != 0xf8 || pix[n+1] != 0x00 {
			t.Fatalf("expected shared storage to hold red at %d, got %#02x%02x", n, pix[n], pix[n+1])
		}
	}
}

func testImage(t *testing.T, f func(image.Point) Image, model color.Model) {
	t.Helper()
	testCases := []image.Point{
		image.Point{},
		image.Pt(1, 1),
		image.Pt(2, 2),
		image.Pt(128, 160),
		image.Pt(256, 64),
	}
	for _, test := range testCases {
		t.Run(test.String(), func(it *testing.T) {
			i := f(test)

			if v := i.Bounds().Size(); !v.Eq(test) {
				it.Errorf("expected image size %s, got %s", test, v)
			}

			if v := i.ColorModel(); v != model {
				it.Errorf("expected color model %T, got %T", model, v)
			}

			it.Run("in-bounds", func(itt *testing.T) {
				for y := 0; y < test.Y; y++ {
					for x := 0; x < test.X; x++ {
						c := testRandomColor()
						i.Set(x, y, c)
						if v := i.ColorModel().Convert(c); i.At(x, y) != v {
							itt.Fatalf("pixel (%d,%d) is %#+v, expected %#+v (%v)", x, y, i.At(x, y), v, c)
							return
						}
					}
				}
			})

			it.Run("in-bounds-matching-model", func(itt *testing.T) {
				for y := 0; y < test.Y; y++ {
					for x := 0; x < test.X; x++ {
						c := model.Convert(testRandomColor())
						i.Set(x, y, c)
						if i.At(x, y) != c {
							itt.Fatalf("pixel (%d,%d) is %#+v, expected %#+v", x, y, i.At(x, y), c)
							return
						}
					}
				}
			})

			it.Run("out-bounds", func(itt *testing.T) {
				for y := -test.Y; y < test.Y*2; y++ {
					for x := -test.X; x < test.X*2; x++ {
						i.Set(x, y, testRandomColor())
						if x < 0 || y < 0 {
							if v := i.At(x, y); v != color.Transparent {
								itt.Fatalf("pixel (%d,%d) is %#+v, expected transparent", x, y, v)
								return
							}
						}
					}
				}
			})

			it.Run("fill", func(itt *testing.T) {
				c := testRandomColor()
				i.Fill(c)
				if test.X > 0 && test.Y > 0 {
					x := rand.Intn(test.X)
					y := rand.Intn(test.Y)
					if v := i.ColorModel().Convert(c); i.At(x, y) != v {
						itt.Fatalf("pixel (%d,%d) is %#+v, expected %#+v (%v)", x, y, i.At(x, y), v, c)
						return
					}
				}
			})

			it.Run("clear", func(itt *testing.T) {
				i.Clear()
				if test.X > 0 && test.Y > 0 {
					x := rand.Intn(test.X)
					y := rand.Intn(test.Y)
					if v := CRGB16Model.Convert(i.At(x, y)); v != Black {
						itt.Fatalf("pixel (%d,%d) is not black", x, y)
					}
				}
			})
		})
	}
}

func testRandomColor() color.Color {
	return color.RGBA{
		R: uint8(rand.Intn(255)),
		G: uint8(rand.Intn(255)),
		B: uint8(rand.Intn(255)),
		A: 0xFF,
	}
}
