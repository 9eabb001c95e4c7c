// Package framebuffer describes a pixel buffer in Linux frame buffer
// (fbdev) terms.
//
// The driver does not create device nodes itself; a registration consumer
// receives an [Info] and reports it verbatim, the same way the kernel
// reports FBIOGET_FSCREENINFO and FBIOGET_VSCREENINFO.
package framebuffer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"

	"github.com/BeatGlow/fbtft/pixel"
)

// From <linux/fb.h>
const (
	TypePackedPixels = 0 // FB_TYPE_PACKED_PIXELS
	VisualTrueColor  = 2 // FB_VISUAL_TRUECOLOR
	AccelNone        = 0 // FB_ACCEL_NONE
)

// ErrUnsupportedFormat is returned for pixel layouts without a color model.
var ErrUnsupportedFormat = errors.New("framebuffer: unsupported color model")

// FixScreenInfo is the fixed screen information (struct fb_fix_screeninfo).
type FixScreenInfo struct {
	ID         [16]byte  // Identification string eg "TT Builtin"
	SmemStart  uintptr   // Start of frame buffer mem
	SmemLen    uint32    // Length of frame buffer mem
	Type       uint32    // FB_TYPE_
	TypeAux    uint32    // Interleave for interleaved Planes
	Visual     uint32    // FB_VISUAL_
	Xpanstep   uint16    // Zero if no hardware panning
	Ypanstep   uint16    // Zero if no hardware panning
	Ywrapstep  uint16    // Zero if no hardware ywrap
	LineLength uint32    // Length of a line in bytes
	MmioStart  uintptr   // Start of Memory Mapped I/O (physical address)
	MmioLen    uint32    // Length of Memory Mapped I/O
	Accel      uint32    // Type of acceleration available
	Reserved   [3]uint16 // Reserved for future compatibility
}

// BitField describes one color channel.
type BitField struct {
	Offset   uint32 // Beginning of bitfield
	Length   uint32 // Length of bitfield
	MsbRight uint32 // != 0 : Most significant bit is right
}

// VarScreenInfo contains device independent changeable information about a
// frame buffer device and a specific video mode (struct fb_var_screeninfo).
type VarScreenInfo struct {
	Xres                    uint32
	Yres                    uint32
	XresVirtual             uint32
	YresVirtual             uint32
	Xoffset                 uint32
	Yoffset                 uint32
	BitsPerPixel            uint32
	Grayscale               uint32
	Red, Green, Blue, Alpha BitField
	Nonstd                  uint32
	Activate                uint32
	Height                  uint32
	Width                   uint32
	AccelFlags              uint32
	Pixclock                uint32
	LeftMargin              uint32
	RightMargin             uint32
	UpperMargin             uint32
	LowerMargin             uint32
	HsyncLen                uint32
	VsyncLen                uint32
	Sync                    uint32
	Vmode                   uint32
	Rotate                  uint32
	Colorspace              uint32
	Reserved                [4]uint32
}

// Format is a packed true color pixel layout.
type Format struct {
	BitsPerPixel            int
	Red, Green, Blue, Alpha BitField
}

// RGB565 is 16-bit packed RGB, 5 bits red, 6 bits green, 5 bits blue.
var RGB565 = Format{
	BitsPerPixel: 16,
	Red:          BitField{Offset: 11, Length: 5},
	Green:        BitField{Offset: 5, Length: 6},
	Blue:         BitField{Offset: 0, Length: 5},
}

func (f Format) String() string {
	if f == RGB565 {
		return "RGB565"
	}
	return fmt.Sprintf("%dbpp r%d/%d g%d/%d b%d/%d a%d/%d", f.BitsPerPixel,
		f.Red.Offset, f.Red.Length,
		f.Green.Offset, f.Green.Length,
		f.Blue.Offset, f.Blue.Length,
		f.Alpha.Offset, f.Alpha.Length)
}

// BytesPerPixel rounds the pixel size up to whole bytes.
func (f Format) BytesPerPixel() int {
	return (f.BitsPerPixel + 7) / 8
}

// Info is what a registration consumer reports for a frame buffer.
type Info struct {
	Fix FixScreenInfo
	Var VarScreenInfo
}

// Describe builds the screen information for a width x height buffer with
// the given line length in bytes.
func Describe(id string, width, height, stride int, format Format) Info {
	var info Info
	copy(info.Fix.ID[:len(info.Fix.ID)-1], id)
	info.Fix.SmemLen = uint32(stride * height)
	info.Fix.Type = TypePackedPixels
	info.Fix.Visual = VisualTrueColor
	info.Fix.LineLength = uint32(stride)
	info.Fix.Accel = AccelNone

	info.Var.Xres = uint32(width)
	info.Var.Yres = uint32(height)
	info.Var.XresVirtual = uint32(width)
	info.Var.YresVirtual = uint32(height)
	info.Var.BitsPerPixel = uint32(format.BitsPerPixel)
	info.Var.Red = format.Red
	info.Var.Green = format.Green
	info.Var.Blue = format.Blue
	info.Var.Alpha = format.Alpha
	return info
}

// ID returns the identification string.
func (info Info) ID() string {
	if i := bytes.IndexByte(info.Fix.ID[:], 0); i >= 0 {
		return string(info.Fix.ID[:i])
	}
	return string(info.Fix.ID[:])
}

// Format returns the pixel layout.
func (info Info) Format() Format {
	return Format{
		BitsPerPixel: int(info.Var.BitsPerPixel),
		Red:          info.Var.Red,
		Green:        info.Var.Green,
		Blue:         info.Var.Blue,
		Alpha:        info.Var.Alpha,
	}
}

func (info Info) String() string {
	return fmt.Sprintf("%s %dx%d %s line %d size %d", info.ID(),
		info.Var.Xres, info.Var.Yres, info.Format(), info.Fix.LineLength, info.Fix.SmemLen)
}

// ParseColorModel returns the color model and pixel byte order for the
// screen info bitfields.
func ParseColorModel(info *VarScreenInfo) (color.Model, binary.ByteOrder, error) {
	if info == nil {
		return nil, nil, errors.New("framebuffer: invalid VarScreenInfo")
	}

	switch info.BitsPerPixel {
	case 16:
		if info.Red == RGB565.Red &&
			info.Green == RGB565.Green &&
			info.Blue == RGB565.Blue &&
			info.Alpha.Length == 0 {
			return pixel.CRGB16Model, binary.BigEndian, nil
		}

	case 32:
		if info.Red.Offset == 0 &&
			info.Red.Length == 8 &&
			info.Green.Offset == 8 &&
			info.Green.Length == 8 &&
			info.Blue.Offset == 16 &&
			info.Blue.Length == 8 &&
			info.Alpha.Offset == 24 &&
			info.Alpha.Length == 8 {
			return color.RGBAModel, binary.LittleEndian, nil
		}
	}

	return nil, nil, fmt.Errorf("%w: %d bits per pixel", ErrUnsupportedFormat, info.BitsPerPixel)
}
