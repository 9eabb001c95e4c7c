// Package pixel implements the RGB565 color and packed image types used by
// the frame buffer.
//
// This module provides additional color models, compatible with Go's native [color.Color] and
// [image.Image] / [draw.Image] interfaces.
package pixel
