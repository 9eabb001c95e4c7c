//go:build !linux

package fbtft

var allocPixels = func(size int) ([]byte, func([]byte) error, error) {
	return make([]byte, size), nil, nil
}
