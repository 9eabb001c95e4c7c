package fbtft

import "golang.org/x/sys/unix"

// Pixels live in an anonymous shared mapping so they can be handed to a
// mapping consumer as real shared memory.
var allocPixels = func(size int) ([]byte, func([]byte) error, error) {
	pix, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, nil, err
	}
	return pix, unix.Munmap, nil
}
