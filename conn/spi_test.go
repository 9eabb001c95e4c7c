package conn

import (
	"errors"
	"io/fs"
	"testing"
)

func TestSPIModes(t *testing.T) {
	for mode, want := range map[SPIMode]uint8{
		SPIMode0: 0x00,
		SPIMode1: 0x01,
		SPIMode2: 0x02,
		SPIMode3: 0x03,
	} {
		if uint8(mode) != want {
			t.Errorf("expected mode %#02x, got %#02x", want, uint8(mode))
		}
	}
}

func TestOpenSPIMissing(t *testing.T) {
	_, err := OpenSPI(99, 99)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not exist error, got %v", err)
	}
}
