package ioctl

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		Mode Mode
		Size uint16
		Cmd  uintptr
		Want Command
	}{
		{None, 0, 0x6b01, 0x00006b01},
		{Write, 1, 0x6b01, 0x40016b01},
		{Read, 4, 0x6b04, 0x80046b04},
		{Read | Write, 8, 0x4600, 0xc0084600},
	}
	for _, test := range tests {
		got := Encode(test.Mode, test.Size, test.Cmd)
		if got != test.Want {
			t.Errorf("Encode(%d, %d, %#x): expected %#08x, got %#08x", test.Mode, test.Size, test.Cmd, uintptr(test.Want), uintptr(got))
			continue
		}
		if got.Mode() != test.Mode || got.Size() != test.Size {
			t.Errorf("%s: expected mode %d size %d, got mode %d size %d", got, test.Mode, test.Size, got.Mode(), got.Size())
		}
	}
}

func TestPointer(t *testing.T) {
	var (
		mode  uint8
		speed uint32
	)
	if c := Pointer(Read, &mode, 0x6b01); c != 0x80016b01 {
		t.Errorf("expected %#08x, got %s", 0x80016b01, c)
	}
	if c := Pointer(Write, &speed, 0x6b04); c != 0x40046b04 {
		t.Errorf("expected %#08x, got %s", 0x40046b04, c)
	}
}

func TestCommandString(t *testing.T) {
	if s, want := Encode(Read, 4, 0x6b04).String(), "ioctl read (4 bytes) 0x6b04"; s != want {
		t.Errorf("expected %q, got %q", want, s)
	}
	if s, want := Encode(None, 0, 0x12).String(), "ioctl (0 bytes) 0x0012"; s != want {
		t.Errorf("expected %q, got %q", want, s)
	}
}

func TestDoBadDescriptor(t *testing.T) {
	var mode uint8
	err := Do(^uintptr(0), Pointer(Read, &mode, 0x6b01), &mode)
	if !errors.Is(err, unix.EBADF) {
		t.Errorf("expected EBADF, got %v", err)
	}
}
