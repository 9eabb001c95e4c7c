package fbtft

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

func TestPanelWindow(t *testing.T) {
	large := Panel{Width: 240, Height: 320}
	tests := []struct {
		Name          string
		Panel         Panel
		X, Y, W, H    int
		Columns, Rows [4]byte
	}{
		{"full-frame", DefaultPanel, 0, 0, 128, 160, [4]byte{0x00, 0x02, 0x00, 0x81}, [4]byte{0x00, 0x01, 0x00, 0xa0}},
		{"single-pixel", DefaultPanel, 10, 20, 1, 1, [4]byte{0x00, 0x0c, 0x00, 0x0c}, [4]byte{0x00, 0x15, 0x00, 0x15}},
		{"last-pixel", DefaultPanel, 127, 159, 1, 1, [4]byte{0x00, 0x81, 0x00, 0x81}, [4]byte{0x00, 0xa0, 0x00, 0xa0}},
		{"no-offset", large, 0, 0, 240, 320, [4]byte{0x00, 0x00, 0x00, 0xef}, [4]byte{0x00, 0x00, 0x01, 0x3f}},
		{"high-byte", large, 200, 256, 40, 64, [4]byte{0x00, 0xc8, 0x00, 0xef}, [4]byte{0x01, 0x00, 0x01, 0x3f}},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			w, err := test.Panel.Window(test.X, test.Y, test.W, test.H)
			require.NoError(t, err)
			columns, rows := w.Encode()
			assert.Equal(t, test.Columns, columns, "CASET")
			assert.Equal(t, test.Rows, rows, "RASET")
		})
	}
}

func TestPanelWindowInvalid(t *testing.T) {
	for _, test := range []struct {
		Name       string
		X, Y, W, H int
	}{
		{"zero-width", 0, 0, 0, 1},
		{"zero-height", 0, 0, 1, 0},
		{"negative-x", -1, 0, 1, 1},
		{"negative-y", 0, -1, 1, 1},
		{"too-wide", 1, 0, 128, 1},
		{"too-high", 0, 100, 1, 61},
	} {
		t.Run(test.Name, func(t *testing.T) {
			_, err := DefaultPanel.Window(test.X, test.Y, test.W, test.H)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestPanelValidate(t *testing.T) {
	assert.NoError(t, DefaultPanel.Validate())
	assert.ErrorIs(t, Panel{}.Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, Panel{Width: 240, Height: 320, OffsetX: 1}.Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, Panel{Width: 10, Height: 10, OffsetY: -1}.Validate(), ErrInvalidArgument)
}

func TestProtocolSendCommandAndData(t *testing.T) {
	r := newRig()
	p := r.protocol()

	require.NoError(t, p.SendCommand(0x2a))
	require.NoError(t, p.SendData(0x01, 0x02))
	require.NoError(t, p.SendData(0x03))
	require.NoError(t, p.SendData())

	transfers := r.bus.Transfers()
	require.Len(t, transfers, 3)
	assert.Equal(t, transfer{dc: gpio.Low, data: []byte{0x2a}}, transfers[0])
	assert.Equal(t, transfer{dc: gpio.High, data: []byte{0x01, 0x02}}, transfers[1])
	assert.Equal(t, transfer{dc: gpio.High, data: []byte{0x03}}, transfers[2])
	assert.Equal(t, 2, r.dc.outs, "DC is only driven when the level changes")
}

func TestProtocolSetAddressWindow(t *testing.T) {
	r := newRig()
	p := r.protocol()

	require.NoError(t, p.SetAddressWindow(0, 0, 128, 160))
	assert.Equal(t, []string{
		"cmd 2a",
		"data 00 02 00 81",
		"cmd 2b",
		"data 00 01 00 a0",
		"cmd 2c",
	}, r.journal.all())

	r.journal.reset()
	assert.ErrorIs(t, p.SetAddressWindow(0, 0, 129, 160), ErrInvalidArgument)
	assert.Empty(t, r.journal.all(), "invalid window is rejected before any transfer")
}

func TestProtocolRunInitSequence(t *testing.T) {
	r := newRig()
	p := r.protocol()

	require.NoError(t, p.RunInitSequence())
	assert.Equal(t, []string{
		"reset Low",
		"sleep",
		"reset High",
		"sleep",
		"cmd 01", // SWRESET
		"sleep",
		"cmd 11", // SLPOUT
		"sleep",
		"cmd 3a", // COLMOD
		"data 05",
		"cmd 36", // MADCTL
		"data c0",
		"cmd 29", // DISPON
		"sleep",
		"backlight High",
	}, r.journal.all())

	minimums := []time.Duration{
		10 * time.Millisecond,  // reset low
		120 * time.Millisecond, // reset high
		150 * time.Millisecond, // SWRESET
		500 * time.Millisecond, // SLPOUT
		100 * time.Millisecond, // DISPON
	}
	sleeps := r.Sleeps()
	require.Len(t, sleeps, len(minimums))
	for i, want := range minimums {
		assert.GreaterOrEqual(t, sleeps[i], want, "delay %d", i)
	}
}

func TestProtocolTransportError(t *testing.T) {
	r := newRig()
	r.bus.fail = func([]byte) error { return errFake }
	p := r.protocol()

	err := p.SendCommand(st7735SWRESET)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, errFake)
	assert.Len(t, r.bus.Transfers(), 1, "no retry")

	err = p.RunInitSequence()
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, gpio.Low, r.backlight.Level(), "backlight stays off")
}

func TestProtocolDCError(t *testing.T) {
	r := newRig()
	r.dc.outErr = errFake
	p := r.protocol()

	err := p.SendData(0x00)
	assert.ErrorIs(t, err, ErrTransport)
	assert.True(t, errors.Is(err, errFake))
	assert.Empty(t, r.bus.Transfers(), "nothing is sent with the wrong DC level")
}

func TestProtocolDisplayOff(t *testing.T) {
	r := newRig()
	p := r.protocol()

	require.NoError(t, p.Backlight(false))
	require.NoError(t, p.DisplayOff())
	assert.Equal(t, []string{"backlight Low", "cmd 28", "cmd 10"}, r.journal.all())
}
