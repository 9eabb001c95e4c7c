package fbtft

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

const (
	st7735DefaultWidth  = 128
	st7735DefaultHeight = 160
	st7735MaxWidth      = 240
	st7735MaxHeight     = 320
)

// Registers (from st7735.pdf).
const (
	st7735SWRESET = 0x01
	st7735SLPIN   = 0x10
	st7735SLPOUT  = 0x11
	st7735DISPOFF = 0x28
	st7735DISPON  = 0x29
	st7735CASET   = 0x2A
	st7735RASET   = 0x2B
	st7735RAMWR   = 0x2C
	st7735MADCTL  = 0x36
	st7735COLMOD  = 0x3A
)

// COLMOD parameter for 16 bits per pixel.
const st7735Format16 = 0x05

// Memory Data Access Control (MADCTL) bit fields.
const (
	_              byte = 1 << iota // D0: reserved
	_                               // D1: reserved
	MADCTL_MH                       // D2: display data latch order
	MADCTL_BGR                      // D3: BGR order
	MADCTL_ML                       // D4: line address order
	MADCTL_MV                       // D5: page/column order
	MADCTL_MX                       // D6: column address order
	MADCTL_MY                       // D7: page address order
)

// Init sequence settle times. The controller ignores commands issued
// before it is ready, these are lower bounds.
const (
	resetLowDelay  = 10 * time.Millisecond
	resetHighDelay = 120 * time.Millisecond
	swResetDelay   = 150 * time.Millisecond
	sleepOutDelay  = 500 * time.Millisecond
	displayOnDelay = 100 * time.Millisecond
)

// Panel describes the visible area of a panel and where it sits in the
// controller memory.
type Panel struct {
	Width  int
	Height int

	// OffsetX and OffsetY are added to every column and row address.
	OffsetX int
	OffsetY int

	// MADCTL is the memory access control parameter (mirroring, BGR).
	MADCTL byte
}

// DefaultPanel is the common 1.8" 128x160 ST7735 module.
var DefaultPanel = Panel{
	Width:   st7735DefaultWidth,
	Height:  st7735DefaultHeight,
	OffsetX: 2,
	OffsetY: 1,
	MADCTL:  MADCTL_MY | MADCTL_MX,
}

func (p Panel) String() string {
	return fmt.Sprintf("ST7735 %dx%d+%d+%d", p.Width, p.Height, p.OffsetX, p.OffsetY)
}

// Validate checks the panel fits the controller address space.
func (p Panel) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return invalidArgument("st7735: invalid size %dx%d", p.Width, p.Height)
	}
	if p.OffsetX < 0 || p.OffsetY < 0 {
		return invalidArgument("st7735: invalid offset %d,%d", p.OffsetX, p.OffsetY)
	}
	if p.Width+p.OffsetX > st7735MaxWidth || p.Height+p.OffsetY > st7735MaxHeight {
		return invalidArgument("st7735: invalid size %dx%d, maximum size is %dx%d",
			p.Width+p.OffsetX, p.Height+p.OffsetY, st7735MaxWidth, st7735MaxHeight)
	}
	return nil
}

// Window computes the controller addressing window for the w x h area at
// (x, y) of the visible panel.
func (p Panel) Window(x, y, w, h int) (Window, error) {
	if w <= 0 || h <= 0 || x < 0 || y < 0 || x+w > p.Width || y+h > p.Height {
		return Window{}, invalidArgument("st7735: window %dx%d at (%d,%d) outside %dx%d panel", w, h, x, y, p.Width, p.Height)
	}
	return Window{
		XStart: uint16(x + p.OffsetX),
		XEnd:   uint16(x + w - 1 + p.OffsetX),
		YStart: uint16(y + p.OffsetY),
		YEnd:   uint16(y + h - 1 + p.OffsetY),
	}, nil
}

// Window is an inclusive controller addressing window.
type Window struct {
	XStart, YStart uint16
	XEnd, YEnd     uint16
}

// Encode returns the CASET and RASET parameters, big endian start and end.
func (w Window) Encode() (columns, rows [4]byte) {
	columns = [4]byte{byte(w.XStart >> 8), byte(w.XStart), byte(w.XEnd >> 8), byte(w.XEnd)}
	rows = [4]byte{byte(w.YStart >> 8), byte(w.YStart), byte(w.YEnd >> 8), byte(w.YEnd)}
	return
}

func (w Window) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", w.XStart, w.YStart, w.XEnd, w.YEnd)
}

// Protocol speaks the ST7735 command/data protocol over a bus, using the DC
// signal to select between command (low) and data (high) bytes.
//
// A Protocol is not safe for concurrent use.
type Protocol struct {
	bus       Bus
	reset     Signal
	dc        Signal
	backlight Signal
	panel     Panel
	sleep     func(time.Duration)

	dcLevel gpio.Level
	dcKnown bool
}

// NewProtocol returns a protocol for panel. A nil sleep uses time.Sleep.
func NewProtocol(bus Bus, reset, dc, backlight Signal, panel Panel, sleep func(time.Duration)) *Protocol {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Protocol{
		bus:       bus,
		reset:     reset,
		dc:        dc,
		backlight: backlight,
		panel:     panel,
		sleep:     sleep,
	}
}

func (p *Protocol) String() string {
	return fmt.Sprintf("%s on %s", p.panel, p.bus)
}

// Panel returns the panel description.
func (p *Protocol) Panel() Panel {
	return p.panel
}

func (p *Protocol) updateDC(level gpio.Level) error {
	if p.dcKnown && p.dcLevel == level {
		return nil
	}
	if err := p.dc.Out(level); err != nil {
		p.dcKnown = false
		return newError(KindTransport, "", fmt.Errorf("%s: %w", p.dc, err))
	}
	p.dcLevel, p.dcKnown = level, true
	return nil
}

func (p *Protocol) transfer(level gpio.Level, b []byte) error {
	if err := p.updateDC(level); err != nil {
		return err
	}
	if err := p.bus.Transfer(b); err != nil {
		return newError(KindTransport, "", err)
	}
	return nil
}

// SendCommand sends a single command byte with DC low.
func (p *Protocol) SendCommand(code byte) error {
	return p.transfer(gpio.Low, []byte{code})
}

// SendData sends data bytes with DC high, in one bus transfer.
func (p *Protocol) SendData(data ...byte) error {
	if len(data) == 0 {
		return nil
	}
	return p.transfer(gpio.High, data)
}

func (p *Protocol) command(code byte, data ...byte) (err error) {
	if err = p.SendCommand(code); err != nil {
		return
	}
	return p.SendData(data...)
}

func (p *Protocol) commands(commands [][]byte) (err error) {
	for _, command := range commands {
		if err = p.command(command[0], command[1:]...); err != nil {
			return
		}
	}
	return
}

// SetAddressWindow selects the w x h area at (x, y) for the next memory
// write and issues RAMWR; pixel data follows with SendData.
func (p *Protocol) SetAddressWindow(x, y, w, h int) error {
	window, err := p.panel.Window(x, y, w, h)
	if err != nil {
		return err
	}
	columns, rows := window.Encode()
	return p.commands([][]byte{
		{st7735CASET, columns[0], columns[1], columns[2], columns[3]}, // Column address
		{st7735RASET, rows[0], rows[1], rows[2], rows[3]},             // Row address
		{st7735RAMWR}, // Write to RAM
	})
}

func (p *Protocol) out(s Signal, level gpio.Level) error {
	if err := s.Out(level); err != nil {
		return fmt.Errorf("st7735: %s: %w", s, err)
	}
	return nil
}

// RunInitSequence resets the controller and brings the display up with
// 16-bit pixels and the backlight on.
func (p *Protocol) RunInitSequence() (err error) {
	// hardware reset
	if err = p.out(p.reset, gpio.Low); err != nil {
		return
	}
	p.sleep(resetLowDelay)
	if err = p.out(p.reset, gpio.High); err != nil {
		return
	}
	p.sleep(resetHighDelay)

	if err = p.SendCommand(st7735SWRESET); err != nil {
		return
	}
	p.sleep(swResetDelay)
	if err = p.SendCommand(st7735SLPOUT); err != nil { // Sleep Out
		return
	}
	p.sleep(sleepOutDelay)

	if err = p.commands([][]byte{
		{st7735COLMOD, st7735Format16}, // 16-bits per pixel
		{st7735MADCTL, p.panel.MADCTL},
		{st7735DISPON},
	}); err != nil {
		return
	}
	p.sleep(displayOnDelay)

	return p.Backlight(true)
}

// Backlight switches the backlight signal.
func (p *Protocol) Backlight(on bool) error {
	return p.out(p.backlight, gpio.Level(on))
}

// DisplayOff blanks the panel and puts the controller to sleep.
func (p *Protocol) DisplayOff() (err error) {
	if err = p.SendCommand(st7735DISPOFF); err != nil {
		return
	}
	return p.SendCommand(st7735SLPIN)
}
