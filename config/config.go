// Package config reads the display configuration from HCL and turns it
// into an fbtft.Config.
//
//	display {
//	  width = 128
//	  height = 160
//	  offset_x = 2
//	  offset_y = 1
//	  madctl = 192
//	  refresh_ms = 33
//	}
//	bus {
//	  driver = "periph" // periph|spidev
//	  bus = 0
//	  device = 0
//	  speed_hz = 8000000
//	}
//	pins {
//	  driver = "periph" // periph|cdev
//	  reset = "GPIO22"
//	  dc = "GPIO17"
//	  backlight = "GPIO27"
//	}
package config

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"

	"github.com/BeatGlow/fbtft"
)

// Bus drivers.
const (
	BusPeriph = "periph"
	BusSpidev = "spidev"
)

// Pin drivers.
const (
	PinsPeriph = "periph"
	PinsCdev   = "cdev"
)

// Defaults for the common 1.8" ST7735 breakout on a Raspberry Pi.
const (
	DefaultResetPin      = "GPIO22"
	DefaultDCPin         = "GPIO17"
	DefaultBacklightPin  = "GPIO27"
	DefaultChip          = "/dev/gpiochip0"
	DefaultResetLine     = "22"
	DefaultDCLine        = "17"
	DefaultBacklightLine = "27"
)

type Config struct {
	Display struct {
		Name      string `hcl:"name"`
		Width     int    `hcl:"width"`
		Height    int    `hcl:"height"`
		OffsetX   *int   `hcl:"offset_x"`
		OffsetY   *int   `hcl:"offset_y"`
		MADCTL    *int   `hcl:"madctl"`
		RefreshMs int    `hcl:"refresh_ms"`
	} `hcl:"display"`

	Bus struct {
		Driver    string `hcl:"driver"` // periph|spidev
		Bus       int    `hcl:"bus"`
		Device    int    `hcl:"device"`
		Mode      int    `hcl:"mode"`
		SpeedHz   int    `hcl:"speed_hz"`
		BatchSize int    `hcl:"batch_size"`
	} `hcl:"bus"`

	Pins struct {
		Driver    string `hcl:"driver"` // periph|cdev
		Chip      string `hcl:"chip"`
		Reset     string `hcl:"reset"`
		DC        string `hcl:"dc"`
		Backlight string `hcl:"backlight"`
	} `hcl:"pins"`
}

func (c *Config) setDefaults() {
	panel := fbtft.DefaultPanel
	if c.Display.Name == "" {
		c.Display.Name = fbtft.DefaultName
	}
	if c.Display.Width == 0 && c.Display.Height == 0 {
		c.Display.Width, c.Display.Height = panel.Width, panel.Height
	}
	if c.Display.OffsetX == nil {
		c.Display.OffsetX = &panel.OffsetX
	}
	if c.Display.OffsetY == nil {
		c.Display.OffsetY = &panel.OffsetY
	}
	if c.Display.MADCTL == nil {
		madctl := int(panel.MADCTL)
		c.Display.MADCTL = &madctl
	}
	if c.Display.RefreshMs == 0 {
		c.Display.RefreshMs = int(fbtft.DefaultRefreshInterval / time.Millisecond)
	}

	if c.Bus.Driver == "" {
		c.Bus.Driver = BusPeriph
	}
	if c.Bus.SpeedHz == 0 {
		c.Bus.SpeedHz = int(fbtft.DefaultSPIConfig.SpeedHz)
	}
	if c.Bus.BatchSize == 0 {
		c.Bus.BatchSize = int(fbtft.DefaultSPIConfig.BatchSize)
	}

	if c.Pins.Driver == "" {
		c.Pins.Driver = PinsPeriph
	}
	switch c.Pins.Driver {
	case PinsPeriph:
		if c.Pins.Reset == "" {
			c.Pins.Reset = DefaultResetPin
		}
		if c.Pins.DC == "" {
			c.Pins.DC = DefaultDCPin
		}
		if c.Pins.Backlight == "" {
			c.Pins.Backlight = DefaultBacklightPin
		}
	case PinsCdev:
		if c.Pins.Chip == "" {
			c.Pins.Chip = DefaultChip
		}
		if c.Pins.Reset == "" {
			c.Pins.Reset = DefaultResetLine
		}
		if c.Pins.DC == "" {
			c.Pins.DC = DefaultDCLine
		}
		if c.Pins.Backlight == "" {
			c.Pins.Backlight = DefaultBacklightLine
		}
	}
}

// Panel returns the configured panel geometry.
func (c *Config) Panel() fbtft.Panel {
	return fbtft.Panel{
		Width:   c.Display.Width,
		Height:  c.Display.Height,
		OffsetX: *c.Display.OffsetX,
		OffsetY: *c.Display.OffsetY,
		MADCTL:  byte(*c.Display.MADCTL),
	}
}

// SPI returns the configured bus settings.
func (c *Config) SPI() fbtft.SPIConfig {
	return fbtft.SPIConfig{
		Bus:       c.Bus.Bus,
		Device:    c.Bus.Device,
		Mode:      uint8(c.Bus.Mode),
		SpeedHz:   uint32(c.Bus.SpeedHz),
		BatchSize: uint(c.Bus.BatchSize),
	}
}

// Validate checks the configuration without touching hardware.
func (c *Config) Validate() error {
	if err := c.Panel().Validate(); err != nil {
		return errors.NewNotValid(err, "config: display")
	}
	if *c.Display.MADCTL < 0 || *c.Display.MADCTL > 0xff {
		return errors.NotValidf("config: display.madctl=%d", *c.Display.MADCTL)
	}
	if c.Display.RefreshMs < 0 {
		return errors.NotValidf("config: display.refresh_ms=%d", c.Display.RefreshMs)
	}

	switch c.Bus.Driver {
	case BusPeriph, BusSpidev:
	default:
		return errors.NotValidf("config: bus.driver=%q valid: %s, %s", c.Bus.Driver, BusPeriph, BusSpidev)
	}
	if c.Bus.Bus < 0 || c.Bus.Device < 0 {
		return errors.NotValidf("config: bus=%d device=%d", c.Bus.Bus, c.Bus.Device)
	}
	if c.Bus.Mode < 0 || c.Bus.Mode > 3 {
		return errors.NotValidf("config: bus.mode=%d", c.Bus.Mode)
	}
	if c.Bus.SpeedHz < 0 || c.Bus.BatchSize < 0 {
		return errors.NotValidf("config: bus.speed_hz=%d batch_size=%d", c.Bus.SpeedHz, c.Bus.BatchSize)
	}

	switch c.Pins.Driver {
	case PinsPeriph:
		for _, name := range []string{c.Pins.Reset, c.Pins.DC, c.Pins.Backlight} {
			if name == "" {
				return errors.NotValidf("config: empty pin name in %+v", c.Pins)
			}
		}
	case PinsCdev:
		for _, line := range []string{c.Pins.Reset, c.Pins.DC, c.Pins.Backlight} {
			if _, err := parseLine(line); err != nil {
				return errors.NewNotValid(err, "config: pins")
			}
		}
	default:
		return errors.NotValidf("config: pins.driver=%q valid: %s, %s", c.Pins.Driver, PinsPeriph, PinsCdev)
	}
	return nil
}

func parseLine(s string) (uint32, error) {
	line, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Errorf("line %q is not a line offset", s)
	}
	return uint32(line), nil
}

func (c *Config) signal(name string) fbtft.Signal {
	if c.Pins.Driver == PinsCdev {
		line, _ := parseLine(name)
		return fbtft.NewLineSignal(c.Pins.Chip, line)
	}
	return fbtft.NewPinSignal(name)
}

// Driver builds the device configuration. Nothing is opened until
// fbtft.Attach is called with it.
func (c *Config) Driver(logf fbtft.Logf) (*fbtft.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var open fbtft.BusOpener
	switch c.Bus.Driver {
	case BusPeriph:
		open = fbtft.PeriphSPI(c.SPI())
	case BusSpidev:
		open = fbtft.Spidev(c.SPI())
	}

	return &fbtft.Config{
		Panel:           c.Panel(),
		Reset:           c.signal(c.Pins.Reset),
		DC:              c.signal(c.Pins.DC),
		Backlight:       c.signal(c.Pins.Backlight),
		OpenBus:         open,
		RefreshInterval: time.Duration(c.Display.RefreshMs) * time.Millisecond,
		Name:            c.Display.Name,
		Logf:            logf,
	}, nil
}

func ReadConfig(r io.Reader) (*Config, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Annotate(err, "config: read")
	}
	c := new(Config)
	if err = hcl.Unmarshal(b, c); err != nil {
		return nil, errors.Annotatef(err, "config: unmarshal content='%s'", string(b))
	}
	c.setDefaults()
	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func ReadConfigFile(path string) (*Config, error) {
	if pathAbs, err := filepath.Abs(path); err == nil {
		path = pathAbs
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotatef(err, "config: %s", path)
	}
	defer f.Close()
	c, err := ReadConfig(f)
	return c, errors.Annotatef(err, "config: %s", path)
}
