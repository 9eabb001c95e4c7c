// Package fbtft drives small serial RGB565 LCD controllers (ST7735 family)
// as a deferred-refresh frame buffer.
//
// Application code draws into a [Buffer] (directly, through the draw
// primitives, or through a shared [View] obtained with [Device.Map]); a
// [Scheduler] periodically pushes the whole frame to the panel when the
// buffer was touched since the previous flush.
package fbtft

import (
	"log"
	"os"
	"time"
)

var debug bool

func init() {
	debug = os.Getenv("DISPLAY_DEBUG") != ""
}

// Logf is a printf style log function.
type Logf func(format string, args ...interface{})

func discardf(string, ...interface{}) {}

func defaultLogf() Logf {
	if debug {
		return log.Printf
	}
	return discardf
}

// DefaultRefreshInterval is the default flush period (30 frames per second).
const DefaultRefreshInterval = time.Second / 30

// DefaultName is the id reported to the registration consumer.
const DefaultName = "st7735fb"

// Config is the device configuration used by [Attach].
type Config struct {
	// Panel geometry and addressing quirks.
	Panel Panel

	// Reset, DC (data/command select) and Backlight signals, acquired in
	// that order.
	Reset     Signal
	DC        Signal
	Backlight Signal

	// OpenBus acquires the bus handle after all signals.
	OpenBus BusOpener

	// RefreshInterval is the scheduler period, DefaultRefreshInterval if 0.
	RefreshInterval time.Duration

	// Registry is an optional registration consumer.
	Registry *Registry

	// Name is the id passed to Registry, DefaultName if empty.
	Name string

	// Logf receives diagnostics. Defaults to log.Printf when the
	// DISPLAY_DEBUG environment variable is set.
	Logf Logf

	// Sleep waits between init steps, time.Sleep if nil.
	Sleep func(time.Duration)
}

func (c *Config) setDefaults() {
	if c.Panel.Width == 0 && c.Panel.Height == 0 {
		c.Panel = DefaultPanel
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Logf == nil {
		c.Logf = defaultLogf()
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
}
