package fbtft

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Signal is a single output control line (reset, data/command select or
// backlight enable).
type Signal interface {
	String() string

	// Acquire claims the line and drives its initial level.
	Acquire() error

	// Release gives the line back. Releasing twice is a no-op.
	Release() error

	// Out sets the line level.
	Out(gpio.Level) error
}

// Signal errors.
var (
	ErrSignalNotAcquired = errors.New("fbtft: signal not acquired")
	ErrSignalInvalid     = errors.New("fbtft: GPIO pin is invalid")
)

// PinSignal is a Signal backed by a periph GPIO pin.
type PinSignal struct {
	// Name is looked up with gpioreg.ByName when Pin is nil.
	Name string

	// Pin to drive; optional.
	Pin gpio.PinOut

	// Initial level driven on Acquire.
	Initial gpio.Level

	mu       sync.Mutex
	pin      gpio.PinOut
	acquired bool
}

// NewPinSignal returns a signal for the named pin, driven high on Acquire.
func NewPinSignal(name string) *PinSignal {
	return &PinSignal{Name: name, Initial: gpio.High}
}

func (s *PinSignal) String() string {
	if s.Pin != nil {
		return s.Pin.String()
	}
	return s.Name
}

func (s *PinSignal) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquired {
		return nil
	}

	p := s.Pin
	if p == nil {
		if io := gpioreg.ByName(s.Name); io != nil {
			p = io
		}
	}
	if p == nil || p == gpio.INVALID {
		return fmt.Errorf("%w: %q", ErrSignalInvalid, s.Name)
	}
	if err := p.Out(s.Initial); err != nil {
		return fmt.Errorf("fbtft: %s: %w", p, err)
	}
	s.pin = p
	s.acquired = true
	return nil
}

func (s *PinSignal) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acquired {
		return nil
	}
	s.acquired = false
	err := s.pin.Out(gpio.Low)
	s.pin = nil
	return err
}

func (s *PinSignal) Out(level gpio.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acquired {
		return ErrSignalNotAcquired
	}
	return s.pin.Out(level)
}

var _ Signal = (*PinSignal)(nil)
