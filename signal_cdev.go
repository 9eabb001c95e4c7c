package fbtft

import (
	"fmt"
	"sync"

	gpiocdev "github.com/temoto/gpio-cdev-go"
	"periph.io/x/conn/v3/gpio"
)

// DefaultConsumer is the consumer label used for character device lines.
const DefaultConsumer = "fbtft"

var openChip = gpiocdev.Open

// LineSignal is a Signal backed by a line on a GPIO character device
// (/dev/gpiochipN).
type LineSignal struct {
	Chip    string
	Line    uint32
	Initial gpio.Level

	// Consumer label, DefaultConsumer if empty.
	Consumer string

	mu    sync.Mutex
	chip  gpiocdev.Chiper
	lines gpiocdev.Lineser
	set   gpiocdev.LineSetFunc
}

// NewLineSignal returns a signal for line on chip, driven high on Acquire.
func NewLineSignal(chip string, line uint32) *LineSignal {
	return &LineSignal{Chip: chip, Line: line, Initial: gpio.High}
}

func (s *LineSignal) String() string {
	return fmt.Sprintf("%s:%d", s.Chip, s.Line)
}

func (s *LineSignal) consumer() string {
	if s.Consumer == "" {
		return DefaultConsumer
	}
	return s.Consumer
}

func (s *LineSignal) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lines != nil {
		return nil
	}

	chip, err := openChip(s.Chip, s.consumer())
	if err != nil {
		if chip != nil {
			_ = chip.Close()
		}
		return fmt.Errorf("fbtft: open %s: %w", s.Chip, err)
	}
	lines, err := chip.OpenLines(gpiocdev.GPIOHANDLE_REQUEST_OUTPUT, s.consumer(), s.Line)
	if err != nil {
		_ = chip.Close()
		return fmt.Errorf("fbtft: request %s: %w", s, err)
	}

	set := lines.SetFunc(s.Line)
	set(levelByte(s.Initial))
	if err = lines.Flush(); err != nil {
		_ = lines.Close()
		_ = chip.Close()
		return fmt.Errorf("fbtft: %s: %w", s, err)
	}

	s.chip, s.lines, s.set = chip, lines, set
	return nil
}

func (s *LineSignal) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lines == nil {
		return nil
	}
	s.set(0)
	err := s.lines.Flush()
	if cerr := s.lines.Close(); err == nil {
		err = cerr
	}
	if cerr := s.chip.Close(); err == nil {
		err = cerr
	}
	s.chip, s.lines, s.set = nil, nil, nil
	return err
}

func (s *LineSignal) Out(level gpio.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lines == nil {
		return ErrSignalNotAcquired
	}
	s.set(levelByte(level))
	return s.lines.Flush()
}

func levelByte(level gpio.Level) byte {
	if level {
		return 1
	}
	return 0
}

var _ Signal = (*LineSignal)(nil)
