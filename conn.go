package fbtft

import (
	"fmt"
	"io"
	"log"

	pconn "periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/BeatGlow/fbtft/conn"
)

// Bus moves bytes to the display controller. One Transfer call is one
// ordered, synchronous write; the bus may split it into several physical
// transactions when it has a maximum transaction size.
type Bus interface {
	String() string

	// Transfer writes p to the bus.
	Transfer(p []byte) error

	// Close the bus handle.
	Close() error
}

// BusOpener acquires a bus handle.
type BusOpener func() (Bus, error)

// SPIConfig describes the SPI bus configuration.
type SPIConfig struct {
	Bus       int
	Device    int
	Mode      uint8
	SpeedHz   uint32
	BatchSize uint
}

// DefaultSPIConfig are the default configuration values.
var DefaultSPIConfig = SPIConfig{
	Bus:       0,
	Device:    0,
	Mode:      0,
	SpeedHz:   8_000_000,
	BatchSize: 4096,
}

// ValidSPISpeeds are common valid SPI bus speeds.
var ValidSPISpeeds = []uint32{
	500_000,
	1_000_000,
	2_000_000,
	4_000_000,
	8_000_000,
	16_000_000,
	20_000_000,
	24_000_000,
	28_000_000,
	32_000_000,
	36_000_000,
	40_000_000,
	48_000_000,
	50_000_000,
	52_000_000,
}

func (config *SPIConfig) setDefaults() error {
	if config.SpeedHz == 0 {
		config.SpeedHz = DefaultSPIConfig.SpeedHz
	}
	if config.BatchSize == 0 {
		config.BatchSize = DefaultSPIConfig.BatchSize
	}
	if config.Mode > 3 {
		return fmt.Errorf("fbtft: invalid SPI mode %d", config.Mode)
	}

	var valid bool
	for _, speed := range ValidSPISpeeds {
		if valid = speed == config.SpeedHz; valid {
			break
		}
	}
	if !valid {
		return fmt.Errorf("fbtft: invalid SPI speed %dHz", config.SpeedHz)
	}
	return nil
}

// PeriphSPI returns a BusOpener for a periph.io registered SPI port.
// The host drivers must be initialized (host.Init) before the opener runs.
func PeriphSPI(config SPIConfig) BusOpener {
	return func() (Bus, error) {
		return OpenPeriphSPI(&config)
	}
}

// OpenPeriphSPI opens SPI port "SPI<bus>.<device>" through the periph.io
// registry.
func OpenPeriphSPI(config *SPIConfig) (Bus, error) {
	if config == nil {
		config = new(SPIConfig)
		*config = DefaultSPIConfig
	}
	if err := config.setDefaults(); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("SPI%d.%d", config.Bus, config.Device)
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("fbtft: open %s: %w", name, err)
	}

	c, err := port.Connect(physic.Frequency(config.SpeedHz)*physic.Hertz, spi.Mode(config.Mode), 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("fbtft: connect %s: %w", name, err)
	}

	return newPeriphBus(c, port, int(config.BatchSize)), nil
}

type periphBus struct {
	conn      spi.Conn
	closer    io.Closer
	batchSize int
}

func newPeriphBus(c spi.Conn, closer io.Closer, batchSize int) *periphBus {
	if l, ok := c.(pconn.Limits); ok {
		if limit := l.MaxTxSize(); limit > 0 && (batchSize <= 0 || limit < batchSize) {
			batchSize = limit
		}
	}
	return &periphBus{
		conn:      c,
		closer:    closer,
		batchSize: batchSize,
	}
}

func (b *periphBus) String() string {
	return fmt.Sprintf("SPI bus %s", b.conn)
}

func (b *periphBus) Transfer(p []byte) error {
	return writeChunked(p, b.batchSize, func(p []byte) error {
		return b.conn.Tx(p, nil)
	})
}

func (b *periphBus) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// Spidev returns a BusOpener for /dev/spidev<bus>.<device>.
func Spidev(config SPIConfig) BusOpener {
	return func() (Bus, error) {
		return OpenSpidev(&config)
	}
}

// OpenSpidev opens the spidev character device directly.
func OpenSpidev(config *SPIConfig) (Bus, error) {
	if config == nil {
		config = new(SPIConfig)
		*config = DefaultSPIConfig
	}
	if err := config.setDefaults(); err != nil {
		return nil, err
	}

	c, err := conn.OpenSPI(config.Bus, config.Device)
	if err != nil {
		return nil, err
	}
	if err = c.SetMode(conn.SPIMode(config.Mode)); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err = c.SetBitsPerWord(8); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err = c.SetMaxSpeed(int(config.SpeedHz)); err != nil {
		_ = c.Close()
		return nil, err
	}

	return &spidevBus{
		bus:       c,
		batchSize: int(config.BatchSize),
	}, nil
}

type spidevBus struct {
	bus       *conn.SPI
	batchSize int
}

func (b *spidevBus) String() string {
	return fmt.Sprintf("SPI bus %s", b.bus)
}

func (b *spidevBus) Transfer(p []byte) error {
	return writeChunked(p, b.batchSize, func(p []byte) (err error) {
		_, err = b.bus.Write(p)
		return
	})
}

func (b *spidevBus) Close() error {
	return b.bus.Close()
}

func writeChunked(data []byte, batchSize int, write func([]byte) error) (err error) {
	if batchSize <= 0 || len(data) <= batchSize {
		return write(data)
	}

	if debug {
		log.Printf("fbtft: write %d bytes of data in %d chunks", len(data), (len(data)+batchSize-1)/batchSize)
	}
	for len(data) > 0 {
		n := batchSize
		if n > len(data) {
			n = len(data)
		}
		if err = write(data[:n]); err != nil {
			return
		}
		data = data[n:]
	}
	return
}

var (
	_ Bus = (*periphBus)(nil)
	_ Bus = (*spidevBus)(nil)
)
