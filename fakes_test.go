package fbtft

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

var errFake = errors.New("fake failure")

// journal records collaborator calls in order across fakes.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...interface{}) {
	j.mu.Lock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
	j.mu.Unlock()
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) reset() {
	j.mu.Lock()
	j.entries = nil
	j.mu.Unlock()
}

type fakeSignal struct {
	name    string
	journal *journal
	quiet   bool // do not journal Out calls

	mu         sync.Mutex
	level      gpio.Level
	acquired   bool
	outs       int
	acquireErr error
	outErr     error
}

func (s *fakeSignal) String() string { return s.name }

func (s *fakeSignal) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquireErr != nil {
		s.journal.add("acquire %s failed", s.name)
		return s.acquireErr
	}
	s.journal.add("acquire %s", s.name)
	s.acquired = true
	s.level = gpio.High
	return nil
}

func (s *fakeSignal) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acquired {
		return nil
	}
	s.journal.add("release %s", s.name)
	s.acquired = false
	s.level = gpio.Low
	return nil
}

func (s *fakeSignal) Out(level gpio.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outErr != nil {
		return s.outErr
	}
	s.outs++
	s.level = level
	if !s.quiet {
		s.journal.add("%s %s", s.name, level)
	}
	return nil
}

func (s *fakeSignal) Level() gpio.Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *fakeSignal) Acquired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}

type transfer struct {
	dc   gpio.Level
	data []byte
}

// fakeBus records transfers together with the DC level at transfer time.
type fakeBus struct {
	journal *journal
	dc      *fakeSignal

	mu        sync.Mutex
	transfers []transfer
	closed    int

	// fail, if set, decides the result of each transfer.
	fail func(p []byte) error

	// block, if set, is received from before each pixel transfer returns.
	block   chan struct{}
	blocked chan struct{}
}

func (b *fakeBus) String() string { return "fake bus" }

func (b *fakeBus) Transfer(p []byte) error {
	level := b.dc.Level()
	if level == gpio.Low && len(p) == 1 {
		b.journal.add("cmd %02x", p[0])
	} else if len(p) <= 8 {
		b.journal.add("data % x", p)
	} else {
		b.journal.add("data %d bytes", len(p))
	}

	b.mu.Lock()
	b.transfers = append(b.transfers, transfer{dc: level, data: append([]byte(nil), p...)})
	fail, block, blocked := b.fail, b.block, b.blocked
	b.mu.Unlock()

	if block != nil && len(p) > 8 {
		if blocked != nil {
			blocked <- struct{}{}
		}
		<-block
	}
	if fail != nil {
		return fail(p)
	}
	return nil
}

func (b *fakeBus) Close() error {
	b.mu.Lock()
	b.closed++
	b.mu.Unlock()
	b.journal.add("close bus")
	return nil
}

func (b *fakeBus) setFail(fail func(p []byte) error) {
	b.mu.Lock()
	b.fail = fail
	b.mu.Unlock()
}

func (b *fakeBus) Transfers() []transfer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]transfer(nil), b.transfers...)
}

func (b *fakeBus) clear() {
	b.mu.Lock()
	b.transfers = nil
	b.mu.Unlock()
}

// rig is a complete set of fake collaborators.
type rig struct {
	journal   *journal
	reset     *fakeSignal
	dc        *fakeSignal
	backlight *fakeSignal
	bus       *fakeBus
	busErr    error

	mu     sync.Mutex
	sleeps []time.Duration
}

func newRig() *rig {
	j := new(journal)
	r := &rig{
		journal:   j,
		reset:     &fakeSignal{name: "reset", journal: j},
		dc:        &fakeSignal{name: "dc", journal: j, quiet: true},
		backlight: &fakeSignal{name: "backlight", journal: j},
	}
	r.bus = &fakeBus{journal: j, dc: r.dc}
	return r
}

func (r *rig) sleep(d time.Duration) {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	r.journal.add("sleep")
}

func (r *rig) Sleeps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func (r *rig) openBus() (Bus, error) {
	if r.busErr != nil {
		r.journal.add("open bus failed")
		return nil, r.busErr
	}
	r.journal.add("open bus")
	return r.bus, nil
}

func (r *rig) protocol() *Protocol {
	return NewProtocol(r.bus, r.reset, r.dc, r.backlight, DefaultPanel, r.sleep)
}

func (r *rig) config() *Config {
	return &Config{
		Panel:           DefaultPanel,
		Reset:           r.reset,
		DC:              r.dc,
		Backlight:       r.backlight,
		OpenBus:         r.openBus,
		RefreshInterval: time.Hour,
		Sleep:           r.sleep,
	}
}

// data returns the payloads of all data transfers.
func dataTransfers(transfers []transfer) (out [][]byte) {
	for _, t := range transfers {
		if t.dc == gpio.High {
			out = append(out, t.data)
		}
	}
	return
}
