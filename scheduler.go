package fbtft

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/temoto/alive/v2"
)

// SchedulerState is the deferred refresh state.
type SchedulerState int32

// Scheduler states.
const (
	Idle SchedulerState = iota
	Armed
	Flushing
	Cancelled
)

func (s SchedulerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Flushing:
		return "flushing"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Flusher is the part of the protocol the scheduler drives.
type Flusher interface {
	SetAddressWindow(x, y, w, h int) error
	SendData(data ...byte) error
}

// Scheduler errors.
var (
	ErrNotIdle     = errors.New("fbtft: scheduler is not idle")
	ErrNoBuffer    = errors.New("fbtft: no buffer registered")
	ErrRegistered  = errors.New("fbtft: buffer already registered")
	ErrBufferArmed = errors.New("fbtft: cannot unregister while armed")
	ErrBadInterval = errors.New("fbtft: refresh interval must be positive")
)

// Scheduler flushes a registered Buffer to the display on a fixed period,
// but only when the buffer was touched since the previous flush. Writers
// never wait for a transfer: a flush holds the buffer lock only while it
// copies the frame.
type Scheduler struct {
	out   Flusher
	logf  Logf
	state atomic.Int32

	mu     sync.Mutex // guards buf, frame, alive
	buf    *Buffer
	frame  []byte
	alive  *alive.Alive
	ticker *time.Ticker

	// flushMu is held for the duration of a flush, Cancel takes it to wait
	// for an in-flight transfer.
	flushMu sync.Mutex

	errMu   sync.Mutex
	err     error
	flushes atomic.Uint64
}

// NewScheduler returns an idle scheduler writing to out.
func NewScheduler(out Flusher, logf Logf) *Scheduler {
	if logf == nil {
		logf = defaultLogf()
	}
	return &Scheduler{
		out:  out,
		logf: logf,
	}
}

// State returns the current state.
func (s *Scheduler) State() SchedulerState {
	return SchedulerState(s.state.Load())
}

func (s *Scheduler) String() string {
	return fmt.Sprintf("scheduler %s, %d flushes", s.State(), s.Flushes())
}

// Register attaches the buffer to flush. Only one buffer can be registered.
func (s *Scheduler) Register(buf *Buffer) error {
	if buf == nil {
		return newError(KindInvalidArgument, StageRegister, ErrNoBuffer)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf != nil {
		return newError(KindRegistration, StageRegister, ErrRegistered)
	}
	s.buf = buf
	s.frame = make([]byte, buf.Metadata().Size)
	return nil
}

// Unregister detaches the buffer. The scheduler must not be armed.
func (s *Scheduler) Unregister() error {
	if st := s.State(); st == Armed || st == Flushing {
		return newError(KindRegistration, StageDetach, ErrBufferArmed)
	}
	s.mu.Lock()
	s.buf, s.frame = nil, nil
	s.mu.Unlock()
	return nil
}

// Arm starts periodic flushing. It moves Idle to Armed and fails in any
// other state.
func (s *Scheduler) Arm(interval time.Duration) error {
	if interval <= 0 {
		return newError(KindInvalidArgument, StageRegister, ErrBadInterval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return newError(KindRegistration, StageRegister, ErrNoBuffer)
	}
	if !s.state.CompareAndSwap(int32(Idle), int32(Armed)) {
		return newError(KindRegistration, StageRegister, fmt.Errorf("%w: %s", ErrNotIdle, s.State()))
	}

	s.alive = alive.NewAlive()
	s.ticker = time.NewTicker(interval)
	s.alive.Add(1)
	go s.run(s.alive, s.ticker)
	return nil
}

func (s *Scheduler) run(a *alive.Alive, ticker *time.Ticker) {
	defer a.Done()
	for {
		select {
		case <-a.StopChan():
			return
		case <-ticker.C:
			if err := s.Tick(); err != nil {
				s.logf("fbtft: flush: %v", err)
			}
		}
	}
}

// Tick flushes the buffer if it is dirty and the scheduler is armed. Any
// other tick is a no-op. On failure the buffer is marked dirty again so the
// next tick retries; the first failure is kept and returned by Err.
func (s *Scheduler) Tick() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	buf, frame := s.buf, s.frame
	s.mu.Unlock()
	if buf == nil || !buf.Dirty() {
		return nil
	}
	if !s.state.CompareAndSwap(int32(Armed), int32(Flushing)) {
		return nil
	}
	defer s.state.CompareAndSwap(int32(Flushing), int32(Armed))

	if !buf.takeFrame(frame) {
		return nil
	}

	meta := buf.Metadata()
	err := s.out.SetAddressWindow(0, 0, meta.Width, meta.Height)
	if err == nil {
		err = s.out.SendData(frame...)
	}
	if err != nil {
		buf.touch()
		err = newError(KindTransport, StageFlush, err)
		s.errMu.Lock()
		if s.err == nil {
			s.err = err
		}
		s.errMu.Unlock()
		return err
	}

	s.flushes.Add(1)
	return nil
}

// Cancel stops periodic flushing and waits for a flush in progress to
// complete. Cancel is idempotent.
func (s *Scheduler) Cancel() error {
	for {
		st := s.state.Load()
		if st == int32(Cancelled) {
			return nil
		}
		if s.state.CompareAndSwap(st, int32(Cancelled)) {
			break
		}
	}

	s.mu.Lock()
	a, ticker := s.alive, s.ticker
	s.mu.Unlock()
	if ticker != nil {
		ticker.Stop()
	}
	if a != nil {
		a.Stop()
		a.Wait()
	}

	// wait for a Tick running outside the timer goroutine
	s.flushMu.Lock()
	s.flushMu.Unlock() //nolint:staticcheck
	return nil
}

// Err returns the first flush error, if any.
func (s *Scheduler) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Flushes is the number of completed flushes.
func (s *Scheduler) Flushes() uint64 {
	return s.flushes.Load()
}
