package fbtft

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// State is the device lifecycle state. It only moves forward.
type State int32

// Lifecycle states.
const (
	Unattached State = iota
	SignalsAcquired
	Initialized
	Registered
	Attached
	Detaching
	Detached
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case SignalsAcquired:
		return "signals acquired"
	case Initialized:
		return "initialized"
	case Registered:
		return "registered"
	case Attached:
		return "attached"
	case Detaching:
		return "detaching"
	case Detached:
		return "detached"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// allocate is replaced in tests.
var allocate = Allocate

// Device is an attached display: its signals, bus, pixel buffer and refresh
// scheduler. All state lives here; there are no package level devices.
type Device struct {
	config Config
	state  atomic.Int32
	bus    Bus
	proto  *Protocol
	buf    *Buffer
	sched  *Scheduler
	node   *Node
	undo   rollback
}

// Attach acquires the reset, DC and backlight signals and the bus (in that
// order), allocates the pixel buffer, runs the init sequence and arms the
// refresh scheduler.
//
// If any step fails, everything acquired so far is released in reverse
// order and the returned *Error names the failing stage.
func Attach(ctx context.Context, config *Config) (*Device, error) {
	if config == nil {
		return nil, invalidArgument("attach: nil config")
	}

	d := &Device{config: *config}
	d.config.setDefaults()
	if err := d.config.Panel.Validate(); err != nil {
		return nil, err
	}
	if d.config.Reset == nil || d.config.DC == nil || d.config.Backlight == nil {
		return nil, invalidArgument("attach: reset, DC and backlight signals are required")
	}
	if d.config.OpenBus == nil {
		return nil, invalidArgument("attach: no bus")
	}
	d.undo.logf = d.config.Logf

	if err := d.attach(ctx); err != nil {
		d.config.Logf("fbtft: attach %s failed at %s: %v", d.config.Name, StageOf(err), err)
		if rerr := d.undo.unwind(); rerr != nil {
			d.config.Logf("fbtft: rollback: %v", rerr)
		}
		d.state.Store(int32(Detached))
		return nil, err
	}

	d.config.Logf("fbtft: attached %s", d)
	return d, nil
}

func checkpoint(ctx context.Context, kind Kind, stage Stage) error {
	if err := ctx.Err(); err != nil {
		return newError(kind, stage, err)
	}
	return nil
}

func (d *Device) attach(ctx context.Context) (err error) {
	c := &d.config

	for _, signal := range []struct {
		stage  Stage
		signal Signal
	}{
		{StageReset, c.Reset},
		{StageDC, c.DC},
		{StageBacklight, c.Backlight},
	} {
		if err = checkpoint(ctx, KindResourceAcquisition, signal.stage); err != nil {
			return
		}
		if err = signal.signal.Acquire(); err != nil {
			return newError(KindResourceAcquisition, signal.stage, err)
		}
		d.undo.push(signal.stage, signal.signal.Release)
	}

	if err = checkpoint(ctx, KindResourceAcquisition, StageBus); err != nil {
		return
	}
	if d.bus, err = c.OpenBus(); err != nil {
		return newError(KindResourceAcquisition, StageBus, err)
	}
	d.undo.push(StageBus, d.bus.Close)
	d.state.Store(int32(SignalsAcquired))

	if err = checkpoint(ctx, KindAllocation, StageAlloc); err != nil {
		return
	}
	if d.buf, err = allocate(c.Panel.Width, c.Panel.Height); err != nil {
		if KindOf(err) != KindAllocation {
			err = newError(KindAllocation, StageAlloc, err)
		}
		return
	}
	d.undo.push(StageAlloc, d.buf.Release)

	if err = checkpoint(ctx, KindInitialization, StageInit); err != nil {
		return
	}
	d.proto = NewProtocol(d.bus, c.Reset, c.DC, c.Backlight, c.Panel, c.Sleep)
	if err = d.proto.RunInitSequence(); err != nil {
		return newError(KindInitialization, StageInit, err)
	}
	d.undo.push(StageInit, d.proto.DisplayOff)
	d.state.Store(int32(Initialized))

	if err = checkpoint(ctx, KindRegistration, StageRegister); err != nil {
		return
	}
	d.sched = NewScheduler(d.proto, c.Logf)
	if err = d.sched.Register(d.buf); err != nil {
		return
	}
	d.undo.push(StageRegister, d.sched.Unregister)

	if c.Registry != nil {
		var node Node
		if node, err = c.Registry.Register(c.Name, d.buf.Metadata()); err != nil {
			return
		}
		d.node = &node
		d.undo.push(StageRegister, func() error {
			return c.Registry.Unregister(node.Name)
		})
	}
	d.state.Store(int32(Registered))

	if err = d.sched.Arm(c.RefreshInterval); err != nil {
		return
	}
	d.undo.push(StageRegister, d.sched.Cancel)
	d.state.Store(int32(Attached))
	return nil
}

// Detach switches the backlight off, stops the scheduler, releases the
// buffer, the signals and the bus. It returns the first deferred flush
// error, if any, together with teardown errors. Detaching a device that is
// not attached is a no-op.
func (d *Device) Detach() error {
	if !d.state.CompareAndSwap(int32(Attached), int32(Detaching)) {
		return nil
	}

	var errs []error
	if err := d.proto.Backlight(false); err != nil {
		errs = append(errs, newError(KindTransport, StageDetach, err))
	}
	errs = append(errs, d.undo.unwind())
	if err := d.sched.Err(); err != nil {
		errs = append(errs, err)
	}
	d.state.Store(int32(Detached))

	err := errors.Join(errs...)
	if err != nil {
		d.config.Logf("fbtft: detach %s: %v", d.config.Name, err)
	} else {
		d.config.Logf("fbtft: detached %s", d.config.Name)
	}
	return err
}

// State returns the lifecycle state.
func (d *Device) State() State {
	return State(d.state.Load())
}

// Name is the id reported to the registration consumer.
func (d *Device) Name() string {
	return d.config.Name
}

func (d *Device) String() string {
	return fmt.Sprintf("%s %s on %s (%s)", d.config.Name, d.config.Panel, d.bus, d.State())
}

// Buffer returns the pixel buffer for drawing.
func (d *Device) Buffer() *Buffer {
	return d.buf
}

// Metadata returns the fixed buffer description.
func (d *Device) Metadata() Metadata {
	return d.buf.Metadata()
}

// Map returns a shared view of the pixel buffer, see [Buffer.Map].
func (d *Device) Map(offset, length int) (*View, error) {
	if st := d.State(); st != Attached {
		return nil, invalidArgument("map: device is %s", st)
	}
	return d.buf.Map(offset, length)
}

// Node returns the registry node, if the device was registered with one.
func (d *Device) Node() (Node, bool) {
	if d.node == nil {
		return Node{}, false
	}
	return *d.node, true
}

// Refresh flushes the buffer now if it is dirty, without waiting for the
// next scheduler tick.
func (d *Device) Refresh() error {
	return d.sched.Tick()
}

// Err returns the first deferred flush error, if any.
func (d *Device) Err() error {
	return d.sched.Err()
}

// Scheduler returns the refresh scheduler.
func (d *Device) Scheduler() *Scheduler {
	return d.sched
}
