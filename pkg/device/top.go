package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/channel"
	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

var ErrInvalidConfig = errors.New("device: invalid configuration")

// Config sizes the model.
type Config struct {
	Feedback feedback.Config

	Testers     int
	InDepth     int
	InThreshold int
	OutDepth    int

	// CyclesPerByte is the link speed in both directions.
	CyclesPerByte int
}

// DefaultConfig mirrors the reference build: a 16-entry input queue whose
// programmable-empty flag sits at one entry.
func DefaultConfig() Config {
	return Config{
		Feedback:      feedback.DefaultConfig(),
		Testers:       4,
		InDepth:       16,
		InThreshold:   1,
		OutDepth:      16,
		CyclesPerByte: 10,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Feedback.Validate(); err != nil {
		return err
	}
	switch {
	case c.Testers < 1:
		return fmt.Errorf("%w: need at least one tester, got %d", ErrInvalidConfig, c.Testers)
	case c.InDepth < 2:
		return fmt.Errorf("%w: input depth %d too small", ErrInvalidConfig, c.InDepth)
	case c.InThreshold < 0 || c.InThreshold >= c.InDepth:
		return fmt.Errorf("%w: threshold %d outside [0, %d)", ErrInvalidConfig, c.InThreshold, c.InDepth)
	case c.OutDepth < 1:
		return fmt.Errorf("%w: output depth %d too small", ErrInvalidConfig, c.OutDepth)
	case c.CyclesPerByte < 1:
		return fmt.Errorf("%w: cycles per byte must be positive, got %d", ErrInvalidConfig, c.CyclesPerByte)
	}
	return nil
}

// Top is the device as seen over the byte link. It implements channel.Port
// for the host side and channel.Clock to advance the whole model.
type Top struct {
	cfg   Config
	codec channel.Codec
	dist  *Distributor

	in []feedback.Packed

	// host -> device
	rxQueue []byte
	rxTimer int
	frame   []byte

	// device -> host
	txQueue []byte
	txTimer int
	host    []byte

	cycles    uint64
	overflows uint64
}

// NewTop builds a device model.
func NewTop(cfg Config) (*Top, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Top{
		cfg:   cfg,
		codec: channel.NewCodec(cfg.Feedback),
		dist:  NewDistributor(cfg.Feedback, cfg.Testers, cfg.OutDepth),
	}, nil
}

func (d *Top) Config() Config { return d.cfg }

// Overflows counts settings dropped because the input queue was full.
func (d *Top) Overflows() uint64 { return d.overflows }

// Write queues bytes on the link towards the device.
func (d *Top) Write(p []byte) (int, error) {
	d.rxQueue = append(d.rxQueue, p...)
	return len(p), nil
}

// Available returns the number of bytes the device has delivered to the host.
func (d *Top) Available() int { return len(d.host) }

func (d *Top) Read(p []byte) (int, error) {
	n := copy(p, d.host)
	d.host = d.host[n:]
	return n, nil
}

// Tick advances the link, the input queue and every tester by one cycle.
func (d *Top) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.cycles++

	if len(d.rxQueue) > 0 {
		d.rxTimer++
		if d.rxTimer >= d.cfg.CyclesPerByte {
			d.rxTimer = 0
			d.receive(d.rxQueue[0])
			d.rxQueue = d.rxQueue[1:]
		}
	}
	if len(d.txQueue) > 0 {
		d.txTimer++
		if d.txTimer >= d.cfg.CyclesPerByte {
			d.txTimer = 0
			d.host = append(d.host, d.txQueue[0])
			d.txQueue = d.txQueue[1:]
		}
	}

	d.dist.SetStart(false)
	if len(d.in) > 0 && d.dist.Idle() {
		d.dist.SetSettingIn(d.in[0])
		d.dist.SetStart(true)
		d.in = d.in[1:]
	}
	d.dist.step()
	d.dist.SetStart(false)
	return nil
}

func (d *Top) receive(b byte) {
	d.frame = append(d.frame, b)
	if len(d.frame) < d.codec.Width {
		return
	}
	v, _ := d.codec.Decode(d.frame)
	d.frame = d.frame[:0]

	op, ok := d.codec.IsCommand(v)
	if !ok {
		if len(d.in) >= d.cfg.InDepth {
			d.overflows++
			return
		}
		d.in = append(d.in, feedback.Packed(v))
		return
	}
	d.execute(op)
}

func (d *Top) execute(op uint8) {
	switch op {
	case channel.CmdReset:
		d.reset()
	case channel.CmdReadSetting:
		p, _ := d.dist.pop()
		d.respond(uint64(p))
	case channel.CmdReadCycleCount:
		d.respond(d.cycles)
	case channel.CmdReadNumFound:
		d.respond(d.dist.NumFound())
	case channel.CmdReadNumStarted:
		d.respond(d.dist.NumStarted())
	case channel.CmdReadStatus:
		d.respond(uint64(d.Status()))
	}
}

func (d *Top) respond(v uint64) {
	w := d.codec.Width
	for i := w - 1; i >= 0; i-- {
		d.txQueue = append(d.txQueue, byte(v>>(8*uint(i))))
	}
}

func (d *Top) reset() {
	d.dist.Reset()
	d.in = nil
	d.txQueue = nil
	d.txTimer = 0
	d.cycles = 0
	d.overflows = 0
}

// Status returns the status bitfield as READ_STATUS would report it now.
func (d *Top) Status() channel.Status {
	var s channel.Status
	if len(d.in) <= d.cfg.InThreshold {
		s |= channel.StatusInProgEmpty
	}
	if len(d.in) == 0 {
		s |= channel.StatusInEmpty
	}
	if len(d.in) > 0 || d.dist.Running() {
		s |= channel.StatusRunning
	}
	if !d.dist.Success() {
		s |= channel.StatusOutEmpty
	}
	return s
}

// Counters returns the counters without going through the link.
func (d *Top) Counters() channel.Counters {
	return channel.Counters{
		CycleCount: d.cycles,
		NumFound:   d.dist.NumFound(),
		NumStarted: d.dist.NumStarted(),
	}
}
