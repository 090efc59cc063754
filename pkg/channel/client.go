package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

// DefaultTimeoutCycles bounds the wait for one response frame.
const DefaultTimeoutCycles = 10000

// Port is the host side of the byte link to the device.
type Port interface {
	Write(p []byte) (int, error)
	// Available returns how many received bytes can be read without waiting.
	Available() int
	Read(p []byte) (int, error)
}

// Clock advances the device by one clock edge.
type Clock interface {
	Tick(ctx context.Context) error
}

// Counters groups the device counters.
type Counters struct {
	CycleCount uint64
	NumFound   uint64
	NumStarted uint64
}

// Client issues commands over a Port, one outstanding read at a time.
type Client struct {
	port  Port
	clock Clock
	codec Codec

	// TimeoutCycles bounds every wait for a response.
	TimeoutCycles int
	Logger        *slog.Logger

	cycles uint64
}

// NewClient creates a client speaking frames of codec.Width bytes.
func NewClient(port Port, clock Clock, codec Codec) *Client {
	return &Client{
		port:          port,
		clock:         clock,
		codec:         codec,
		TimeoutCycles: DefaultTimeoutCycles,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Codec returns the frame codec in use.
func (c *Client) Codec() Codec {
	return c.codec
}

// Cycles returns the clock edges the client has driven so far.
func (c *Client) Cycles() uint64 {
	return c.cycles
}

// Tick advances the device clock once.
func (c *Client) Tick(ctx context.Context) error {
	if err := c.clock.Tick(ctx); err != nil {
		return err
	}
	c.cycles++
	return nil
}

// Reset sends RESET. The device does not answer it.
func (c *Client) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.checkIdle(); err != nil {
		return err
	}
	c.Logger.Debug("command", "op", OpcodeName(CmdReset))
	return c.send(c.codec.EncodeCommand(CmdReset))
}

// WriteSetting submits one candidate. Candidate writes never elicit a
// response.
func (c *Client) WriteSetting(p feedback.Packed) error {
	frame, err := c.codec.EncodeSetting(p)
	if err != nil {
		return err
	}
	return c.send(frame)
}

func (c *Client) ReadStatus(ctx context.Context) (Status, error) {
	v, err := c.query(ctx, CmdReadStatus)
	return Status(v) & StatusMask, err
}

// ReadSetting pops one result from the device output queue.
func (c *Client) ReadSetting(ctx context.Context) (feedback.Packed, error) {
	v, err := c.query(ctx, CmdReadSetting)
	return feedback.Packed(v), err
}

func (c *Client) ReadCycleCount(ctx context.Context) (uint64, error) {
	return c.query(ctx, CmdReadCycleCount)
}

func (c *Client) ReadNumFound(ctx context.Context) (uint64, error) {
	return c.query(ctx, CmdReadNumFound)
}

func (c *Client) ReadNumStarted(ctx context.Context) (uint64, error) {
	return c.query(ctx, CmdReadNumStarted)
}

// Counters reads the three device counters in sequence.
func (c *Client) Counters(ctx context.Context) (Counters, error) {
	var out Counters
	var err error
	if out.CycleCount, err = c.ReadCycleCount(ctx); err != nil {
		return out, err
	}
	if out.NumFound, err = c.ReadNumFound(ctx); err != nil {
		return out, err
	}
	if out.NumStarted, err = c.ReadNumStarted(ctx); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) query(ctx context.Context, op uint8) (uint64, error) {
	if err := c.checkIdle(); err != nil {
		return 0, err
	}
	if err := c.send(c.codec.EncodeCommand(op)); err != nil {
		return 0, err
	}

	waited := 0
	for c.port.Available() < c.codec.Width {
		if waited >= c.TimeoutCycles {
			return 0, fmt.Errorf("%w: %s unanswered after %d cycles", ErrProtocolTimeout, OpcodeName(op), waited)
		}
		if err := c.Tick(ctx); err != nil {
			return 0, err
		}
		waited++
	}

	frame := make([]byte, c.codec.Width)
	if err := c.readFull(frame); err != nil {
		return 0, err
	}
	v, err := c.codec.Decode(frame)
	if err != nil {
		return 0, err
	}
	c.Logger.Debug("command", "op", OpcodeName(op), "value", v, "waited", waited)
	return v, nil
}

// checkIdle rejects bytes the device sent without being asked.
func (c *Client) checkIdle() error {
	if n := c.port.Available(); n != 0 {
		return fmt.Errorf("%w: %d unsolicited bytes pending", ErrMalformedFrame, n)
	}
	return nil
}

func (c *Client) send(frame []byte) error {
	n, err := c.port.Write(frame)
	if err != nil {
		return fmt.Errorf("channel: write failed: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("%w: short write of %d/%d bytes", ErrMalformedFrame, n, len(frame))
	}
	return nil
}

func (c *Client) readFull(frame []byte) error {
	for off := 0; off < len(frame); {
		n, err := c.port.Read(frame[off:])
		if err != nil {
			return fmt.Errorf("channel: read failed: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: link returned %d/%d bytes", ErrMalformedFrame, off, len(frame))
		}
		off += n
	}
	return nil
}
