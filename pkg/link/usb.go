// Package link carries the framed command channel over a USB CDC data
// interface.
package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

const (
	DefaultTimeout      = 5 * time.Second
	DefaultPollInterval = time.Millisecond
	DefaultBaudRate     = 115200

	// CDC class requests
	cdcSetLineCoding       = 0x20
	cdcSetControlLineState = 0x22
)

type inEndpoint interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

type outEndpoint interface {
	WriteContext(ctx context.Context, buf []byte) (int, error)
}

// USB is a byte link over the bulk endpoints of a CDC data interface. It
// implements channel.Port and channel.Clock: one Tick polls the IN endpoint
// for up to PollInterval and buffers whatever arrived.
type USB struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	epOut outEndpoint
	epIn  inEndpoint

	packetSize int
	rx         []byte

	Timeout      time.Duration
	PollInterval time.Duration
}

// Open claims the CDC data interface of the device with the given VID/PID.
func Open(vid, pid uint16) (*USB, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("link: USB error: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("link: device not found (VID:0x%04X PID:0x%04X)", vid, pid)
	}

	// Not supported on every platform.
	_ = dev.SetAutoDetach(true)

	u := &USB{
		ctx:          ctx,
		dev:          dev,
		packetSize:   64,
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
	}
	if err := u.claimInterface(); err != nil {
		u.Close()
		return nil, err
	}
	return u, nil
}

// claimInterface finds and claims the CDC data interface.
func (u *USB) claimInterface() error {
	alt, ok := dataInterface(u.dev.Desc)
	if !ok {
		return fmt.Errorf("link: no CDC data interface on %04X:%04X", uint16(u.dev.Desc.Vendor), uint16(u.dev.Desc.Product))
	}

	num, err := u.dev.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("link: failed to read active config: %w", err)
	}
	cfg, err := u.dev.Config(num)
	if err != nil {
		return fmt.Errorf("link: failed to get config %d: %w", num, err)
	}
	u.cfg = cfg

	intf, err := cfg.Interface(alt.Number, alt.Alternate)
	if err != nil {
		return fmt.Errorf("link: failed to claim interface %d: %w", alt.Number, err)
	}
	u.intf = intf

	return u.findEndpoints()
}

// findEndpoints opens the bulk IN and OUT endpoints.
func (u *USB) findEndpoints() error {
	var outAddr, inAddr int
	for _, ep := range u.intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionOut:
			if outAddr == 0 {
				outAddr = ep.Number
			}
		case gousb.EndpointDirectionIn:
			if inAddr == 0 {
				inAddr = ep.Number
				u.packetSize = ep.MaxPacketSize
			}
		}
	}
	if outAddr == 0 {
		return fmt.Errorf("link: bulk OUT endpoint not found")
	}
	if inAddr == 0 {
		return fmt.Errorf("link: bulk IN endpoint not found")
	}

	epOut, err := u.intf.OutEndpoint(outAddr)
	if err != nil {
		return fmt.Errorf("link: failed to open OUT endpoint: %w", err)
	}
	epIn, err := u.intf.InEndpoint(inAddr)
	if err != nil {
		return fmt.Errorf("link: failed to open IN endpoint: %w", err)
	}
	u.epOut, u.epIn = epOut, epIn
	return nil
}

// SetLineCoding sends SET_LINE_CODING (8N1 at baud) and raises DTR/RTS on
// the given communication interface. Bridges that ignore line coding accept
// it anyway.
func (u *USB) SetLineCoding(commInterface uint16, baud uint32) error {
	coding := []byte{
		byte(baud), byte(baud >> 8), byte(baud >> 16), byte(baud >> 24),
		0, // one stop bit
		0, // no parity
		8, // data bits
	}
	rType := uint8(gousb.ControlOut | gousb.ControlClass | gousb.ControlInterface)
	if _, err := u.dev.Control(rType, cdcSetLineCoding, 0, commInterface, coding); err != nil {
		return fmt.Errorf("link: SET_LINE_CODING failed: %w", err)
	}
	if _, err := u.dev.Control(rType, cdcSetControlLineState, 0x03, commInterface, nil); err != nil {
		return fmt.Errorf("link: SET_CONTROL_LINE_STATE failed: %w", err)
	}
	return nil
}

// Write sends p on the bulk OUT endpoint.
func (u *USB) Write(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), u.Timeout)
	defer cancel()

	n, err := u.epOut.WriteContext(ctx, p)
	if err != nil {
		return n, fmt.Errorf("link: USB write failed: %w", err)
	}
	return n, nil
}

// Available returns the number of buffered received bytes.
func (u *USB) Available() int {
	return len(u.rx)
}

// Read consumes buffered bytes. It never touches the endpoint.
func (u *USB) Read(p []byte) (int, error) {
	n := copy(p, u.rx)
	u.rx = u.rx[n:]
	return n, nil
}

// Tick polls the IN endpoint once. A poll that times out without data is not
// an error.
func (u *USB) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	poll, cancel := context.WithTimeout(ctx, u.PollInterval)
	defer cancel()

	buf := make([]byte, u.packetSize)
	n, err := u.epIn.ReadContext(poll, buf)
	u.rx = append(u.rx, buf[:n]...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if poll.Err() != nil || errors.Is(err, gousb.ErrorTimeout) {
		return nil
	}
	return fmt.Errorf("link: USB read failed: %w", err)
}

// Close releases USB resources.
func (u *USB) Close() error {
	if u.intf != nil {
		u.intf.Close()
		u.intf = nil
	}
	if u.cfg != nil {
		u.cfg.Close()
		u.cfg = nil
	}
	if u.dev != nil {
		u.dev.Close()
		u.dev = nil
	}
	if u.ctx != nil {
		u.ctx.Close()
		u.ctx = nil
	}
	return nil
}
