// Package channel implements the framed command/status protocol spoken by the
// screening pipeline over its byte link.
//
// Every frame is FrameWidth bytes, big-endian. A frame with its top bit set is
// a command; any other frame written by the host is a candidate setting.
// Responses are plain values of the same width.
package channel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceNLFSR/pkg/feedback"
)

// Opcodes
const (
	CmdReset          = 0x01
	CmdReadSetting    = 0x02
	CmdReadCycleCount = 0x03
	CmdReadNumFound   = 0x04
	CmdReadStatus     = 0x05
	CmdReadNumStarted = 0x06
)

// Status bits
const (
	StatusInProgEmpty Status = 1 << 0
	StatusInEmpty     Status = 1 << 1
	StatusRunning     Status = 1 << 2
	StatusOutEmpty    Status = 1 << 3

	StatusMask Status = 0x0F
)

var (
	// ErrMalformedFrame reports a frame of the wrong length or an out of
	// sequence byte on the link.
	ErrMalformedFrame = errors.New("channel: malformed frame")
	// ErrProtocolTimeout reports a response that did not arrive in time.
	ErrProtocolTimeout = errors.New("channel: protocol timeout")
)

// Status is the device status bitfield returned by READ_STATUS.
type Status uint8

func (s Status) InProgEmpty() bool { return s&StatusInProgEmpty != 0 }
func (s Status) InEmpty() bool     { return s&StatusInEmpty != 0 }
func (s Status) Running() bool     { return s&StatusRunning != 0 }
func (s Status) OutEmpty() bool    { return s&StatusOutEmpty != 0 }

var statusNames = []struct {
	bit  Status
	name string
}{
	{StatusInProgEmpty, "IN_PROG_EMPTY"},
	{StatusInEmpty, "IN_EMPTY"},
	{StatusRunning, "RUNNING"},
	{StatusOutEmpty, "OUT_EMPTY"},
}

func (s Status) String() string {
	var parts []string
	for _, n := range statusNames {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}

var opcodeNames = map[uint8]string{
	CmdReset:          "RESET",
	CmdReadSetting:    "READ_SETTING",
	CmdReadCycleCount: "READ_CYCLE_COUNT",
	CmdReadNumFound:   "READ_NUM_FOUND",
	CmdReadStatus:     "READ_STATUS",
	CmdReadNumStarted: "READ_NUM_STARTED",
}

// OpcodeName returns the mnemonic for op.
func OpcodeName(op uint8) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP_%02X", op)
}

// FrameWidth returns the frame size in bytes for a setting of settingWidth
// bits: room for the setting plus at least one byte for the command flag and
// opcode.
func FrameWidth(settingWidth int) int {
	return (settingWidth + 8 + 7) / 8
}

// Codec encodes and decodes frames of a fixed width.
type Codec struct {
	Width int
}

// NewCodec creates a codec sized for cfg.
func NewCodec(cfg feedback.Config) Codec {
	return Codec{Width: FrameWidth(cfg.SettingWidth())}
}

func (c Codec) commandFlag() uint64 {
	return 1 << uint(c.Width*8-1)
}

func (c Codec) put(v uint64) []byte {
	frame := make([]byte, c.Width)
	for i := c.Width - 1; i >= 0; i-- {
		frame[i] = byte(v)
		v >>= 8
	}
	return frame
}

// EncodeCommand builds a command frame.
func (c Codec) EncodeCommand(op uint8) []byte {
	return c.put(c.commandFlag() | uint64(op))
}

// EncodeSetting builds a candidate write frame. A setting reaching into the
// command flag cannot be sent.
func (c Codec) EncodeSetting(p feedback.Packed) ([]byte, error) {
	if uint64(p) >= c.commandFlag() {
		return nil, fmt.Errorf("%w: setting %s collides with the command flag of a %d-byte frame", ErrMalformedFrame, p, c.Width)
	}
	return c.put(uint64(p)), nil
}

// Decode parses one frame.
func (c Codec) Decode(frame []byte) (uint64, error) {
	if len(frame) != c.Width {
		return 0, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedFrame, len(frame), c.Width)
	}
	var v uint64
	for _, b := range frame {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// IsCommand reports whether a decoded frame value carries the command flag,
// returning its opcode.
func (c Codec) IsCommand(v uint64) (uint8, bool) {
	if v&c.commandFlag() == 0 {
		return 0, false
	}
	return uint8(v), true
}
