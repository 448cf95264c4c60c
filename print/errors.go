package print

import (
	"errors"
	"fmt"

	"github.com/printforge/printd/gcode"
)

// ErrChannelClosed reports that a peer worker terminated without an
// explicit shutdown. It is the only error that ends a worker loop; the
// observer exits cleanly and takes its sibling down with it.
var ErrChannelClosed = errors.New("peer channel closed")

// errUnexpectedResult means the motor subsystem produced a completion
// with no command in flight.
var errUnexpectedResult = errors.New("completion with no command in flight")

// InvalidTransitionError is returned for a control command that is not
// valid in the current phase. The worker loop stays alive.
type InvalidTransitionError struct {
	Op    string
	Phase Phase
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.Phase)
}

// DecodeError reports a malformed or unsupported instruction. The
// submitted job does not start.
type DecodeError struct {
	Block gcode.Block // nil when the stream itself failed to parse
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Block == nil {
		return "decode: " + e.Err.Error()
	}
	return fmt.Sprintf("decode %q: %s", e.Block.String(), e.Err.Error())
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MotorError reports that the motor subsystem failed executing an
// action. The remainder of the job is aborted.
type MotorError struct {
	Action Action
	Err    error
}

func (e *MotorError) Error() string {
	return "motor: " + e.Err.Error()
}

func (e *MotorError) Unwrap() error { return e.Err }
