// Package motor is the boundary to the motion firmware. The executor
// is its only caller: it sends one Command at a time and waits for the
// matching completion before sending the next.
package motor

import (
	"github.com/printforge/printd/gcode"
)

// Command is one wire-level instruction for the firmware.
type Command struct {
	Block gcode.Block
}

// Driver serializes access to one motion controller. Commands() and
// Results() form a strict request/response pair: every command sent
// produces exactly one result, nil on success.
//
// Halt is the realtime lane: it bypasses the command queue entirely and
// must work even while a command is in flight.
type Driver interface {
	Commands() chan<- Command
	Results() <-chan error

	Halt() error
	Close() error
}
