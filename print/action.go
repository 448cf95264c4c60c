package print

import (
	"time"

	"github.com/printforge/printd/coord"
)

type ActionKind int

const (
	// ActionMove is a linear move to Target (and extruder position E)
	// at Feed mm/min.
	ActionMove ActionKind = iota
	// ActionDwell holds the machine still for Duration.
	ActionDwell
	// ActionHotendTemp sets the hotend target to Value °C. If Wait is
	// set the motor subsystem blocks until the target is reached.
	ActionHotendTemp
	// ActionBedTemp sets the bed target to Value °C, Wait as above.
	ActionBedTemp
	// ActionFanSpeed sets the part fan to Value (0-255).
	ActionFanSpeed
	// ActionHome homes the axes in Axes.
	ActionHome
)

type Axis byte

const (
	AxisX Axis = 1 << iota
	AxisY
	AxisZ
)

// Action is one atomic unit of hardware work. An Action is immutable
// once produced by the decoder; sending it to the executor transfers
// ownership completely.
type Action struct {
	Kind ActionKind

	Target coord.Point
	E      float64
	Feed   float64

	Duration time.Duration

	Value float64
	Wait  bool

	Axes Axis
}
