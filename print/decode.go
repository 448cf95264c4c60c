package print

import (
	"errors"
	"io"
	"math"
	"time"

	"github.com/printforge/printd/bedmesh"
	"github.com/printforge/printd/coord"
	"github.com/printforge/printd/gcode"
)

// DecoderConfig carries the machine settings the decoder needs.
type DecoderConfig struct {
	// DefaultFeed (mm/min) is used until the stream sets a feed rate.
	DefaultFeed float64
	// MaxFeed (mm/min) clamps requested feed rates. 0 disables the clamp.
	MaxFeed float64
	// Mesh, when set, adds the bed surface offset to every move target.
	Mesh bedmesh.ZOffsetter
}

// Decoder translates parsed blocks into actions. It is stateful across
// one job: position, offsets and modal flags accumulate from block to
// block and are reset exactly when the job stops.
type Decoder struct {
	cfg DecoderConfig

	pos  coord.Point // logical position, before workspace offset
	e    float64
	feed float64

	offset  coord.Point // set via G92
	eOffset float64

	relative  bool
	relativeE bool
	inches    bool

	lastMotion float64 // modal motion mode, G0 or G1
}

func NewDecoder(cfg DecoderConfig) *Decoder {
	d := &Decoder{cfg: cfg}
	d.Reset()
	return d
}

// Reset discards all cumulative state. Position is unknown after a
// reset; the next job is expected to home before moving.
func (d *Decoder) Reset() {
	d.pos = coord.Point{}
	d.e = 0
	d.feed = d.cfg.DefaultFeed
	d.offset = coord.Point{}
	d.eOffset = 0
	d.relative = false
	d.relativeE = false
	d.inches = false
	d.lastMotion = 1
}

// DecodeAll eagerly consumes the whole stream and returns the job's
// action list. The full job is materialized in memory up front, which
// bounds job size to available memory; chunked decode is a known
// followup if that ever becomes a problem.
func (d *Decoder) DecodeAll(r gcode.Reader) ([]Action, error) {
	var actions []Action
	for {
		b, err := r.Read()
		if err == io.EOF {
			return actions, nil
		}
		if err != nil {
			return nil, &DecodeError{Err: err}
		}
		as, err := d.Decode(b)
		if err != nil {
			return nil, err
		}
		actions = append(actions, as...)
	}
}

// Decode translates one block into zero or more actions.
func (d *Decoder) Decode(b gcode.Block) ([]Action, error) {
	if err := b.Validate(); err != nil {
		return nil, &DecodeError{Block: b, Err: err}
	}

	cmd, ok := commandWord(b)
	if !ok {
		// bare axis words continue the modal motion mode
		if hasAxisWord(b) {
			return d.move(b)
		}
		return nil, &DecodeError{Block: b, Err: errors.New("block has no command")}
	}

	switch cmd.W {
	case 'G':
		return d.decodeG(cmd.Arg, b)
	case 'M':
		return d.decodeM(cmd.Arg, b)
	}
	return nil, &DecodeError{Block: b, Err: errors.New("unsupported command")}
}

func (d *Decoder) decodeG(code float64, b gcode.Block) ([]Action, error) {
	switch code {
	case 0, 1:
		d.lastMotion = code
		return d.move(b)
	case 4:
		return d.dwell(b)
	case 20:
		d.inches = true
	case 21:
		d.inches = false
	case 28:
		return d.home(b)
	case 90:
		d.relative = false
		d.relativeE = false
	case 91:
		d.relative = true
		d.relativeE = true
	case 92:
		d.setPosition(b)
	default:
		return nil, &DecodeError{Block: b, Err: errors.New("unsupported G-code")}
	}
	return nil, nil
}

func (d *Decoder) decodeM(code float64, b gcode.Block) ([]Action, error) {
	switch code {
	case 82:
		d.relativeE = false
	case 83:
		d.relativeE = true
	case 104, 109:
		_, s := b.Arg('S')
		return []Action{{Kind: ActionHotendTemp, Value: s, Wait: code == 109}}, nil
	case 140, 190:
		_, s := b.Arg('S')
		return []Action{{Kind: ActionBedTemp, Value: s, Wait: code == 190}}, nil
	case 106:
		ok, s := b.Arg('S')
		if !ok {
			s = 255
		}
		return []Action{{Kind: ActionFanSpeed, Value: s}}, nil
	case 107:
		return []Action{{Kind: ActionFanSpeed, Value: 0}}, nil
	case 84, 105, 110, 115, 117:
		// stepper idle / host queries / messages: nothing to execute
	default:
		return nil, &DecodeError{Block: b, Err: errors.New("unsupported M-code")}
	}
	return nil, nil
}

func (d *Decoder) unitMul() float64 {
	if d.inches {
		return 25.4
	}
	return 1
}

func (d *Decoder) move(b gcode.Block) ([]Action, error) {
	mul := d.unitMul()

	if ok, f := b.Arg('F'); ok {
		feed := f * mul
		if feed <= 0 {
			return nil, &DecodeError{Block: b, Err: errors.New("feed rate must be positive")}
		}
		if d.cfg.MaxFeed > 0 {
			feed = math.Min(feed, d.cfg.MaxFeed)
		}
		d.feed = feed
	}

	target := d.pos
	moved := false
	apply := func(cur *float64, w byte) {
		ok, v := b.Arg(w)
		if !ok {
			return
		}
		moved = true
		if d.relative {
			*cur += v * mul
		} else {
			*cur = v * mul
		}
	}
	apply(&target.X, 'X')
	apply(&target.Y, 'Y')
	apply(&target.Z, 'Z')

	e := d.e
	if ok, v := b.Arg('E'); ok {
		moved = true
		if d.relativeE {
			e += v * mul
		} else {
			e = v * mul
		}
	}

	if !moved {
		// feed-only block, state already updated
		return nil, nil
	}

	d.pos = target
	d.e = e

	a := Action{
		Kind:   ActionMove,
		Target: target.Add(d.offset),
		E:      e + d.eOffset,
		Feed:   d.feed,
	}
	if d.cfg.Mesh != nil {
		if ok, z := d.cfg.Mesh.OffsetZ(a.Target.X, a.Target.Y); ok {
			a.Target.Z += z
		}
	}
	return []Action{a}, nil
}

func (d *Decoder) dwell(b gcode.Block) ([]Action, error) {
	var dur time.Duration
	if ok, p := b.Arg('P'); ok {
		dur = time.Duration(p * float64(time.Millisecond))
	} else if ok, s := b.Arg('S'); ok {
		dur = time.Duration(s * float64(time.Second))
	} else {
		return nil, &DecodeError{Block: b, Err: errors.New("dwell requires P or S")}
	}
	if dur < 0 {
		return nil, &DecodeError{Block: b, Err: errors.New("dwell must be non-negative")}
	}
	return []Action{{Kind: ActionDwell, Duration: dur}}, nil
}

func (d *Decoder) home(b gcode.Block) ([]Action, error) {
	var axes Axis
	if ok, _ := b.Arg('X'); ok {
		axes |= AxisX
	}
	if ok, _ := b.Arg('Y'); ok {
		axes |= AxisY
	}
	if ok, _ := b.Arg('Z'); ok {
		axes |= AxisZ
	}
	if axes == 0 {
		axes = AxisX | AxisY | AxisZ
	}

	// homed axes are at machine zero afterwards
	if axes&AxisX != 0 {
		d.pos.X, d.offset.X = 0, 0
	}
	if axes&AxisY != 0 {
		d.pos.Y, d.offset.Y = 0, 0
	}
	if axes&AxisZ != 0 {
		d.pos.Z, d.offset.Z = 0, 0
	}

	return []Action{{Kind: ActionHome, Axes: axes}}, nil
}

// setPosition handles G92: the machine does not move, the given words
// become the new logical coordinates.
func (d *Decoder) setPosition(b gcode.Block) {
	mul := d.unitMul()
	if ok, v := b.Arg('X'); ok {
		d.offset.X += d.pos.X - v*mul
		d.pos.X = v * mul
	}
	if ok, v := b.Arg('Y'); ok {
		d.offset.Y += d.pos.Y - v*mul
		d.pos.Y = v * mul
	}
	if ok, v := b.Arg('Z'); ok {
		d.offset.Z += d.pos.Z - v*mul
		d.pos.Z = v * mul
	}
	if ok, v := b.Arg('E'); ok {
		d.eOffset += d.e - v*mul
		d.e = v * mul
	}
}

func commandWord(b gcode.Block) (gcode.Word, bool) {
	for _, w := range b {
		if w.W == 'G' || w.W == 'M' {
			return w, true
		}
	}
	return gcode.Word{}, false
}

func hasAxisWord(b gcode.Block) bool {
	for _, w := range b {
		if w.IsAxis() {
			return true
		}
	}
	return false
}
