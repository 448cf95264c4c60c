package print

import (
	"strings"
	"testing"
	"time"

	"github.com/printforge/printd/coord"
	"github.com/printforge/printd/gcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeOne(t *testing.T, d *Decoder, line string) Action {
	t.Helper()
	actions, err := d.Decode(gcode.MustParse(line)[0])
	require.NoError(t, err)
	require.Len(t, actions, 1)
	return actions[0]
}

func TestDecoder_moves(t *testing.T) {
	d := NewDecoder(DecoderConfig{DefaultFeed: 1200})

	a := decodeOne(t, d, "G1 X10 Y20 E0.5")
	assert.Equal(t, ActionMove, a.Kind)
	assert.Equal(t, coord.Point{X: 10, Y: 20}, a.Target)
	assert.Equal(t, 0.5, a.E)
	assert.Equal(t, 1200.0, a.Feed)

	// unset axes keep their value
	a = decodeOne(t, d, "G1 Z0.2 F3000")
	assert.Equal(t, coord.Point{X: 10, Y: 20, Z: 0.2}, a.Target)
	assert.Equal(t, 3000.0, a.Feed)

	// relative mode accumulates
	_, err := d.Decode(gcode.MustParse("G91")[0])
	require.NoError(t, err)
	a = decodeOne(t, d, "G1 X-1 E0.1")
	assert.Equal(t, coord.Point{X: 9, Y: 20, Z: 0.2}, a.Target)
	assert.InDelta(t, 0.6, a.E, 1e-9)
}

func TestDecoder_modalMotion(t *testing.T) {
	d := NewDecoder(DecoderConfig{})

	decodeOne(t, d, "G1 X5")
	// bare axis words continue the previous motion mode
	a := decodeOne(t, d, "X7 Y3")
	assert.Equal(t, ActionMove, a.Kind)
	assert.Equal(t, coord.Point{X: 7, Y: 3}, a.Target)
}

func TestDecoder_feedClamp(t *testing.T) {
	d := NewDecoder(DecoderConfig{DefaultFeed: 1200, MaxFeed: 6000})

	a := decodeOne(t, d, "G1 X1 F99999")
	assert.Equal(t, 6000.0, a.Feed)

	_, err := d.Decode(gcode.MustParse("G1 X2 F-5")[0])
	var dErr *DecodeError
	require.ErrorAs(t, err, &dErr)
}

func TestDecoder_inches(t *testing.T) {
	d := NewDecoder(DecoderConfig{})

	_, err := d.Decode(gcode.MustParse("G20")[0])
	require.NoError(t, err)
	a := decodeOne(t, d, "G1 X1")
	assert.Equal(t, coord.Point{X: 25.4}, a.Target)

	_, err = d.Decode(gcode.MustParse("G21")[0])
	require.NoError(t, err)
	a = decodeOne(t, d, "G1 X1")
	assert.Equal(t, coord.Point{X: 1}, a.Target)
}

func TestDecoder_setPosition(t *testing.T) {
	d := NewDecoder(DecoderConfig{})

	decodeOne(t, d, "G1 X10 E5")

	// G92 moves nothing, it renames the current position
	actions, err := d.Decode(gcode.MustParse("G92 X0 E0")[0])
	require.NoError(t, err)
	assert.Empty(t, actions)

	// the physical target is unchanged by the renaming
	a := decodeOne(t, d, "G1 X1 E0.2")
	assert.Equal(t, coord.Point{X: 11}, a.Target)
	assert.InDelta(t, 5.2, a.E, 1e-9)
}

func TestDecoder_dwell(t *testing.T) {
	d := NewDecoder(DecoderConfig{})

	a := decodeOne(t, d, "G4 P500")
	assert.Equal(t, ActionDwell, a.Kind)
	assert.Equal(t, 500*time.Millisecond, a.Duration)

	a = decodeOne(t, d, "G4 S2")
	assert.Equal(t, 2*time.Second, a.Duration)

	_, err := d.Decode(gcode.MustParse("G4")[0])
	var dErr *DecodeError
	require.ErrorAs(t, err, &dErr)
}

func TestDecoder_home(t *testing.T) {
	d := NewDecoder(DecoderConfig{})

	decodeOne(t, d, "G1 X10 Y10 Z5")

	a := decodeOne(t, d, "G28 X Y")
	assert.Equal(t, ActionHome, a.Kind)
	assert.Equal(t, AxisX|AxisY, a.Axes)

	// homed axes are at zero afterwards, Z kept its position
	a = decodeOne(t, d, "G1 E1")
	assert.Equal(t, coord.Point{Z: 5}, a.Target)

	a = decodeOne(t, d, "G28")
	assert.Equal(t, AxisX|AxisY|AxisZ, a.Axes)
}

func TestDecoder_temps(t *testing.T) {
	d := NewDecoder(DecoderConfig{})

	a := decodeOne(t, d, "M104 S210")
	assert.Equal(t, ActionHotendTemp, a.Kind)
	assert.Equal(t, 210.0, a.Value)
	assert.False(t, a.Wait)

	a = decodeOne(t, d, "M109 S210")
	assert.True(t, a.Wait)

	a = decodeOne(t, d, "M140 S60")
	assert.Equal(t, ActionBedTemp, a.Kind)
	assert.False(t, a.Wait)

	a = decodeOne(t, d, "M190 S60")
	assert.True(t, a.Wait)
}

func TestDecoder_fan(t *testing.T) {
	d := NewDecoder(DecoderConfig{})

	a := decodeOne(t, d, "M106 S128")
	assert.Equal(t, ActionFanSpeed, a.Kind)
	assert.Equal(t, 128.0, a.Value)

	a = decodeOne(t, d, "M106")
	assert.Equal(t, 255.0, a.Value)

	a = decodeOne(t, d, "M107")
	assert.Equal(t, 0.0, a.Value)
}

func TestDecoder_ignored(t *testing.T) {
	d := NewDecoder(DecoderConfig{})

	for _, line := range []string{"M105", "M110 N0", "M115", "M84"} {
		actions, err := d.Decode(gcode.MustParse(line)[0])
		require.NoError(t, err, line)
		assert.Empty(t, actions, line)
	}
}

func TestDecoder_unsupported(t *testing.T) {
	d := NewDecoder(DecoderConfig{})

	var dErr *DecodeError
	_, err := d.Decode(gcode.MustParse("G33")[0])
	require.ErrorAs(t, err, &dErr)

	_, err = d.Decode(gcode.MustParse("M600")[0])
	require.ErrorAs(t, err, &dErr)

	_, err = d.Decode(gcode.MustParse("T1")[0])
	require.ErrorAs(t, err, &dErr)
}

func TestDecoder_mesh(t *testing.T) {
	d := NewDecoder(DecoderConfig{Mesh: offsetterFunc(func(x, y float64) (bool, float64) {
		if x > 100 {
			return false, 0
		}
		return true, 0.1
	})})

	a := decodeOne(t, d, "G1 X10 Y10 Z0.3")
	assert.InDelta(t, 0.4, a.Target.Z, 1e-9)

	// outside the mesh the move is untouched
	a = decodeOne(t, d, "G1 X150")
	assert.InDelta(t, 0.3, a.Target.Z, 1e-9)
}

type offsetterFunc func(x, y float64) (bool, float64)

func (f offsetterFunc) OffsetZ(x, y float64) (bool, float64) { return f(x, y) }

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder(DecoderConfig{DefaultFeed: 1200})

	decodeOne(t, d, "G1 X10 Y10 F9000")
	_, err := d.Decode(gcode.MustParse("G91")[0])
	require.NoError(t, err)

	d.Reset()

	// position, feed and modal flags are all back to defaults
	a := decodeOne(t, d, "G1 X1")
	assert.Equal(t, coord.Point{X: 1}, a.Target)
	assert.Equal(t, 1200.0, a.Feed)
}

func TestDecoder_DecodeAll(t *testing.T) {
	d := NewDecoder(DecoderConfig{})

	src := "G28\nG1 X10 Y10 F3000 ; first move\nM104 S200\n"
	actions, err := d.DecodeAll(gcode.NewParser(strings.NewReader(src)))
	require.NoError(t, err)
	require.Len(t, actions, 3)
	assert.Equal(t, ActionHome, actions[0].Kind)
	assert.Equal(t, ActionMove, actions[1].Kind)
	assert.Equal(t, ActionHotendTemp, actions[2].Kind)
}

func TestDecoder_DecodeAll_badStream(t *testing.T) {
	d := NewDecoder(DecoderConfig{})

	_, err := d.DecodeAll(gcode.NewParser(strings.NewReader("G1 X1\nnot gcode at all\n")))
	var dErr *DecodeError
	require.ErrorAs(t, err, &dErr)
}
