package motor

import (
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/printforge/printd/gcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptRW feeds canned reply lines and records everything written.
type scriptRW struct {
	mx      sync.Mutex
	written []string

	replies io.Reader
}

func newScriptRW(replies string) *scriptRW {
	return &scriptRW{replies: strings.NewReader(replies)}
}

func (s *scriptRW) Write(p []byte) (int, error) {
	s.mx.Lock()
	s.written = append(s.written, string(p))
	s.mx.Unlock()
	return len(p), nil
}

func (s *scriptRW) Read(p []byte) (int, error) { return s.replies.Read(p) }

func (s *scriptRW) lines() []string {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]string(nil), s.written...)
}

func TestSerialDriver_ok(t *testing.T) {
	rw := newScriptRW("ok\nT:204.8 /205.0\nok\n")
	d := NewSerialDriver(rw)
	defer d.Close()

	d.Commands() <- Command{Block: gcode.MustParse("G1 X10")[0]}
	require.NoError(t, <-d.Results())

	// async temperature report before the second ack is skipped
	d.Commands() <- Command{Block: gcode.MustParse("M104 S200")[0]}
	require.NoError(t, <-d.Results())

	assert.Equal(t, []string{"G1 X10\n", "M104 S200\n"}, rw.lines())
}

func TestSerialDriver_error(t *testing.T) {
	rw := newScriptRW("error:checksum mismatch\n")
	d := NewSerialDriver(rw)
	defer d.Close()

	d.Commands() <- Command{Block: gcode.MustParse("G1 X10")[0]}
	err := <-d.Results()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestSerialDriver_eof(t *testing.T) {
	rw := newScriptRW("")
	d := NewSerialDriver(rw)
	defer d.Close()

	d.Commands() <- Command{Block: gcode.MustParse("G1 X10")[0]}
	err := <-d.Results()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestSerialDriver_halt(t *testing.T) {
	rw := newScriptRW("")
	d := NewSerialDriver(rw)
	defer d.Close()

	require.NoError(t, d.Halt())
	assert.Equal(t, []string{"M112\n"}, rw.lines())
}

func TestSerialDriver_close(t *testing.T) {
	d := NewSerialDriver(newScriptRW(""))
	require.NoError(t, d.Close())

	_, ok := <-d.Results()
	assert.False(t, ok)
}

func TestSimulator(t *testing.T) {
	sim := NewSimulator()
	d := NewSerialDriver(sim)
	defer d.Close()
	defer sim.Close()

	for i := 0; i < 3; i++ {
		d.Commands() <- Command{Block: gcode.MustParse("G1 X1")[0]}
		assert.NoError(t, <-d.Results())
	}
}
