package motor

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/tarm/serial"
)

// SerialDriver drives firmware over a serial line. One command is
// written per line; the firmware acknowledges each line with "ok" or
// an "error:..." line. Unsolicited lines (temperature reports, busy
// notices) are skipped while waiting for the acknowledgment.
type SerialDriver struct {
	rw   io.ReadWriter
	scan *bufio.Scanner

	cmds    chan Command
	results chan error

	wMx sync.Mutex

	closeCh   chan struct{}
	closeOnce sync.Once
}

var _ Driver = &SerialDriver{}

// Open opens the named serial port and starts a driver on it.
func Open(name string, baud int) (*SerialDriver, error) {
	port, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, err
	}
	return NewSerialDriver(port), nil
}

// NewSerialDriver starts a driver on an already-open connection.
func NewSerialDriver(rw io.ReadWriter) *SerialDriver {
	d := &SerialDriver{
		rw:      rw,
		scan:    bufio.NewScanner(rw),
		cmds:    make(chan Command),
		results: make(chan error),
		closeCh: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *SerialDriver) Commands() chan<- Command { return d.cmds }
func (d *SerialDriver) Results() <-chan error    { return d.results }

func (d *SerialDriver) loop() {
	defer close(d.results)
	for {
		select {
		case <-d.closeCh:
			return
		case cmd := <-d.cmds:
			err := d.exec(cmd)
			select {
			case d.results <- err:
			case <-d.closeCh:
				return
			}
		}
	}
}

func (d *SerialDriver) exec(cmd Command) error {
	d.wMx.Lock()
	_, err := io.WriteString(d.rw, cmd.Block.String()+"\n")
	d.wMx.Unlock()
	if err != nil {
		return err
	}
	return d.awaitAck()
}

func (d *SerialDriver) awaitAck() error {
	for d.scan.Scan() {
		line := strings.TrimSpace(d.scan.Text())
		switch {
		case line == "ok" || strings.HasPrefix(line, "ok "):
			return nil
		case strings.HasPrefix(line, "error:") || strings.HasPrefix(line, "Error:"):
			return errors.New(line)
		case strings.HasPrefix(line, "!!"):
			return errors.New("firmware fault: " + strings.TrimPrefix(line, "!!"))
		}
		// anything else is an async report
	}
	if err := d.scan.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

// Halt writes the emergency-stop command directly to the line,
// bypassing command/result accounting. Safe to call from any
// goroutine, even with a command in flight.
func (d *SerialDriver) Halt() error {
	d.wMx.Lock()
	defer d.wMx.Unlock()
	_, err := io.WriteString(d.rw, "M112\n")
	return err
}

// Close stops the driver loop and closes the underlying connection if
// it implements io.Closer. The Results channel is closed, which the
// executor observes as the subsystem going away.
func (d *SerialDriver) Close() error {
	d.closeOnce.Do(func() { close(d.closeCh) })
	if closer, ok := d.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
