package motor

import (
	"bytes"
	"io"
)

// Simulator is an io.ReadWriter that acknowledges every complete line
// with "ok", standing in for real firmware during development and
// tests. Wrap it with NewSerialDriver to run without hardware.
type Simulator struct {
	pr *io.PipeReader
	pw *io.PipeWriter
}

func NewSimulator() *Simulator {
	pr, pw := io.Pipe()
	return &Simulator{pr: pr, pw: pw}
}

func (s *Simulator) Write(p []byte) (int, error) {
	n := bytes.Count(p, []byte("\n"))
	go func() {
		for i := 0; i < n; i++ {
			if _, err := io.WriteString(s.pw, "ok\n"); err != nil {
				return
			}
		}
	}()
	return len(p), nil
}

func (s *Simulator) Read(p []byte) (int, error) { return s.pr.Read(p) }

func (s *Simulator) Close() error { return s.pw.Close() }
