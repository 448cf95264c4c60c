// Package print is the motion-control core: it turns a textual
// instruction stream into an ordered sequence of atomic actions and
// drives them into the motor subsystem.
//
// Two long-lived goroutines do the work. The decoder worker owns the
// job state machine and the decoder engine; it consumes control
// commands and produces the action stream. The executor worker
// consumes that stream and drives the motor subsystem, one action at a
// time. The two share no memory; every value handed over a channel
// changes owners completely.
package print

import (
	"io"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/printforge/printd/gcode"
	"github.com/printforge/printd/motor"
)

// actionBuffer bounds how far decoding may run ahead of execution.
// Once full, the decoder blocks on the send until the executor drains.
// This is the pipeline's only flow-control mechanism.
const actionBuffer = 16

// Pipeline is the handle to a running decode/execute pair.
type Pipeline struct {
	ctrl   chan Control[Command]
	events chan Event

	decoderDone  chan struct{}
	executorDone chan struct{}

	mx   sync.Mutex
	last Event
}

// Start wires and launches both workers. The motor subsystem is handed
// over as its two channel endpoints: commands out, one completion per
// command back in.
func Start(dec *Decoder, cmds chan<- motor.Command, results <-chan error) *Pipeline {
	p := &Pipeline{
		ctrl:         make(chan Control[Command]),
		events:       make(chan Event, 16),
		decoderDone:  make(chan struct{}),
		executorDone: make(chan struct{}),
	}

	actions := make(chan Control[queued], actionBuffer)
	go p.executorLoop(actions, cmds, results)
	go p.decoderLoop(dec, actions)

	return p
}

// Submit decodes the instruction stream eagerly and starts printing.
// It returns the job id, or a *DecodeError / *InvalidTransitionError.
func (p *Pipeline) Submit(src io.Reader) (uuid.UUID, error) {
	id := uuid.New()
	return id, p.send(Command{Kind: CommandSubmit, ID: id, Source: src})
}

// Stop clears the current job, if any.
func (p *Pipeline) Stop() error { return p.send(Command{Kind: CommandStop}) }

// Pause suspends dispatch after the in-flight action.
func (p *Pipeline) Pause() error { return p.send(Command{Kind: CommandPause}) }

// Resume continues from the exact next undispatched action.
func (p *Pipeline) Resume() error { return p.send(Command{Kind: CommandResume}) }

// Events returns the phase-change and failure stream. Delivery is
// best-effort; consume promptly or lose events, the pipeline never
// blocks on this channel.
func (p *Pipeline) Events() <-chan Event { return p.events }

// Status returns the most recently emitted event.
func (p *Pipeline) Status() Event {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.last
}

// Shutdown ends both workers. Buffered, undelivered actions are
// discarded; this is deliberate shutdown behavior.
func (p *Pipeline) Shutdown() {
	select {
	case p.ctrl <- controlQuit[Command]():
	case <-p.decoderDone:
	}
	p.Wait()
}

// Wait blocks until both workers have terminated.
func (p *Pipeline) Wait() {
	<-p.decoderDone
	<-p.executorDone
}

func (p *Pipeline) send(cmd Command) error {
	reply := make(chan error, 1)
	cmd.Reply = reply

	select {
	case p.ctrl <- controlMsg(cmd):
	case <-p.decoderDone:
		return ErrChannelClosed
	}
	select {
	case err := <-reply:
		return err
	case <-p.decoderDone:
		return ErrChannelClosed
	}
}

func (p *Pipeline) emit(ev Event) {
	p.mx.Lock()
	p.last = ev
	p.mx.Unlock()
	select {
	case p.events <- ev:
	default:
	}
}

// decoderThread is the state owned exclusively by the decoder worker.
type decoderThread struct {
	p   *Pipeline
	dec *Decoder
	job *Job
	id  uuid.UUID
}

// decoderLoop consumes control commands and, while printing, feeds the
// executor. While printing it races two readinesses: a new control
// message and room for the next action. There is deliberately no
// priority between the two; control stays responsive without starving
// playback.
func (p *Pipeline) decoderLoop(dec *Decoder, actions chan<- Control[queued]) {
	// quit signals shutdown before enqueueing the in-band Quit, so the
	// executor discards any actions still buffered ahead of it.
	quit := func() {
		close(p.decoderDone)
		select {
		case actions <- controlQuit[queued]():
		case <-p.executorDone:
		}
	}

	d := &decoderThread{p: p, dec: dec, job: NewJob()}
	for {
		if d.job.IsPrinting() {
			head, err := d.job.Peek()
			if err != nil {
				// cannot happen: the queue is non-empty while printing
				log.Println("ERROR: decoder:", err)
				d.job.Stop()
				continue
			}
			select {
			case env, ok := <-p.ctrl:
				if !ok {
					log.Println("ERROR: decoder: control channel closed without shutdown")
					quit()
					return
				}
				if env.Quit {
					quit()
					return
				}
				d.handle(env.Msg)
			case actions <- controlMsg(queued{action: head, job: d.id}):
				d.job.Next()
				if d.job.Phase() == PhaseStopped {
					// queue drained, job complete
					d.dec.Reset()
					p.emit(Event{Job: d.id, Phase: PhaseStopped})
				}
			case <-p.executorDone:
				log.Println("ERROR: decoder: executor gone, shutting down")
				close(p.decoderDone)
				return
			}
		} else {
			select {
			case env, ok := <-p.ctrl:
				if !ok {
					log.Println("ERROR: decoder: control channel closed without shutdown")
					quit()
					return
				}
				if env.Quit {
					quit()
					return
				}
				d.handle(env.Msg)
			case <-p.executorDone:
				log.Println("ERROR: decoder: executor gone, shutting down")
				close(p.decoderDone)
				return
			}
		}
	}
}

func (d *decoderThread) handle(cmd Command) {
	var err error
	switch cmd.Kind {
	case CommandSubmit:
		err = d.submit(cmd)
	case CommandStop:
		if cmd.OnlyJob != uuid.Nil && cmd.OnlyJob != d.id {
			break // stale abort for a job that is no longer current
		}
		wasStopped := d.job.Phase() == PhaseStopped
		d.job.Stop()
		d.dec.Reset()
		if !wasStopped && cmd.OnlyJob == uuid.Nil {
			d.p.emit(Event{Job: d.id, Phase: PhaseStopped})
		}
	case CommandPause:
		if err = d.job.Pause(); err == nil {
			d.p.emit(Event{Job: d.id, Phase: d.job.Phase()})
		}
	case CommandResume:
		if err = d.job.Resume(); err == nil {
			d.p.emit(Event{Job: d.id, Phase: d.job.Phase()})
		}
	}
	if cmd.Reply != nil {
		cmd.Reply <- err
	}
}

func (d *decoderThread) submit(cmd Command) error {
	if d.job.Phase() != PhaseStopped {
		return &InvalidTransitionError{Op: "start", Phase: d.job.Phase()}
	}

	// the whole job is decoded up front; see DecodeAll
	actions, err := d.dec.DecodeAll(gcode.NewParser(cmd.Source))
	if err != nil {
		d.dec.Reset()
		return err
	}
	if err := d.job.Start(actions); err != nil {
		return err
	}
	d.id = cmd.ID
	if d.job.IsPrinting() {
		d.p.emit(Event{Job: d.id, Phase: PhasePrinting})
	}
	return nil
}
