package print

import (
	"log"

	"github.com/google/uuid"
	"github.com/printforge/printd/gcode"
	"github.com/printforge/printd/motor"
)

// executorLoop drives the motor subsystem one action at a time: send a
// command, block for its completion, only then accept the next action.
// An action already accepted here runs to completion even if the job is
// stopped concurrently; Stop only prevents further actions from being
// dispatched by the decoder.
func (p *Pipeline) executorLoop(actions <-chan Control[queued], cmds chan<- motor.Command, results <-chan error) {
	defer close(p.executorDone)

	var aborted uuid.UUID
	for {
		env, ok := <-actions
		if !ok {
			log.Println("ERROR: executor: action channel closed without shutdown")
			p.emit(Event{Err: ErrChannelClosed})
			return
		}
		if env.Quit {
			return
		}
		select {
		case <-p.decoderDone:
			// shutdown already signalled; whatever is still buffered
			// ahead of the Quit envelope is discarded, not executed
			continue
		default:
		}
		q := env.Msg
		if aborted != uuid.Nil && q.job == aborted {
			// stale action of a job that failed on the motor
			continue
		}

		err := execOne(cmds, results, q.action)
		if err == nil {
			continue
		}
		if err == ErrChannelClosed {
			log.Println("ERROR: executor: motor subsystem gone")
			p.emit(Event{Job: q.job, Err: ErrChannelClosed})
			return
		}

		// Motor failure: report it and force the job to stop. The
		// decoder is always ready to receive control messages, so this
		// cannot deadlock; it can only miss if the decoder already exited.
		log.Println("ERROR: executor:", err)
		aborted = q.job
		p.emit(Event{Job: q.job, Phase: PhaseStopped, Err: err})
		select {
		case p.ctrl <- controlMsg(Command{Kind: CommandStop, OnlyJob: q.job}):
		case <-p.decoderDone:
			return
		}
	}
}

// execOne forwards a single action to the motor subsystem and waits
// for its completion. At most one command is ever in flight.
func execOne(cmds chan<- motor.Command, results <-chan error, a Action) error {
	select {
	case cmds <- motor.Command{Block: actionBlock(a)}:
	case _, ok := <-results:
		if !ok {
			return ErrChannelClosed
		}
		return &MotorError{Action: a, Err: errUnexpectedResult}
	}

	res, ok := <-results
	if !ok {
		return ErrChannelClosed
	}
	if res != nil {
		return &MotorError{Action: a, Err: res}
	}
	return nil
}

// actionBlock translates an action into the firmware instruction the
// motor subsystem executes.
func actionBlock(a Action) gcode.Block {
	switch a.Kind {
	case ActionMove:
		b := gcode.Block{{W: 'G', Arg: 1},
			{W: 'X', Arg: a.Target.X},
			{W: 'Y', Arg: a.Target.Y},
			{W: 'Z', Arg: a.Target.Z},
			{W: 'E', Arg: a.E},
		}
		if a.Feed > 0 {
			b = append(b, gcode.Word{W: 'F', Arg: a.Feed})
		}
		return b
	case ActionDwell:
		return gcode.Block{{W: 'G', Arg: 4}, {W: 'P', Arg: float64(a.Duration.Milliseconds())}}
	case ActionHotendTemp:
		code := 104.0
		if a.Wait {
			code = 109
		}
		return gcode.Block{{W: 'M', Arg: code}, {W: 'S', Arg: a.Value}}
	case ActionBedTemp:
		code := 140.0
		if a.Wait {
			code = 190
		}
		return gcode.Block{{W: 'M', Arg: code}, {W: 'S', Arg: a.Value}}
	case ActionFanSpeed:
		if a.Value == 0 {
			return gcode.Block{{W: 'M', Arg: 107}}
		}
		return gcode.Block{{W: 'M', Arg: 106}, {W: 'S', Arg: a.Value}}
	case ActionHome:
		b := gcode.Block{{W: 'G', Arg: 28}}
		if a.Axes != AxisX|AxisY|AxisZ {
			if a.Axes&AxisX != 0 {
				b = append(b, gcode.Word{W: 'X'})
			}
			if a.Axes&AxisY != 0 {
				b = append(b, gcode.Word{W: 'Y'})
			}
			if a.Axes&AxisZ != 0 {
				b = append(b, gcode.Word{W: 'Z'})
			}
		}
		return b
	}
	return nil
}
