package print

// Phase is the lifecycle state of a print job.
type Phase int

const (
	PhaseStopped Phase = iota
	PhasePrinting
	PhasePaused
)

func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"
	case PhasePrinting:
		return "printing"
	case PhasePaused:
		return "paused"
	}
	return "unknown"
}

// Job is the print-job state machine. The pending action queue exists
// exactly while the phase is Printing or Paused. A Job is owned by a
// single decoder worker and is not safe for concurrent use.
type Job struct {
	phase   Phase
	pending []Action
}

func NewJob() *Job {
	return &Job{phase: PhaseStopped}
}

func (j *Job) Phase() Phase     { return j.phase }
func (j *Job) IsPrinting() bool { return j.phase == PhasePrinting }

// Remaining reports how many actions have not been dequeued yet.
func (j *Job) Remaining() int { return len(j.pending) }

// Start installs the queue and begins printing. Valid only while
// Stopped. A job that decodes to zero actions is complete on arrival
// and leaves the machine Stopped.
func (j *Job) Start(actions []Action) error {
	if j.phase != PhaseStopped {
		return &InvalidTransitionError{Op: "start", Phase: j.phase}
	}
	if len(actions) == 0 {
		return nil
	}
	j.phase = PhasePrinting
	j.pending = actions
	return nil
}

// Stop clears the job from any phase. Idempotent.
func (j *Job) Stop() {
	j.phase = PhaseStopped
	j.pending = nil
}

// Pause suspends printing. A no-op if already paused.
func (j *Job) Pause() error {
	switch j.phase {
	case PhasePrinting:
		j.phase = PhasePaused
	case PhasePaused:
	case PhaseStopped:
		return &InvalidTransitionError{Op: "pause", Phase: j.phase}
	}
	return nil
}

// Resume continues a paused job. A no-op if already printing.
func (j *Job) Resume() error {
	switch j.phase {
	case PhasePrinting:
	case PhasePaused:
		j.phase = PhasePrinting
	case PhaseStopped:
		return &InvalidTransitionError{Op: "resume", Phase: j.phase}
	}
	return nil
}

// Peek returns the next action without removing it.
func (j *Job) Peek() (Action, error) {
	if j.phase == PhaseStopped {
		return Action{}, &InvalidTransitionError{Op: "peek", Phase: j.phase}
	}
	return j.pending[0], nil
}

// Next removes and returns the head of the queue. Draining the last
// action completes the job: the machine transitions back to Stopped.
func (j *Job) Next() (Action, error) {
	if j.phase == PhaseStopped {
		return Action{}, &InvalidTransitionError{Op: "dequeue", Phase: j.phase}
	}
	a := j.pending[0]
	j.pending = j.pending[1:]
	if len(j.pending) == 0 {
		j.Stop()
	}
	return a, nil
}
