package print

import (
	"io"

	"github.com/google/uuid"
)

// Control wraps every message crossing a worker boundary so a shutdown
// signal can travel the same path as domain messages. Once a worker
// observes Quit it processes no further messages from that channel.
type Control[T any] struct {
	Quit bool
	Msg  T
}

func controlMsg[T any](v T) Control[T] { return Control[T]{Msg: v} }
func controlQuit[T any]() Control[T]   { return Control[T]{Quit: true} }

type CommandKind int

const (
	// CommandSubmit decodes the Source stream eagerly and starts the job.
	CommandSubmit CommandKind = iota
	// CommandStop clears the job and resets the decoder. Idempotent.
	CommandStop
	// CommandPause suspends dispatch after the in-flight action.
	CommandPause
	// CommandResume continues dispatch from the next undispatched action.
	CommandResume
)

// Command is one control message for the decoder worker.
type Command struct {
	Kind CommandKind

	// ID and Source describe the job for CommandSubmit.
	ID     uuid.UUID
	Source io.Reader

	// OnlyJob restricts a CommandStop to a specific job; the command is
	// ignored if another job is current by the time it arrives. Used by
	// the executor when aborting on a motor failure.
	OnlyJob uuid.UUID

	// Reply, when non-nil, receives the outcome of applying the
	// command. It must be buffered; the worker sends exactly one value
	// and never blocks on it.
	Reply chan<- error
}

// queued pairs an action with the job it belongs to, so the executor
// can discard stale actions after aborting a job.
type queued struct {
	action Action
	job    uuid.UUID
}

// Event reports a phase change or failure of the current job. Events
// are delivered best-effort: a slow consumer drops events rather than
// stalling the pipeline.
type Event struct {
	Job   uuid.UUID
	Phase Phase
	Err   error
}
