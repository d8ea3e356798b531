package controller

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidTransition is returned when a control signal is not allowed in
// the current state, e.g. start after the source was exhausted.
var ErrInvalidTransition = errors.New("invalid state transition")

// RunState is the lifecycle state of a processing run.
type RunState int

const (
	// Idle has no active run; the model is empty and the source rewound.
	Idle RunState = iota
	// Running is consuming frames.
	Running
	// Stopped is paused; the model and source position are kept.
	Stopped
	// Completed means the source was exhausted or failed.
	Completed
)

func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// Signal is an input to the run state machine.
type Signal int

const (
	// SignalStart begins or resumes a run.
	SignalStart Signal = iota
	// SignalStop pauses a running run.
	SignalStop
	// SignalReset discards the model and rewinds the source.
	SignalReset
	// SignalFinish is raised by the loop when the source is exhausted or fails.
	SignalFinish
)

func (s Signal) String() string {
	switch s {
	case SignalStart:
		return "start"
	case SignalStop:
		return "stop"
	case SignalReset:
		return "reset"
	case SignalFinish:
		return "finish"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

// Transition returns the state reached from s on sig.
//
//	Idle      --start-->  Running
//	Stopped   --start-->  Running   (resume)
//	Completed --start-->  Running   (restart from the first frame)
//	Running   --stop--->  Stopped
//	Running   --finish->  Completed
//	any       --reset-->  Idle
//
// Every other pair returns ErrInvalidTransition and leaves s unchanged.
func Transition(s RunState, sig Signal) (RunState, error) {
	switch sig {
	case SignalReset:
		return Idle, nil
	case SignalStart:
		if s != Running {
			return Running, nil
		}
	case SignalStop:
		if s == Running {
			return Stopped, nil
		}
	case SignalFinish:
		if s == Running {
			return Completed, nil
		}
	}
	return s, errors.Wrapf(ErrInvalidTransition, "%s in state %s", sig, s)
}
