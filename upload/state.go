package upload

import "fmt"

type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseReady
	PhaseInProgress
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReady:
		return "ready"
	case PhaseInProgress:
		return "in_progress"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Terminal reports whether the phase ends an attempt.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// State is one observable state of the controller.
// Only the payload that belongs to the phase is ever set, so a State can not
// be in progress and carry a result at the same time.
type State struct {
	phase    Phase
	attempt  uint64
	percent  int
	filePath string
	err      *Error
}

func idleState(attempt uint64) State {
	return State{phase: PhaseIdle, attempt: attempt}
}

func readyState(attempt uint64) State {
	return State{phase: PhaseReady, attempt: attempt}
}

func inProgressState(attempt uint64, percent int) State {
	return State{phase: PhaseInProgress, attempt: attempt, percent: clampPercent(percent)}
}

func succeededState(attempt uint64, filePath string) State {
	return State{phase: PhaseSucceeded, attempt: attempt, filePath: filePath}
}

func failedState(attempt uint64, err *Error) State {
	return State{phase: PhaseFailed, attempt: attempt, err: err}
}

func (s State) Phase() Phase { return s.phase }

// Attempt is the sequence number of the attempt that produced the state.
func (s State) Attempt() uint64 { return s.attempt }

// Percent is the upload progress, only meaningful while in progress.
func (s State) Percent() int { return s.percent }

// FilePath is where the agent stored the file, set on success.
func (s State) FilePath() string { return s.filePath }

// Err is the failure cause, set when the phase is PhaseFailed.
func (s State) Err() *Error { return s.err }

func (s State) String() string {
	switch s.phase {
	case PhaseInProgress:
		return fmt.Sprintf("in_progress(%d%%)", s.percent)
	case PhaseSucceeded:
		return fmt.Sprintf("succeeded(%s)", s.filePath)
	case PhaseFailed:
		return fmt.Sprintf("failed(%s)", s.err)
	default:
		return s.phase.String()
	}
}

// percentOf returns floor(100*sent/total) clamped to [0,100].
// ok is false when the total is unknown.
func percentOf(sent, total int64) (percent int, ok bool) {
	if total <= 0 {
		return 0, false
	}
	if sent >= total {
		return 100, true
	}
	if sent <= 0 {
		return 0, true
	}
	return clampPercent(int(sent * 100 / total)), true
}

func clampPercent(p int) int {
	return max(0, min(p, 100))
}
