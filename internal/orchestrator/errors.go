package orchestrator

import (
	"errors"
	"fmt"
)

// ErrEngineClosed is returned by Orchestrate after Close.
var ErrEngineClosed = errors.New("orchestration engine is closed")

// ValidationError reports an unmet mode precondition, raised before any
// network I/O.
type ValidationError struct {
	Mode   Mode
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s mode: %s", e.Mode, e.Reason)
}

// UnregisteredModeError reports a mode name with no registered algorithm.
type UnregisteredModeError struct {
	Mode Mode
}

func (e *UnregisteredModeError) Error() string {
	return fmt.Sprintf("mode %s not registered", e.Mode)
}
