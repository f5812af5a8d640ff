package uci

import (
	"errors"
	"fmt"
)

var (
	ErrClosed       = errors.New("uci: session closed")
	ErrNotIdle      = errors.New("uci: session is not idle")
	ErrBusy         = errors.New("uci: search already in progress")
	ErrNoPosition   = errors.New("uci: no position set since the last search")
	ErrNotSearching = errors.New("uci: no search in progress")
	ErrStopTimeout  = errors.New("uci: engine did not answer stop")
)

// EngineLaunchError reports an engine that could not be started or that
// failed its identification handshake.
type EngineLaunchError struct {
	Path string
	Err  error
}

func (e *EngineLaunchError) Error() string {
	return fmt.Sprintf("uci: launch %s: %v", e.Path, e.Err)
}

func (e *EngineLaunchError) Unwrap() error { return e.Err }

// EngineProtocolError reports a crash, a timeout or output the session
// could not make sense of. Line is the offending output, if any.
type EngineProtocolError struct {
	Op   string
	Line string
	Err  error
}

func (e *EngineProtocolError) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("uci: %s: %v (line %q)", e.Op, e.Err, e.Line)
	}
	return fmt.Sprintf("uci: %s: %v", e.Op, e.Err)
}

func (e *EngineProtocolError) Unwrap() error { return e.Err }
