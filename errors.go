// errors.go - error kinds for the terminal engine

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/vtyd

License: GPLv3 or later
*/

package main

import "fmt"

// EngineError carries the failed operation and enough context to log a
// useful diagnostic line; kinds are distinguished by the wrapper types
// below and checked with errors.As, never by string matching.
type EngineError struct {
	Operation string
	Details   string
	Err       error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Details)
}

func (e *EngineError) Unwrap() error { return e.Err }

// FatalError marks initialisation-fatal conditions: the loop must abort
// startup and unwind whatever has already been allocated.
type FatalError struct {
	*EngineError
}

func fatalf(op, details string, err error) *FatalError {
	return &FatalError{&EngineError{Operation: op, Details: details, Err: err}}
}

// PaneFatalError marks a pane-creation failure (pty or fork). The caller
// (tab init, split) treats this as a hard failure of its own operation;
// it never tears down the whole process.
type PaneFatalError struct {
	*EngineError
}

func paneFatalf(op, details string, err error) *PaneFatalError {
	return &PaneFatalError{&EngineError{Operation: op, Details: details, Err: err}}
}

// ProtocolError marks a malformed or unknown control-socket request.
// Logged at WARN and dropped; the server keeps running.
type ProtocolError struct {
	*EngineError
}

func protocolf(op, details string) *ProtocolError {
	return &ProtocolError{&EngineError{Operation: op, Details: details}}
}
