package model

import (
	"errors"
)

var (
	// ErrGateViolation is returned when an execution is attempted without a prior check-in
	ErrGateViolation = errors.New("source code not checked in")
	// ErrIOFault marks a failed read or write of the log sink
	ErrIOFault = errors.New("log sink i/o failure")
	// ErrInvalidInput marks a malformed platform or test type selection
	ErrInvalidInput = errors.New("invalid input")
)
