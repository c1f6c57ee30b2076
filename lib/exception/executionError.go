package exception

import "strings"

// ProgramError means the submitted code ran but wrote to stderr: a normal,
// user-facing outcome. Stderr holds the full captured stream.
type ProgramError struct {
	*AppError
	Stderr string
}

func NewProgramError(stderr string) *ProgramError {
	return &ProgramError{
		AppError: &AppError{
			Code:    "PROGRAM_ERROR",
			Message: FirstLine(stderr),
		},
		Stderr: stderr,
	}
}

// FirstLine returns the first line of a stderr stream, used as the short
// human-readable form of a program failure.
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// ProcessError means the interpreter process could not be spawned or died
// outside normal termination. An infrastructure fault, not a program fault.
type ProcessError struct {
	*AppError
}

func NewProcessError(message string, cause error) *ProcessError {
	return &ProcessError{
		AppError: &AppError{
			Code:    "PROCESS_ERROR",
			Message: message,
			Cause:   cause,
		},
	}
}
