package exception

import "fmt"

type SessionNotFoundError struct {
	*AppError
	SessionID string
}

func NewSessionNotFoundError(sessionID string) *SessionNotFoundError {
	return &SessionNotFoundError{
		AppError: &AppError{
			Code:    "SESSION_NOT_FOUND",
			Message: fmt.Sprintf("session with id '%s' does not exist", sessionID),
		},
		SessionID: sessionID,
	}
}
