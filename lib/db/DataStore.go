package db

import (
	session2 "github.com/codepair/codepair/lib/models/session"
)

type SessionMethods interface {
	// CreateSession creates an empty session. Owner may be nil, sessions can
	// be anonymous.
	CreateSession(owner *string) (*session2.Session, error)
	GetSession(sessionID string) (*session2.Session, error)
	// AppendVersion adds one snapshot to the end of the session's version
	// history and advances its updatedAt timestamp.
	AppendVersion(sessionID string, snapshot string) (*session2.Session, error)
}

type DataStore interface {
	SessionMethods
	Close() error
}
