package db

import (
	"sync"
	"time"

	"github.com/codepair/codepair/lib/exception"
	session2 "github.com/codepair/codepair/lib/models/session"
	"github.com/google/uuid"
)

// MemoryDataStore keeps sessions in a map. Data is lost on restart; used for
// tests and the memory DB type.
type MemoryDataStore struct {
	mu           sync.RWMutex
	sessionStore map[string]session2.Session
}

func NewMemoryDataStore() *MemoryDataStore {
	return &MemoryDataStore{
		sessionStore: make(map[string]session2.Session),
	}
}

func (m *MemoryDataStore) CreateSession(owner *string) (*session2.Session, error) {
	now := time.Now().UTC()
	created := session2.Session{
		ID:        uuid.NewString(),
		Owner:     owner,
		Versions:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.sessionStore[created.ID] = created
	m.mu.Unlock()

	copied := created
	return &copied, nil
}

func (m *MemoryDataStore) GetSession(sessionID string) (*session2.Session, error) {
	m.mu.RLock()
	retrieved, ok := m.sessionStore[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, exception.NewSessionNotFoundError(sessionID)
	}

	retrieved.Versions = append([]string{}, retrieved.Versions...)
	return &retrieved, nil
}

func (m *MemoryDataStore) AppendVersion(sessionID string, snapshot string) (*session2.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	retrieved, ok := m.sessionStore[sessionID]
	if !ok {
		return nil, exception.NewSessionNotFoundError(sessionID)
	}

	retrieved.Versions = append(append([]string{}, retrieved.Versions...), snapshot)
	retrieved.UpdatedAt = time.Now().UTC()
	m.sessionStore[sessionID] = retrieved

	copied := retrieved
	return &copied, nil
}

func (m *MemoryDataStore) Close() error {
	return nil
}
