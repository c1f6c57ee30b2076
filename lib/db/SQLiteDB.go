package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/codepair/codepair/lib/db/migrations"
	"github.com/codepair/codepair/lib/exception"
	session2 "github.com/codepair/codepair/lib/models/session"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	path  string
	sqlDB *sql.DB
}

func NewSQLiteDB(path string) (DataStore, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, exception.NewDatabaseError("error opening sqlite database", err)
	}

	manager := migrations.NewMigrationManager(sqlDB, migrations.DialectSQLite)
	if err := manager.Run(); err != nil {
		return nil, exception.NewDatabaseError("error running migrations", err)
	}

	return &SQLiteDB{path: path, sqlDB: sqlDB}, nil
}

func (d *SQLiteDB) CreateSession(owner *string) (*session2.Session, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	resultedSQL, args, err := sq.
		Insert("collab_session").
		Columns("id", "owner", "versions", "created_at", "updated_at").
		Values(id, owner, "[]", now, now).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err = d.sqlDB.Exec(resultedSQL, args...); err != nil {
		return nil, exception.NewDatabaseError("error creating session", err)
	}

	return &session2.Session{
		ID:        id,
		Owner:     owner,
		Versions:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (d *SQLiteDB) GetSession(sessionID string) (*session2.Session, error) {
	query, args := sessionSelect(sessionID, sq.Question)
	return scanSession(d.sqlDB.QueryRow(query, args...), sessionID)
}

func (d *SQLiteDB) AppendVersion(sessionID string, snapshot string) (*session2.Session, error) {
	tx, err := d.sqlDB.Begin()
	if err != nil {
		return nil, exception.NewDatabaseError("error starting transaction", err)
	}
	defer tx.Rollback()

	query, args := sessionSelect(sessionID, sq.Question)
	retrieved, err := scanSession(tx.QueryRow(query, args...), sessionID)
	if err != nil {
		return nil, err
	}

	retrieved.Versions = append(retrieved.Versions, snapshot)
	retrieved.UpdatedAt = time.Now().UTC()

	versions, err := json.Marshal(retrieved.Versions)
	if err != nil {
		return nil, fmt.Errorf("error marshaling versions: %w", err)
	}

	resultedSQL, args, err := sq.
		Update("collab_session").
		Set("versions", string(versions)).
		Set("updated_at", retrieved.UpdatedAt).
		Where(sq.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err = tx.Exec(resultedSQL, args...); err != nil {
		return nil, exception.NewDatabaseError("error appending version", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, exception.NewDatabaseError("error committing append", err)
	}

	return retrieved, nil
}

func (d *SQLiteDB) Close() error {
	return d.sqlDB.Close()
}

func sessionSelect(sessionID string, placeholder sq.PlaceholderFormat) (string, []any) {
	resultedSQL, args, _ := sq.
		Select("id", "owner", "versions", "created_at", "updated_at").
		From("collab_session").
		Where(sq.Eq{"id": sessionID}).
		PlaceholderFormat(placeholder).
		ToSql()
	return resultedSQL, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner, sessionID string) (*session2.Session, error) {
	var retrieved session2.Session
	var owner sql.NullString
	var versions string
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(&retrieved.ID, &owner, &versions, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, exception.NewSessionNotFoundError(sessionID)
		}
		return nil, exception.NewDatabaseError("error retrieving session", err)
	}

	if owner.Valid {
		retrieved.Owner = &owner.String
	}
	if err := json.Unmarshal([]byte(versions), &retrieved.Versions); err != nil {
		return nil, fmt.Errorf("error unmarshaling versions: %w", err)
	}
	if retrieved.Versions == nil {
		retrieved.Versions = []string{}
	}
	if createdAt.Valid {
		retrieved.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		retrieved.UpdatedAt = updatedAt.Time
	}

	return &retrieved, nil
}
