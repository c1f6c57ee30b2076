package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/codepair/codepair/lib/db/migrations"
	"github.com/codepair/codepair/lib/exception"
	session2 "github.com/codepair/codepair/lib/models/session"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

type PostgresOptions struct {
	Username string
	Password string
	Host     string
	Database string
	Port     int
}

type PostgresDB struct {
	sqlDB *sql.DB
}

func NewPostgresDB(options PostgresOptions) (DataStore, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		options.Username, options.Password, options.Host, options.Port, options.Database)

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, exception.NewDatabaseError("error opening postgres database", err)
	}

	manager := migrations.NewMigrationManager(sqlDB, migrations.DialectPostgres)
	if err := manager.Run(); err != nil {
		return nil, exception.NewDatabaseError("error running migrations", err)
	}

	return &PostgresDB{sqlDB: sqlDB}, nil
}

func (d *PostgresDB) CreateSession(owner *string) (*session2.Session, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	resultedSQL, args, err := sq.
		Insert("collab_session").
		Columns("id", "owner", "versions", "created_at", "updated_at").
		Values(id, owner, "[]", now, now).
		PlaceholderFormat(sq.Dollar).
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

func (d *PostgresDB) GetSession(sessionID string) (*session2.Session, error) {
	query, args := sessionSelect(sessionID, sq.Dollar)
	return scanSession(d.sqlDB.QueryRow(query, args...), sessionID)
}

func (d *PostgresDB) AppendVersion(sessionID string, snapshot string) (*session2.Session, error) {
	tx, err := d.sqlDB.Begin()
	if err != nil {
		return nil, exception.NewDatabaseError("error starting transaction", err)
	}
	defer tx.Rollback()

	query, args := sessionSelect(sessionID, sq.Dollar)
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
		PlaceholderFormat(sq.Dollar).
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

func (d *PostgresDB) Close() error {
	return d.sqlDB.Close()
}
