package migrations

import (
	"database/sql"
)

// GetMigrations returns all available migrations
func GetMigrations() []Migration {
	return []Migration{
		migration001InitialSchema(),
	}
}

// migration001InitialSchema creates the collaborative session table
func migration001InitialSchema() Migration {
	return Migration{
		Version:     1,
		Description: "Initial schema - collaborative sessions",
		Up: func(db *sql.DB, dialect Dialect) error {
			var queries []string

			switch dialect {
			case DialectPostgres:
				queries = getPostgresInitialSchema()
			default:
				queries = getSQLiteInitialSchema()
			}

			for _, query := range queries {
				if _, err := db.Exec(query); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func getSQLiteInitialSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS collab_session (
			id TEXT PRIMARY KEY,
			owner TEXT,
			versions TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
}

func getPostgresInitialSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS collab_session (
			id TEXT PRIMARY KEY,
			owner TEXT,
			versions TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
	}
}
