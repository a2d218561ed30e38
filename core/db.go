package core

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

// SQLiteOptions select the connection mode of the underlying sqlite file.
type SQLiteOptions struct {
	// Mode can be ro | rw | rwc | memory.
	Mode string
	// Cache can be shared | private.
	Cache string
	// JournalMode can be DELETE | TRUNCATE | PERSIST | MEMORY | WAL | OFF.
	JournalMode string
}

func (o *SQLiteOptions) dsn(file string) string {
	var sb strings.Builder
	sb.WriteString("file:")
	sb.WriteString(file)
	if o == nil {
		return sb.String()
	}
	sep := "?"
	for _, kv := range [][2]string{
		{"mode", o.Mode},
		{"cache", o.Cache},
		{"journal_mode", o.JournalMode},
	} {
		if kv[1] == "" {
			continue
		}
		sb.WriteString(sep)
		sb.WriteString(kv[0])
		sb.WriteString("=")
		sb.WriteString(kv[1])
		sep = "&"
	}
	return sb.String()
}

// SQLiteDB wraps the shared database handle together with the location of its
// goose migrations.
type SQLiteDB struct {
	*sql.DB
	migrationDir string
}

func OpenSQLiteDB(file, migrationDir string, options *SQLiteOptions) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", options.dsn(file))
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	return &SQLiteDB{DB: db, migrationDir: migrationDir}, nil
}

// Migrate applies all pending goose migrations.
func (db *SQLiteDB) Migrate() error {
	goose.SetBaseFS(os.DirFS(db.migrationDir))
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose.SetDialect: %w", err)
	}
	if err := goose.Up(db.DB, "."); err != nil {
		return fmt.Errorf("goose.Up: %w", err)
	}
	return nil
}
