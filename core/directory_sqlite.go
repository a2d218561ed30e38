package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type SQLiteUserDirectory struct {
	db *sql.DB
}

func NewSQLiteUserDirectory(db *sql.DB) *SQLiteUserDirectory {
	return &SQLiteUserDirectory{db: db}
}

// CreateProfile inserts or replaces a user's directory record. Profile rows
// are normally written by the account service; the relay only reads them.
func (s *SQLiteUserDirectory) CreateProfile(ctx context.Context, profile Profile) error {
	query := `INSERT INTO users (email, name, image) VALUES (@email, @name, @image)
	          ON CONFLICT (email) DO UPDATE SET name = excluded.name, image = excluded.image`
	_, err := s.db.ExecContext(ctx, query,
		sql.Named("email", profile.Email), sql.Named("name", profile.Name),
		sql.Named("image", profile.Image))
	if err != nil {
		return fmt.Errorf("ExecContext(insert user): %w", err)
	}
	return nil
}

func (s *SQLiteUserDirectory) Lookup(ctx context.Context, identity string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT email, name, image FROM users WHERE email = @email LIMIT 1`,
		sql.Named("email", identity))

	profile := new(Profile)
	if err := row.Scan(&profile.Email, &profile.Name, &profile.Image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}
	return profile, nil
}

func (s *SQLiteUserDirectory) Contacts(ctx context.Context, owner string) ([]ContactEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email, name, image, found FROM contacts WHERE owner_email = @owner ORDER BY email ASC`,
		sql.Named("owner", owner))
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	var entries []ContactEntry
	for rows.Next() {
		var entry ContactEntry
		if err := rows.Scan(&entry.Email, &entry.Name, &entry.Image, &entry.Found); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return entries, nil
}

func (s *SQLiteUserDirectory) AddContact(ctx context.Context, owner string, entry ContactEntry) error {
	profile, err := s.Lookup(ctx, owner)
	if err != nil {
		return fmt.Errorf("Lookup: %w", err)
	}
	if profile == nil {
		return ErrUnknownUser
	}

	query := `INSERT INTO contacts (owner_email, email, name, image, found)
	          VALUES (@owner, @email, @name, @image, @found) ON CONFLICT DO NOTHING`
	_, err = s.db.ExecContext(ctx, query,
		sql.Named("owner", owner), sql.Named("email", entry.Email),
		sql.Named("name", entry.Name), sql.Named("image", entry.Image),
		sql.Named("found", entry.Found))
	if err != nil {
		return fmt.Errorf("ExecContext(insert contact): %w", err)
	}
	return nil
}
