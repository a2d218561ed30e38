package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SQLiteMessageStore struct {
	db *sql.DB
}

func NewSQLiteMessageStore(db *sql.DB) *SQLiteMessageStore {
	return &SQLiteMessageStore{db: db}
}

func (s *SQLiteMessageStore) Append(ctx context.Context, roomID, sender, text, file string) (*Message, error) {
	msg := &Message{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		Sender:    sender,
		Text:      text,
		File:      file,
		CreatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO messages (id, room_id, sender, text, file, created_at)
	          VALUES (@id, @room_id, @sender, @text, @file, @created_at)`
	_, err := s.db.ExecContext(ctx, query,
		sql.Named("id", msg.ID), sql.Named("room_id", msg.RoomID),
		sql.Named("sender", msg.Sender), sql.Named("text", msg.Text),
		sql.Named("file", msg.File), sql.Named("created_at", msg.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("ExecContext(insert message): %w", err)
	}

	return msg, nil
}

func (s *SQLiteMessageStore) ListByRoom(ctx context.Context, roomID string) ([]Message, error) {
	// rowid breaks created_at ties so messages appended within the same
	// clock tick keep their insertion order.
	query := `SELECT id, room_id, sender, text, file, created_at FROM messages
	          WHERE room_id = @room_id ORDER BY created_at ASC, rowid ASC`
	rows, err := s.db.QueryContext(ctx, query, sql.Named("room_id", roomID))
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.Sender, &msg.Text, &msg.File, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return messages, nil
}
