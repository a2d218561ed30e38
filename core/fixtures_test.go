package core

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

type BaseFixture struct {
	ctx      context.Context
	db       *SQLiteDB
	logger   *slog.Logger
	t        *testing.T
	tearDown func()
}

func NewBaseFixture(t *testing.T) *BaseFixture {
	ctx, cancel := context.WithCancel(context.Background())

	db, err := OpenSQLiteDB(":memory:", "../migrations", &SQLiteOptions{Cache: "shared"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	return &BaseFixture{
		ctx:    ctx,
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		t:      t,
		tearDown: func() {
			cancel()
			db.Close()
		},
	}
}

func seedProfiles(ctx context.Context, t *testing.T, directory *SQLiteUserDirectory, profiles ...Profile) {
	for _, p := range profiles {
		if err := directory.CreateProfile(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
}
