// Package store persists users and drawing snapshots. Postgres is used when
// a DSN is configured, an on-disk SQLite database otherwise.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eyedraw/eyedraw/internal/config"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// Snapshot is one saved state of a drawing on a page. Versions count up
// from 1 per page and drawing.
type Snapshot struct {
	ID        string    `json:"id" msgpack:"id"`
	PageID    string    `json:"pageId" msgpack:"pageId"`
	Drawing   string    `json:"drawing" msgpack:"drawing"`
	Version   int       `json:"version" msgpack:"version"`
	Data      []byte    `json:"-" msgpack:"-"`
	Report    string    `json:"report" msgpack:"report"`
	CreatedAt time.Time `json:"createdAt" msgpack:"createdAt"`
}

type Store interface {
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)

	// SaveSnapshot assigns the snapshot's ID, Version and CreatedAt.
	SaveSnapshot(ctx context.Context, s *Snapshot) error
	LatestSnapshot(ctx context.Context, pageID, drawing string) (*Snapshot, error)
	// ListSnapshots returns the latest snapshot of every drawing on a page,
	// ordered by drawing name.
	ListSnapshots(ctx context.Context, pageID string) ([]Snapshot, error)

	Close() error
}

// Open connects to the database named by cfg and applies the schema.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.UsePostgres() {
		slog.Info("using postgres store")
		return NewPostgres(ctx, cfg.DatabaseURL)
	}
	slog.Info("using sqlite store", "path", cfg.SQLitePath)
	return NewSQLite(ctx, cfg.SQLitePath)
}
