package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eyedraw/eyedraw/internal/typeid"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = typeid.NewUserID()
	}
	err := p.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, u.ID, u.Email, u.PasswordHash, u.DisplayName).Scan(&u.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*User, error) {
	return p.user(ctx, `SELECT id, email, password, display_name, created_at FROM users WHERE email = $1`, email)
}

func (p *Postgres) UserByID(ctx context.Context, id string) (*User, error) {
	return p.user(ctx, `SELECT id, email, password, display_name, created_at FROM users WHERE id = $1`, id)
}

func (p *Postgres) user(ctx context.Context, query, arg string) (*User, error) {
	var u User
	err := p.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) SaveSnapshot(ctx context.Context, s *Snapshot) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var latest int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM snapshots WHERE page_id = $1 AND drawing = $2
	`, s.PageID, s.Drawing).Scan(&latest)
	if err != nil {
		return fmt.Errorf("latest version: %w", err)
	}

	s.ID = typeid.NewSnapshotID()
	s.Version = latest + 1
	err = tx.QueryRow(ctx, `
		INSERT INTO snapshots (id, page_id, drawing, version, data, report)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, s.PageID, s.Drawing, s.Version, s.Data, s.Report).Scan(&s.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("save snapshot %s/%s v%d: %w", s.PageID, s.Drawing, s.Version, ErrDuplicate)
		}
		return fmt.Errorf("save snapshot: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *Postgres) LatestSnapshot(ctx context.Context, pageID, drawing string) (*Snapshot, error) {
	var s Snapshot
	err := p.pool.QueryRow(ctx, `
		SELECT id, page_id, drawing, version, data, report, created_at
		FROM snapshots
		WHERE page_id = $1 AND drawing = $2
		ORDER BY version DESC
		LIMIT 1
	`, pageID, drawing).Scan(&s.ID, &s.PageID, &s.Drawing, &s.Version, &s.Data, &s.Report, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return &s, nil
}

func (p *Postgres) ListSnapshots(ctx context.Context, pageID string) ([]Snapshot, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT DISTINCT ON (drawing) id, page_id, drawing, version, data, report, created_at
		FROM snapshots
		WHERE page_id = $1
		ORDER BY drawing, version DESC
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.PageID, &s.Drawing, &s.Version, &s.Data, &s.Report, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*Postgres)(nil)
