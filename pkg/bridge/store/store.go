// Package store persists a durable log of placed calls in Postgres. The
// service runs fine without it; when DATABASE_URL is unset the nil *Store is
// a no-op.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store writes call log rows through a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres, applies pending migrations, and returns the
// store.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if err := migrate(databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool. Safe on a nil receiver.
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.pool.Close()
}

// PlacedCall is one call-log row at placement time.
type PlacedCall struct {
	Token     string
	CallSID   string
	ToNumber  string
	Sender    string
	Recipient string
	VoiceID   string
}

// RecordPlaced inserts a row for a freshly placed call. A nil receiver is a
// no-op so callers need not branch on whether persistence is configured.
func (s *Store) RecordPlaced(ctx context.Context, call PlacedCall) error {
	if s == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO call_log (token, call_sid, to_number, sender, recipient, voice_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		call.Token, call.CallSID, call.ToNumber, call.Sender, call.Recipient, call.VoiceID)
	if err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}
	return nil
}

// UpdateStatus records a status transition reported by the telephony
// provider. A nil receiver is a no-op.
func (s *Store) UpdateStatus(ctx context.Context, callSID, status string) error {
	if s == nil || callSID == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE call_log SET status = $2, updated_at = now() WHERE call_sid = $1`,
		callSID, status)
	if err != nil {
		return fmt.Errorf("update call status: %w", err)
	}
	return nil
}
