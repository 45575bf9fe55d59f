package persist

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNoSnapshot = errors.New("no snapshot")

// Snapshots stores the latest saved document per board in sqlite.
type Snapshots struct {
	database *sql.DB
}

func OpenSnapshots(path string) (*Snapshots, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Snapshots{database: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Snapshots) init() error {
	if _, err := s.database.Exec(
		`CREATE TABLE IF NOT EXISTS boards (
		id text not null primary key,
		content text not null
		)`,
	); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	slog.Info("Ensured initial tables exist")
	return nil
}

func (s *Snapshots) Close() error {
	return s.database.Close()
}

// Put stores content for the board and reports whether anything changed.
func (s *Snapshots) Put(ctx context.Context, id string, content []byte) (bool, error) {
	encoded := base64.StdEncoding.EncodeToString(content)
	res, err := s.database.ExecContext(
		ctx,
		`INSERT INTO boards (id, content) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content WHERE boards.content != excluded.content`,
		id, encoded,
	)
	if err != nil {
		return false, fmt.Errorf("failed to persist %s: %w", id, err)
	}
	r, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count rows affected: %w", err)
	}
	return r > 0, nil
}

func (s *Snapshots) Get(ctx context.Context, id string) ([]byte, error) {
	var raw string
	if err := s.database.QueryRowContext(ctx, `SELECT content FROM boards WHERE id = ?`, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, id)
		}
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	out, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	return out, nil
}

// All returns every stored board keyed by id.
func (s *Snapshots) All(ctx context.Context) (map[string][]byte, error) {
	res, err := s.database.QueryContext(ctx, `SELECT id, content FROM boards`)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer func(res *sql.Rows) {
		if err := res.Close(); err != nil {
			slog.Error("failed to close rows", "err", err)
		}
	}(res)
	out := make(map[string][]byte)
	for res.Next() {
		var id, raw string
		if err := res.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		content, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", id, err)
		}
		out[id] = content
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate: %w", err)
	}
	return out, nil
}
