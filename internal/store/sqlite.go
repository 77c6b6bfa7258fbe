package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps profiles in a local SQLite database. It exists for
// development and self-hosted setups that have no Supabase project.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	phone               TEXT NOT NULL,
	resume_url          TEXT NOT NULL DEFAULT '',
	resume_text         TEXT NOT NULL DEFAULT '',
	category            TEXT NOT NULL DEFAULT '',
	has_resume          INTEGER NOT NULL DEFAULT 0,
	connection_requests TEXT NOT NULL DEFAULT '[]',
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL
);
`

const userColumns = "id, name, phone, resume_url, resume_text, category, has_resume, connection_requests, created_at, updated_at"

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %q: %w", path, err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating users table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, name, phone string) (*User, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	user := &User{
		ID:        uuid.NewString(),
		Name:      name,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, phone, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Phone, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id,
	)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (s *SQLiteStore) UpdateResume(ctx context.Context, id, url, text, category string) (*User, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET resume_url = ?, resume_text = ?, category = ?, has_resume = 1, updated_at = ? WHERE id = ?",
		url, text, category, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update resume: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update resume: %w", err)
	}
	if affected == 0 {
		return nil, ErrUserNotFound
	}

	return s.GetUser(ctx, id)
}

func (s *SQLiteStore) ListAll(ctx context.Context) (*Users, error) {
	return s.list(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at ASC, id ASC")
}

func (s *SQLiteStore) ListByCategory(ctx context.Context, category string) (*Users, error) {
	return s.list(ctx,
		"SELECT "+userColumns+" FROM users WHERE category = ? ORDER BY created_at ASC, id ASC",
		category,
	)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) (*Users, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := &Users{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users.Items = append(users.Items, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		user     User
		requests string
	)

	err := row.Scan(
		&user.ID, &user.Name, &user.Phone,
		&user.ResumeURL, &user.ResumeText, &user.Category,
		&user.HasResume, &requests,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if requests != "" {
		if err := json.Unmarshal([]byte(requests), &user.ConnectionRequests); err != nil {
			return nil, fmt.Errorf("decode connection requests: %w", err)
		}
	}

	return &user, nil
}
