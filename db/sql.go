package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SQLDB keeps the store contract in two tables so deployments without
// Redis can run on Postgres or SQLite.
type SQLDB struct {
	db      *sql.DB
	numeric bool // $1 placeholders instead of ?
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS kv (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS set_members (
		set_name TEXT NOT NULL,
		member TEXT NOT NULL,
		PRIMARY KEY (set_name, member)
	)`,
}

// Init creates the tables if needed
func (s *SQLDB) Init(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (s *SQLDB) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity
func (s *SQLDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLDB) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM kv WHERE name = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", keyNotFound(key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

func (s *SQLDB) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO kv (name, value) VALUES (?, ?)
	          ON CONFLICT (name) DO UPDATE SET value = excluded.value`

	if _, err := s.db.ExecContext(ctx, s.rebind(query), key, value); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (s *SQLDB) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO set_members (set_name, member) VALUES (?, ?)
	                                              ON CONFLICT (set_name, member) DO NOTHING`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, member := range members {
		if _, err := stmt.ExecContext(ctx, key, member); err != nil {
			return fmt.Errorf("failed to add set member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLDB) SMembers(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT member FROM set_members WHERE set_name = ?`), key)
	if err != nil {
		return nil, fmt.Errorf("failed to query set members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan set member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return members, nil
}

func (s *SQLDB) SCard(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM set_members WHERE set_name = ?`), key).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count set members: %w", err)
	}
	return count, nil
}

// rebind rewrites ? placeholders to $n for Postgres
func (s *SQLDB) rebind(query string) string {
	if !s.numeric {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
