package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	hosts        TEXT NOT NULL,
	port         INTEGER NOT NULL DEFAULT 3000,
	cluster_name TEXT NOT NULL DEFAULT '',
	color        TEXT NOT NULL DEFAULT '#0097D3',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
`

const selectColumns = `SELECT id, name, hosts, port, cluster_name, color, created_at, updated_at FROM profiles`

// Fixed-width UTC timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps profiles in a SQLite table.
type SQLiteStore struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database. It does not create the table.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return "conn-" + uuid.New().String() },
	}
}

// Migrate creates the profiles table if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate profile db: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create normalizes, validates and stores p under a new ID.
func (s *SQLiteStore) Create(ctx context.Context, p Profile) (Profile, error) {
	if p.ID == "" {
		p.ID = s.newID()
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt

	hosts, err := json.Marshal(p.Hosts)
	if err != nil {
		return Profile{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, hosts, port, cluster_name, color, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(hosts), p.Port, p.ClusterName, p.Color,
		p.CreatedAt.Format(timeLayout), p.UpdatedAt.Format(timeLayout))
	if err != nil {
		return Profile{}, fmt.Errorf("insert profile %s: %w", p.ID, err)
	}
	return p, nil
}

// Get returns the profile with id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return p, nil
}

// List returns every profile, oldest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("list profiles: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// Update applies mutate to the stored profile and saves the result. ID and
// CreatedAt cannot be changed.
func (s *SQLiteStore) Update(ctx context.Context, id string, mutate func(*Profile)) (Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("update profile %s: %w", id, err)
	}
	defer tx.Rollback()

	p, err := scanProfile(tx.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("update profile %s: %w", id, err)
	}

	created := p.CreatedAt
	mutate(&p)
	p.ID, p.CreatedAt = id, created
	p.Normalize()
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	p.UpdatedAt = s.now()

	hosts, err := json.Marshal(p.Hosts)
	if err != nil {
		return Profile{}, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE profiles SET name = ?, hosts = ?, port = ?, cluster_name = ?, color = ?, updated_at = ? WHERE id = ?`,
		p.Name, string(hosts), p.Port, p.ClusterName, p.Color, p.UpdatedAt.Format(timeLayout), id)
	if err != nil {
		return Profile{}, fmt.Errorf("update profile %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return Profile{}, fmt.Errorf("update profile %s: %w", id, err)
	}
	return p, nil
}

// Delete removes the profile with id, or returns ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// EnsureDefault seeds a default profile pointing at host when the table is
// empty. It reports whether a profile was created.
func (s *SQLiteStore) EnsureDefault(ctx context.Context, host string, port int) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return false, fmt.Errorf("count profiles: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	_, err := s.Create(ctx, Profile{
		ID:    DefaultID,
		Name:  DefaultName,
		Hosts: []string{host},
		Port:  port,
	})
	return err == nil, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (Profile, error) {
	var (
		p                Profile
		hosts            string
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.Name, &hosts, &p.Port, &p.ClusterName, &p.Color, &created, &updated); err != nil {
		return Profile{}, err
	}
	if err := json.Unmarshal([]byte(hosts), &p.Hosts); err != nil {
		return Profile{}, fmt.Errorf("decode hosts of %s: %w", p.ID, err)
	}
	var err error
	if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Profile{}, fmt.Errorf("decode created_at of %s: %w", p.ID, err)
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return Profile{}, fmt.Errorf("decode updated_at of %s: %w", p.ID, err)
	}
	return p, nil
}
