package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"halfandhalf/internal/domain/post"
)

// Store keeps node-local copies of expired posts so their owners can
// repost them. Rows are keyed by (owner, post) and never shared across
// users.
type Store struct {
	db *sql.DB
}

// Open creates or opens the archive database at the given path and
// runs migrations. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive db %s: %w", path, err)
	}

	// WAL can fail on some filesystems; fall back to the default
	// journal mode rather than refusing to start.
	_, _ = db.Exec("PRAGMA journal_mode=WAL")

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive db: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for i, m := range migrations {
		version := i + 1
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if count > 0 {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", version, m.name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}
	return nil
}

var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "archived posts",
		sql: `
			CREATE TABLE archived_posts (
				owner_id    TEXT NOT NULL,
				post_id     TEXT NOT NULL,
				store       TEXT NOT NULL,
				item        TEXT NOT NULL,
				date        TEXT NOT NULL DEFAULT '',
				start_time  TEXT NOT NULL DEFAULT '',
				end_time    TEXT NOT NULL DEFAULT '',
				owner_email TEXT NOT NULL DEFAULT '',
				expired_at  INTEGER NOT NULL,
				PRIMARY KEY (owner_id, post_id)
			)
		`,
	},
}

// Archive stores an expired post for its owner. Archiving the same
// post id twice leaves exactly one row.
func (s *Store) Archive(ctx context.Context, a post.Archived) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO archived_posts
			(owner_id, post_id, store, item, date, start_time, end_time, owner_email, expired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.OwnerID, a.PostID, a.Store, a.Item, a.Date, a.StartTime, a.EndTime, a.OwnerEmail, a.ExpiredAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("archive post %s: %w", a.PostID, err)
	}
	return nil
}

// List returns a user's archived posts, most recently expired first.
func (s *Store) List(ctx context.Context, ownerID string) ([]post.Archived, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, store, item, date, start_time, end_time, owner_email, expired_at
		FROM archived_posts
		WHERE owner_id = ?
		ORDER BY expired_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list archive for %s: %w", ownerID, err)
	}
	defer rows.Close()

	var out []post.Archived
	for rows.Next() {
		a := post.Archived{OwnerID: ownerID}
		var expiredAt int64
		if err := rows.Scan(&a.PostID, &a.Store, &a.Item, &a.Date, &a.StartTime, &a.EndTime, &a.OwnerEmail, &expiredAt); err != nil {
			return nil, err
		}
		a.ExpiredAt = time.UnixMilli(expiredAt).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get returns one archive entry or post.ErrNotFound.
func (s *Store) Get(ctx context.Context, ownerID, postID string) (post.Archived, error) {
	a := post.Archived{OwnerID: ownerID}
	var expiredAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT post_id, store, item, date, start_time, end_time, owner_email, expired_at
		FROM archived_posts
		WHERE owner_id = ? AND post_id = ?
	`, ownerID, postID).Scan(&a.PostID, &a.Store, &a.Item, &a.Date, &a.StartTime, &a.EndTime, &a.OwnerEmail, &expiredAt)
	if err == sql.ErrNoRows {
		return post.Archived{}, post.ErrNotFound
	}
	if err != nil {
		return post.Archived{}, fmt.Errorf("get archive %s/%s: %w", ownerID, postID, err)
	}
	a.ExpiredAt = time.UnixMilli(expiredAt).UTC()
	return a, nil
}

// Remove deletes an entry; removing an absent entry is a no-op.
func (s *Store) Remove(ctx context.Context, ownerID, postID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM archived_posts WHERE owner_id = ? AND post_id = ?
	`, ownerID, postID)
	if err != nil {
		return fmt.Errorf("remove archive %s/%s: %w", ownerID, postID, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
