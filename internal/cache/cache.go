// Package cache keeps a local SQLite copy of room histories so a room can be
// drawn before the backend answers, or when it does not answer at all.
package cache

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/saravenpi/parley/internal/models"
)

// DefaultLimit is the number of most recent messages kept per room.
const DefaultLimit = 500

// Cache is a per-identity message history store keyed by room id.
type Cache struct {
	db    *sql.DB
	limit int
}

// Open opens or creates the cache database at path. ":memory:" gives a
// private in-memory cache.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, errors.Wrapf(err, "failed to create cache directory for %s", path)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open cache database")
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	c := &Cache{db: db, limit: DefaultLimit}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate cache database")
	}

	jww.DEBUG.Printf("Opened history cache at %s", path)
	return c, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			room_id TEXT NOT NULL,
			message_id INTEGER NOT NULL DEFAULT 0,
			sender TEXT NOT NULL,
			receiver TEXT NOT NULL,
			content TEXT NOT NULL,
			file_url TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_messages_room
			ON messages(owner, room_id, seq);
	`
	_, err := c.db.Exec(schema)
	return err
}

// ReplaceHistory swaps the stored history of a room for messages, keeping
// their order.
func (c *Cache) ReplaceHistory(owner, roomID string, messages []models.ChatMessage) error {
	tx, err := c.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin cache transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE owner = ? AND room_id = ?`, owner, roomID); err != nil {
		return errors.Wrapf(err, "failed to clear cached history of %s", roomID)
	}

	start := 0
	if len(messages) > c.limit {
		start = len(messages) - c.limit
	}
	for _, m := range messages[start:] {
		if err := insert(tx, owner, roomID, m); err != nil {
			return err
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit cached history")
}

// Append stores one message after the existing history of a room.
func (c *Cache) Append(owner, roomID string, m models.ChatMessage) error {
	tx, err := c.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin cache transaction")
	}
	defer tx.Rollback()

	if err := insert(tx, owner, roomID, m); err != nil {
		return err
	}
	_, err = tx.Exec(`
		DELETE FROM messages
		WHERE owner = ? AND room_id = ? AND seq NOT IN (
			SELECT seq FROM messages WHERE owner = ? AND room_id = ?
			ORDER BY seq DESC LIMIT ?
		)
	`, owner, roomID, owner, roomID, c.limit)
	if err != nil {
		return errors.Wrapf(err, "failed to trim cached history of %s", roomID)
	}

	return errors.Wrap(tx.Commit(), "failed to commit cached message")
}

func insert(tx *sql.Tx, owner, roomID string, m models.ChatMessage) error {
	_, err := tx.Exec(`
		INSERT INTO messages
			(owner, room_id, message_id, sender, receiver, content, file_url, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, owner, roomID, m.ID, m.Sender, m.Receiver, m.Content, m.FileURL, m.Timestamp)
	return errors.Wrapf(err, "failed to cache message in %s", roomID)
}

// History returns the cached messages of a room in the order they were
// stored.
func (c *Cache) History(owner, roomID string) ([]models.ChatMessage, error) {
	rows, err := c.db.Query(`
		SELECT message_id, sender, receiver, content, file_url, timestamp
		FROM messages
		WHERE owner = ? AND room_id = ?
		ORDER BY seq ASC
	`, owner, roomID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query cached history of %s", roomID)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		m := models.ChatMessage{RoomID: roomID}
		if err := rows.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Content, &m.FileURL, &m.Timestamp); err != nil {
			return nil, errors.Wrap(err, "failed to read cached message")
		}
		messages = append(messages, m)
	}
	return messages, errors.Wrap(rows.Err(), "failed to read cached history")
}

// Forget drops everything cached for owner, used on log out.
func (c *Cache) Forget(owner string) error {
	_, err := c.db.Exec(`DELETE FROM messages WHERE owner = ?`, owner)
	return errors.Wrapf(err, "failed to clear cache of %s", owner)
}
