// Package store provides the encrypted SQLite persistence layer. Every
// sensitive field is stored as an opaque blob produced by the crypto
// service; the key-derivation salt lives in the metadata table while the
// key itself never touches disk.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/kshao/chatvault/internal/crypto"
	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	source_app TEXT NOT NULL,
	chat_type TEXT NOT NULL CHECK(chat_type IN ('llm','human')),
	display_name TEXT NOT NULL,
	start_time INTEGER NOT NULL,
	end_time INTEGER NOT NULL,
	tags TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	message_id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	timestamp_utc INTEGER NOT NULL,
	author TEXT NOT NULL,
	content TEXT NOT NULL,
	content_type TEXT NOT NULL CHECK(content_type IN ('text','code'))
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp_utc);
CREATE INDEX IF NOT EXISTS idx_conversations_start ON conversations(start_time);

CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const (
	saltKey     = "crypto.salt"
	sentinelKey = "crypto.sentinel"
	// sentinelPlaintext is encrypted at first unlock and verified on every
	// later unlock, so a wrong password fails fast instead of writing
	// garbage rows.
	sentinelPlaintext = "chatvault.sentinel.v1"
)

// ErrWrongPassword is returned when the unlock password does not match the
// one the store was initialized with.
var ErrWrongPassword = apperrors.New(apperrors.KindCrypto, apperrors.SeverityHigh, "wrong password")

// Store is the encrypted SQLite store.
type Store struct {
	db     *sql.DB
	crypto *crypto.Service
}

// Open opens (creating if needed) the database under dataDir with WAL mode
// and foreign keys enabled. SQLite supports a single writer, so the
// connection pool is pinned to one connection.
func Open(dataDir string, svc *crypto.Service) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to create data directory", err)
	}

	dbPath := filepath.Join(dataDir, "chatvault.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to open database", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to enable WAL mode", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to enable foreign keys", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to apply schema", err)
	}

	logging.WithComponent("store").WithField("path", dbPath).Debug("database opened")
	return &Store{db: db, crypto: svc}, nil
}

// Close closes the database. The crypto service is left to its owner.
func (s *Store) Close() error {
	return s.db.Close()
}

// Unlock derives the session key from password. On first use a fresh salt
// is generated and persisted together with an encrypted sentinel; on later
// sessions the persisted salt re-derives the same key and the sentinel is
// verified, failing with ErrWrongPassword on mismatch.
func (s *Store) Unlock(password string) error {
	persisted, err := s.getMetadata(saltKey)
	if err != nil {
		return err
	}

	if persisted == "" {
		salt, err := s.crypto.DeriveKey(password, nil)
		if err != nil {
			return err
		}
		sentinel, err := s.crypto.Encrypt(sentinelPlaintext)
		if err != nil {
			return err
		}
		if err := s.setMetadata(saltKey, crypto.FormatSalt(salt)); err != nil {
			return err
		}
		return s.setMetadata(sentinelKey, sentinel)
	}

	salt, err := crypto.ParseSalt(persisted)
	if err != nil {
		return err
	}
	if _, err := s.crypto.DeriveKey(password, salt); err != nil {
		return err
	}

	sentinel, err := s.getMetadata(sentinelKey)
	if err != nil {
		return err
	}
	if sentinel == "" {
		return apperrors.New(apperrors.KindCrypto, apperrors.SeverityHigh, "store has a salt but no sentinel")
	}
	plain, err := s.crypto.Decrypt(sentinel)
	if err != nil || !crypto.ConstantTimeEquals(plain, sentinelPlaintext) {
		s.crypto.Clear()
		return ErrWrongPassword
	}
	return nil
}

func (s *Store) getMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, fmt.Sprintf("failed to read metadata %q", key), err)
	}
	return value, nil
}

func (s *Store) setMetadata(key, value string) error {
	_, err := s.db.Exec(`
	INSERT INTO metadata (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, fmt.Sprintf("failed to write metadata %q", key), err)
	}
	return nil
}
