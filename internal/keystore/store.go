// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package keystore persists provider credentials and starter templates in
// SQLite. API keys are encrypted at rest with AES-256-GCM under a key
// derived from the configured secret via PBKDF2-SHA-256.
//
// # Key Types
//
//   - Store: the SQLite-backed store
//   - KeyRecord: credential metadata returned to clients (never the key)
//   - Template: a named starter code snippet
//
// # Usage
//
//	store, err := keystore.Open("/var/lib/pagesmith/store.db", secret)
//	if err != nil { ... }
//	defer store.Close()
//	rec, err := store.PutKey(ctx, "openai", "sk-...")
package keystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

var (
	// ErrNoKey indicates no credential is stored for the provider.
	ErrNoKey = errors.New("no api key stored for provider")
	// ErrInvalidRecord indicates missing required fields.
	ErrInvalidRecord = errors.New("invalid record: missing required field")
)

// KeyRecord is the client-visible view of a stored credential. The key
// itself is never included.
type KeyRecord struct {
	ID       string    `json:"id"`
	Provider string    `json:"provider"`
	Created  time.Time `json:"created"`
}

// Template is a named starter code snippet.
type Template struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Code      string   `json:"code"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Tags      []string `json:"tags"`
}

// Store persists credentials and templates in a single SQLite database.
type Store struct {
	db     *sql.DB
	cipher *Cipher
}

const schema = `
CREATE TABLE IF NOT EXISTS api_keys (
	provider   TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	key_cipher TEXT NOT NULL,
	created    TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS templates (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	code      TEXT NOT NULL,
	thumbnail TEXT NOT NULL DEFAULT '',
	tags      TEXT NOT NULL DEFAULT '[]'
);
`

// Open opens (creating if needed) the store at path. The key-derivation
// salt lives in a sibling file with 0600 permissions.
func Open(path, secret string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	salt, err := loadOrCreateSalt(path + ".salt")
	if err != nil {
		return nil, err
	}
	cipher, err := NewCipher(secret, salt)
	if err != nil {
		return nil, err
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	log.Printf("KEYSTORE_OPEN | path=%s", path)
	return &Store{db: db, cipher: cipher}, nil
}

// OpenMemory opens an in-memory store. Used by tests.
func OpenMemory(secret string) (*Store, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	cipher, err := NewCipher(secret, salt)
	if err != nil {
		return nil, err
	}
	db, err := openDB(":memory:")
	if err != nil {
		return nil, err
	}
	return &Store{db: db, cipher: cipher}, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the underlying database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// PutKey stores or replaces the credential for a provider. The record id
// stays stable across replacements.
func (s *Store) PutKey(ctx context.Context, providerID, apiKey string) (KeyRecord, error) {
	if providerID == "" || apiKey == "" {
		return KeyRecord{}, ErrInvalidRecord
	}

	sealed, err := s.cipher.EncryptString(apiKey)
	if err != nil {
		return KeyRecord{}, err
	}

	rec := KeyRecord{
		ID:       uuid.NewString(),
		Provider: providerID,
		Created:  time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO api_keys (provider, id, key_cipher, created)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			key_cipher = excluded.key_cipher,
			created    = excluded.created`,
		rec.Provider, rec.ID, sealed, rec.Created)
	if err != nil {
		return KeyRecord{}, fmt.Errorf("store key: %w", err)
	}

	// On replacement the original id survives; read it back.
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created FROM api_keys WHERE provider = ?`, rec.Provider)
	if err := row.Scan(&rec.ID, &rec.Created); err != nil {
		return KeyRecord{}, fmt.Errorf("read key record: %w", err)
	}

	log.Printf("KEY_SAVED | provider=%s", providerID)
	return rec, nil
}

// Keys lists stored credential records, oldest first. Keys themselves are
// never returned.
func (s *Store) Keys(ctx context.Context) ([]KeyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider, created FROM api_keys ORDER BY created, provider`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var records []KeyRecord
	for rows.Next() {
		var rec KeyRecord
		if err := rows.Scan(&rec.ID, &rec.Provider, &rec.Created); err != nil {
			return nil, fmt.Errorf("scan key record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Key returns the decrypted credential for a provider.
func (s *Store) Key(ctx context.Context, providerID string) (string, error) {
	var sealed string
	err := s.db.QueryRowContext(ctx,
		`SELECT key_cipher FROM api_keys WHERE provider = ?`, providerID).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", ErrNoKey, providerID)
	}
	if err != nil {
		return "", fmt.Errorf("read key: %w", err)
	}
	return s.cipher.DecryptString(sealed)
}

// DeleteKey removes the credential for a provider. Missing rows are not an
// error.
func (s *Store) DeleteKey(ctx context.Context, providerID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM api_keys WHERE provider = ?`, providerID)
	if err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	return nil
}

// PutTemplate stores a template, generating an id when absent.
func (s *Store) PutTemplate(ctx context.Context, t Template) (Template, error) {
	if t.Name == "" || t.Code == "" {
		return Template{}, ErrInvalidRecord
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return Template{}, fmt.Errorf("marshal tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, code, thumbnail, tags)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name      = excluded.name,
			code      = excluded.code,
			thumbnail = excluded.thumbnail,
			tags      = excluded.tags`,
		t.ID, t.Name, t.Code, t.Thumbnail, string(tags))
	if err != nil {
		return Template{}, fmt.Errorf("store template: %w", err)
	}
	return t, nil
}

// Templates lists stored templates ordered by name.
func (s *Store) Templates(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, code, thumbnail, tags FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var t Template
		var tags string
		if err := rows.Scan(&t.ID, &t.Name, &t.Code, &t.Thumbnail, &tags); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}
