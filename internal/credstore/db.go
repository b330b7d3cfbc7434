package credstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/oauth2"
)

const schemaName = "clistcal"

// SQLiteStore keeps one OAuth token per account in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the token database at path and migrates it.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS db_version (
		name TEXT PRIMARY KEY,
		version INTEGER
	)`)
	if err != nil {
		return fmt.Errorf("creating db_version table: %w", err)
	}

	var dbVersion int
	err = s.db.QueryRow("SELECT version FROM db_version WHERE name = ?", schemaName).Scan(&dbVersion)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO db_version (name, version) VALUES (?, 0)`, schemaName); err != nil {
			return fmt.Errorf("initializing db_version table: %w", err)
		}
		dbVersion = 0
	} else if err != nil {
		return fmt.Errorf("reading db_version: %w", err)
	}

	if dbVersion == 0 {
		_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS tokens (
			account_name TEXT PRIMARY KEY,
			token TEXT,
			updated_at TEXT
		)`)
		if err != nil {
			return fmt.Errorf("creating tokens table: %w", err)
		}

		dbVersion = 1
		if _, err := s.db.Exec(`UPDATE db_version SET version = ? WHERE name = ?`, dbVersion, schemaName); err != nil {
			return fmt.Errorf("updating db_version table: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, account string) (*oauth2.Token, error) {
	var tokenJSON []byte
	err := s.db.QueryRowContext(ctx, "SELECT token FROM tokens WHERE account_name = ?", account).Scan(&tokenJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving token from database: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("unmarshaling token: %w", err)
	}
	return &token, nil
}

func (s *SQLiteStore) Save(ctx context.Context, account string, token *oauth2.Token) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "INSERT OR REPLACE INTO tokens (account_name, token, updated_at) VALUES (?, ?, ?)",
		account, string(tokenJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, account string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM tokens WHERE account_name = ?", account)
	return err
}
