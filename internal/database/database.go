package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection at the given path.
func New(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; keep the pool small
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ SQLite database connected")

	return &DB{db}, nil
}

// Initialize creates all required tables
func (db *DB) Initialize() error {
	log.Println("🔍 Checking database schema...")

	schema := []string{
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id            TEXT PRIMARY KEY,
			documents_analyzed INTEGER NOT NULL DEFAULT 0,
			questions_answered INTEGER NOT NULL DEFAULT 0,
			study_hours        INTEGER NOT NULL DEFAULT 0,
			exams_prepared     INTEGER NOT NULL DEFAULT 0,
			conversations      INTEGER NOT NULL DEFAULT 0,
			achievements       INTEGER NOT NULL DEFAULT 0,
			updated_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS achievements (
			user_id        TEXT NOT NULL,
			achievement_id TEXT NOT NULL,
			title          TEXT NOT NULL,
			description    TEXT NOT NULL,
			icon           TEXT NOT NULL,
			earned         INTEGER NOT NULL DEFAULT 0,
			earned_date    TIMESTAMP,
			PRIMARY KEY (user_id, achievement_id)
		)`,
		`CREATE TABLE IF NOT EXISTS activity (
			user_id TEXT NOT NULL,
			day     TEXT NOT NULL,
			value   INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, day)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_history (
			user_id    TEXT NOT NULL,
			session_id TEXT NOT NULL,
			title      TEXT NOT NULL,
			messages   TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, session_id)
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			status      TEXT NOT NULL,
			pages       INTEGER NOT NULL DEFAULT 0,
			content     TEXT NOT NULL DEFAULT '',
			uploaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			profile TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			user_id  TEXT PRIMARY KEY,
			settings TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_user_updated
			ON chat_history (user_id, updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_status
			ON documents (status, uploaded_at)`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	log.Println("✅ Database initialized successfully")
	return nil
}
