package store

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// migrations is the ordered list of forward-only schema steps. Append only;
// already-applied steps must never change.
var migrations = []string{
	`CREATE TABLE chats (
		chat_id    INTEGER PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE sent_vacancies (
		id      TEXT PRIMARY KEY,
		sent_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE hidden_vacancies (
		id        TEXT PRIMARY KEY,
		hidden_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE favorites (
		id       TEXT PRIMARY KEY,
		title    TEXT NOT NULL DEFAULT '',
		url      TEXT NOT NULL DEFAULT '',
		employer TEXT NOT NULL DEFAULT '',
		salary   TEXT NOT NULL DEFAULT '',
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE chat_settings (
		chat_id      INTEGER PRIMARY KEY,
		query        TEXT NOT NULL DEFAULT '',
		min_salary   INTEGER NOT NULL DEFAULT 0,
		experience   TEXT NOT NULL DEFAULT '',
		area         TEXT NOT NULL DEFAULT '',
		remote_only  INTEGER NOT NULL DEFAULT 0,
		search_depth INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE daily_stats (
		day          TEXT NOT NULL,
		query        TEXT NOT NULL,
		count        INTEGER NOT NULL DEFAULT 0,
		avg_salary   REAL NOT NULL DEFAULT 0,
		top_employer TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (day, query)
	)`,
}

// migrate applies pending schema steps in order. The current version is
// tracked in schema_version, so a reopened database applies nothing new.
func migrate(db *sql.DB, logger *zap.Logger) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	err := db.QueryRow(`SELECT version FROM schema_version`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("initializing schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("reading schema version: %w", err)
	}

	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this binary supports (%d)", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("starting migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("bumping schema version to %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", i+1, err)
		}

		logger.Info("applied schema migration", zap.Int("version", i+1))
	}

	return nil
}
