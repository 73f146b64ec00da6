// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists completed answers in a SQLite database with a
// full-text index over section bodies. The archive consumes only the
// terminal Answer artifact; the pipeline core itself holds no cross-query
// state.
// Implements: prd011-archive (R1-R4).
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/answer-engine/pkg/types"
)

const dbFile = "answers.db"

// Store manages the answer archive database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// Open opens or creates the archive database at archiveDir/answers.db,
// creating the schema if it does not exist.
func Open(cfg types.ArchiveConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	dbPath := filepath.Join(cfg.ArchiveDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS answers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			cost REAL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			answer_id INTEGER NOT NULL REFERENCES answers(id),
			position INTEGER NOT NULL,
			title TEXT,
			tldr TEXT,
			body TEXT NOT NULL,
			format TEXT,
			citations TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sections_answer_id ON sections(answer_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='sections_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE sections_fts USING fts5(body, content=sections, content_rowid=rowid)`,
			`CREATE TRIGGER sections_ai AFTER INSERT ON sections BEGIN
				INSERT INTO sections_fts(rowid, body) VALUES (new.rowid, new.body);
			END`,
			`CREATE TRIGGER sections_ad AFTER DELETE ON sections BEGIN
				INSERT INTO sections_fts(sections_fts, rowid, body) VALUES('delete', old.rowid, old.body);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Save stores a completed answer and returns its archive id.
func (s *Store) Save(ctx context.Context, a *types.Answer) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO answers (query, cost, created_at) VALUES (?, ?, ?)`,
		a.Query, a.Cost, a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting answer: %w", err)
	}
	answerID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading answer id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sections (answer_id, position, title, tldr, body, format, citations)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, sec := range a.Sections {
		citationsJSON, _ := json.Marshal(sec.Citations)
		if _, err := stmt.ExecContext(ctx,
			answerID, i, sec.Title, sec.TLDR, sec.Text, string(sec.Format), string(citationsJSON),
		); err != nil {
			return 0, fmt.Errorf("inserting section %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return answerID, nil
}

// Entry summarizes one archived answer.
type Entry struct {
	ID        int64     `json:"id" yaml:"id"`
	Query     string    `json:"query" yaml:"query"`
	Sections  int       `json:"sections" yaml:"sections"`
	Cost      float64   `json:"cost" yaml:"cost"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// List returns archived answers, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.query, a.cost, a.created_at, count(sec.rowid)
		 FROM answers a LEFT JOIN sections sec ON sec.answer_id = a.id
		 GROUP BY a.id ORDER BY a.id DESC LIMIT ?`, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("listing answers: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Query, &e.Cost, &created, &e.Sections); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if t, parseErr := time.Parse(time.RFC3339Nano, created); parseErr == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Show loads one archived answer with its sections in order.
func (s *Store) Show(ctx context.Context, id int64) (*types.Answer, error) {
	var a types.Answer
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT query, cost, created_at FROM answers WHERE id = ?`, id,
	).Scan(&a.Query, &a.Cost, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("answer %d not found", id)
		}
		return nil, fmt.Errorf("looking up answer: %w", err)
	}
	if t, parseErr := time.Parse(time.RFC3339Nano, created); parseErr == nil {
		a.CreatedAt = t
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT title, tldr, body, format, citations FROM sections
		 WHERE answer_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("loading sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sec types.GeneratedSection
		var format string
		var citationsJSON sql.NullString
		if err := rows.Scan(&sec.Title, &sec.TLDR, &sec.Text, &format, &citationsJSON); err != nil {
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		sec.Format = types.DimensionFormat(format)
		if citationsJSON.Valid {
			json.Unmarshal([]byte(citationsJSON.String), &sec.Citations)
		}
		a.Sections = append(a.Sections, sec)
	}
	return &a, rows.Err()
}

// Hit is one full-text search result.
type Hit struct {
	AnswerID int64  `json:"answer_id" yaml:"answer_id"`
	Query    string `json:"query" yaml:"query"`
	Title    string `json:"title" yaml:"title"`
	Body     string `json:"body" yaml:"body"`
}

// Search runs an FTS5 query over archived section bodies, ranked by
// relevance.
func (s *Store) Search(ctx context.Context, query string) ([]Hit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sec.answer_id, a.query, sec.title, sec.body
		 FROM sections_fts
		 JOIN sections sec ON sec.rowid = sections_fts.rowid
		 JOIN answers a ON a.id = sec.answer_id
		 WHERE sections_fts MATCH ?
		 ORDER BY sections_fts.rank LIMIT ?`, query, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("searching archive: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.AnswerID, &h.Query, &h.Title, &h.Body); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
