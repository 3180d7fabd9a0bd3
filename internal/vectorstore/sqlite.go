package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/triagekit/triagekit/internal/errors"
	"github.com/triagekit/triagekit/internal/models"
)

// SQLite is a write-through persistence layer over the Local store. Chunks
// live in a single table and are loaded into memory at open; search is served
// from memory, so query cost matches Local.
type SQLite struct {
	mem *Local
	db  *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runbook_chunks (
	id            TEXT PRIMARY KEY,
	runbook_path  TEXT NOT NULL,
	section_title TEXT NOT NULL,
	content       TEXT NOT NULL,
	tags          TEXT NOT NULL,
	shapes        TEXT NOT NULL,
	embedding     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runbook_chunks_path ON runbook_chunks(runbook_path);
`

// OpenSQLite opens (creating if needed) a sqlite-backed store at path and
// loads all persisted chunks into memory.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Storef("open_sqlite", "sqlite", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Storef("migrate_sqlite", "sqlite", err)
	}

	s := &SQLite{mem: NewLocal(), db: db}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) load() error {
	rows, err := s.db.Query(`SELECT id, runbook_path, section_title, content, tags, shapes, embedding FROM runbook_chunks`)
	if err != nil {
		return errors.Storef("load_chunks", "sqlite", err)
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var c models.RunbookChunk
		var tags, shapes string
		var emb []byte
		if err := rows.Scan(&c.ID, &c.RunbookPath, &c.SectionTitle, &c.Content, &tags, &shapes, &emb); err != nil {
			return errors.Storef("load_chunks", "sqlite", err)
		}
		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			return errors.Storef("load_chunks", "sqlite", fmt.Errorf("chunk %s tags: %w", c.ID, err))
		}
		if err := json.Unmarshal([]byte(shapes), &c.ApplicableShapes); err != nil {
			return errors.Storef("load_chunks", "sqlite", fmt.Errorf("chunk %s shapes: %w", c.ID, err))
		}
		if err := json.Unmarshal(emb, &c.Embedding); err != nil {
			return errors.Storef("load_chunks", "sqlite", fmt.Errorf("chunk %s embedding: %w", c.ID, err))
		}
		if err := s.mem.Store(context.Background(), c); err != nil {
			return err
		}
		loaded++
	}
	if err := rows.Err(); err != nil {
		return errors.Storef("load_chunks", "sqlite", err)
	}
	if loaded > 0 {
		log.Info().Int("chunks", loaded).Msg("Loaded vector store from sqlite")
	}
	return nil
}

// ProviderType returns the backend identifier.
func (s *SQLite) ProviderType() string {
	return "sqlite"
}

// Store upserts one chunk in memory and on disk.
func (s *SQLite) Store(ctx context.Context, chunk models.RunbookChunk) error {
	return s.StoreBatch(ctx, []models.RunbookChunk{chunk})
}

// StoreBatch upserts chunks transactionally; memory is updated only after
// the transaction commits.
func (s *SQLite) StoreBatch(ctx context.Context, chunks []models.RunbookChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Storef("store_chunks", "sqlite", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO runbook_chunks
		(id, runbook_path, section_title, content, tags, shapes, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			runbook_path=excluded.runbook_path,
			section_title=excluded.section_title,
			content=excluded.content,
			tags=excluded.tags,
			shapes=excluded.shapes,
			embedding=excluded.embedding`)
	if err != nil {
		return errors.Storef("store_chunks", "sqlite", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		tags, err := json.Marshal(c.Tags)
		if err != nil {
			return errors.Storef("store_chunks", "sqlite", err)
		}
		shapes, err := json.Marshal(c.ApplicableShapes)
		if err != nil {
			return errors.Storef("store_chunks", "sqlite", err)
		}
		emb, err := json.Marshal(c.Embedding)
		if err != nil {
			return errors.Storef("store_chunks", "sqlite", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.RunbookPath, c.SectionTitle, c.Content, string(tags), string(shapes), emb); err != nil {
			return errors.Storef("store_chunks", "sqlite", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Storef("store_chunks", "sqlite", err)
	}

	return s.mem.StoreBatch(ctx, chunks)
}

// Search serves from the in-memory index.
func (s *SQLite) Search(ctx context.Context, queryEmbedding []float32, k int) ([]models.ScoredChunk, error) {
	return s.mem.Search(ctx, queryEmbedding, k)
}

// DeleteByPath removes chunks for path from disk and memory.
func (s *SQLite) DeleteByPath(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runbook_chunks WHERE runbook_path = ?`, path); err != nil {
		return errors.Storef("delete_chunks", "sqlite", err)
	}
	return s.mem.DeleteByPath(ctx, path)
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
