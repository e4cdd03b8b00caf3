package profilestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteStore is the default zero-dependency-deployment engine. Embeddings
// are stored as little-endian float32 blobs and ranked in process; fine for
// the per-child episode counts this system sees.
type sqliteStore struct {
	db *sql.DB
}

func newSQLiteStore(dataPath string) (*sqliteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("profilestore: create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataPath, "lumikid.db"))
	if err != nil {
		return nil, fmt.Errorf("profilestore: open sqlite: %w", err)
	}
	s := &sqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS children (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			age INTEGER NOT NULL DEFAULT 0,
			diagnosis TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS episode_embeddings (
			episode_id TEXT PRIMARY KEY,
			child_id TEXT NOT NULL,
			content TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMP NOT NULL,
			embedding BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_episode_child ON episode_embeddings(child_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("profilestore: migrate: %w", err)
		}
	}
	return nil
}

func (s *sqliteStore) SaveChild(ctx context.Context, row ChildRow) error {
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO children (id, name, age, diagnosis, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, age = excluded.age,
		   diagnosis = excluded.diagnosis, updated_at = excluded.updated_at`,
		row.ID, row.Name, row.Age, row.Diagnosis, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("profilestore: save child: %w", err)
	}
	return nil
}

func (s *sqliteStore) GetChild(ctx context.Context, id string) (*ChildRow, error) {
	var row ChildRow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, age, diagnosis, updated_at FROM children WHERE id = ?`, id).
		Scan(&row.ID, &row.Name, &row.Age, &row.Diagnosis, &row.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profilestore: get child: %w", err)
	}
	return &row, nil
}

func (s *sqliteStore) ListChildren(ctx context.Context) ([]ChildRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, age, diagnosis, updated_at FROM children ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("profilestore: list children: %w", err)
	}
	defer rows.Close()

	var out []ChildRow
	for rows.Next() {
		var row ChildRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Age, &row.Diagnosis, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("profilestore: scan child: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeleteChild(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM episode_embeddings WHERE child_id = ?`, id); err != nil {
		return fmt.Errorf("profilestore: delete embeddings: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM children WHERE id = ?`, id); err != nil {
		return fmt.Errorf("profilestore: delete child: %w", err)
	}
	return nil
}

func (s *sqliteStore) IndexEpisode(ctx context.Context, row EpisodeRow, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO episode_embeddings (episode_id, child_id, content, source, occurred_at, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(episode_id) DO UPDATE SET
		   content = excluded.content, source = excluded.source,
		   occurred_at = excluded.occurred_at, embedding = excluded.embedding`,
		row.EpisodeID, row.ChildID, row.Content, row.Source, row.OccurredAt, encodeVector(embedding))
	if err != nil {
		return fmt.Errorf("profilestore: index episode: %w", err)
	}
	return nil
}

func (s *sqliteStore) SearchEpisodes(ctx context.Context, childID string, query []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT episode_id, child_id, content, source, occurred_at, embedding
		 FROM episode_embeddings WHERE child_id = ?`, childID)
	if err != nil {
		return nil, fmt.Errorf("profilestore: search episodes: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var blob []byte
		if err := rows.Scan(&m.EpisodeID, &m.ChildID, &m.Content, &m.Source, &m.OccurredAt, &blob); err != nil {
			return nil, fmt.Errorf("profilestore: scan episode: %w", err)
		}
		m.Score = cosine(query, decodeVector(blob))
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*sqliteStore)(nil)
