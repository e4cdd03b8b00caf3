package profilestore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// postgresStore backs multi-instance deployments. Episode embeddings live in
// a pgvector column and similarity search runs in the database.
type postgresStore struct {
	db  *sql.DB
	dim int
}

func newPostgresStore(dsn string, dim int) (*postgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("profilestore: postgres engine requires a DSN")
	}
	if dim <= 0 {
		dim = 1536
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("profilestore: open postgres: %w", err)
	}
	s := &postgresStore{db: db, dim: dim}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *postgresStore) migrate() error {
	if _, err := s.db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		// Not fatal: the extension may already be installed by the operator.
		log.Printf("profilestore: create vector extension: %v", err)
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS children (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			age INTEGER NOT NULL DEFAULT 0,
			diagnosis TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS episode_embeddings (
			episode_id TEXT PRIMARY KEY,
			child_id TEXT NOT NULL,
			content TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.dim),
		`CREATE INDEX IF NOT EXISTS idx_episode_child ON episode_embeddings(child_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("profilestore: migrate: %w", err)
		}
	}
	return nil
}

func (s *postgresStore) SaveChild(ctx context.Context, row ChildRow) error {
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO children (id, name, age, diagnosis, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, age = EXCLUDED.age,
		   diagnosis = EXCLUDED.diagnosis, updated_at = EXCLUDED.updated_at`,
		row.ID, row.Name, row.Age, row.Diagnosis, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("profilestore: save child: %w", err)
	}
	return nil
}

func (s *postgresStore) GetChild(ctx context.Context, id string) (*ChildRow, error) {
	var row ChildRow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, age, diagnosis, updated_at FROM children WHERE id = $1`, id).
		Scan(&row.ID, &row.Name, &row.Age, &row.Diagnosis, &row.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profilestore: get child: %w", err)
	}
	return &row, nil
}

func (s *postgresStore) ListChildren(ctx context.Context) ([]ChildRow, error) {
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

func (s *postgresStore) DeleteChild(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM episode_embeddings WHERE child_id = $1`, id); err != nil {
		return fmt.Errorf("profilestore: delete embeddings: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM children WHERE id = $1`, id); err != nil {
		return fmt.Errorf("profilestore: delete child: %w", err)
	}
	return nil
}

func (s *postgresStore) IndexEpisode(ctx context.Context, row EpisodeRow, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO episode_embeddings (episode_id, child_id, content, source, occurred_at, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (episode_id) DO UPDATE SET
		   content = EXCLUDED.content, source = EXCLUDED.source,
		   occurred_at = EXCLUDED.occurred_at, embedding = EXCLUDED.embedding`,
		row.EpisodeID, row.ChildID, row.Content, row.Source, row.OccurredAt,
		pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("profilestore: index episode: %w", err)
	}
	return nil
}

func (s *postgresStore) SearchEpisodes(ctx context.Context, childID string, query []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT episode_id, child_id, content, source, occurred_at,
		        1 - (embedding <=> $2) AS score
		 FROM episode_embeddings
		 WHERE child_id = $1
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		childID, pgvector.NewVector(query), limit)
	if err != nil {
		return nil, fmt.Errorf("profilestore: search episodes: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.EpisodeID, &m.ChildID, &m.Content, &m.Source, &m.OccurredAt, &m.Score); err != nil {
			return nil, fmt.Errorf("profilestore: scan episode: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*postgresStore)(nil)
