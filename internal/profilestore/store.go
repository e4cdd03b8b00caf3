// Package profilestore is the relational side-store of the memory core: a
// fast child-profile cache for list/display paths and the episode embedding
// index behind semantic search. The graph remains the source of truth; every
// row here can be rebuilt from it.
package profilestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lumikid/lumikid/internal/config"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("profilestore: not found")

// ChildRow is the cached display profile of one child.
type ChildRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Diagnosis string    `json:"diagnosis,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EpisodeRow is one indexed episode with its text content.
type EpisodeRow struct {
	EpisodeID  string    `json:"episode_id"`
	ChildID    string    `json:"child_id"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Match is one semantic search hit. Score is cosine similarity in [-1,1].
type Match struct {
	EpisodeRow
	Score float64 `json:"score"`
}

// Store is the profile cache and episode embedding index.
type Store interface {
	SaveChild(ctx context.Context, row ChildRow) error
	GetChild(ctx context.Context, id string) (*ChildRow, error)
	ListChildren(ctx context.Context) ([]ChildRow, error)
	DeleteChild(ctx context.Context, id string) error

	// IndexEpisode upserts an episode and its embedding vector.
	IndexEpisode(ctx context.Context, row EpisodeRow, embedding []float32) error

	// SearchEpisodes returns the child's episodes nearest to the query
	// vector, best first.
	SearchEpisodes(ctx context.Context, childID string, query []float32, limit int) ([]Match, error)

	Close() error
}

// New opens the store selected by cfg.Engine. dim is the embedding dimension
// used when creating the vector column.
func New(cfg config.ProfileConfig, dim int) (Store, error) {
	switch cfg.Engine {
	case "", "sqlite":
		return newSQLiteStore(cfg.DataPath)
	case "postgres":
		return newPostgresStore(cfg.DSN, dim)
	default:
		return nil, fmt.Errorf("profilestore: unknown engine %q", cfg.Engine)
	}
}
