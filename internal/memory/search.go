package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumikid/lumikid/internal/profilestore"
)

// SearchMemories runs semantic search over the child's indexed episodes:
// embed the query, rank by cosine similarity in the profile store.
func (s *Service) SearchMemories(ctx context.Context, childID, query string, limit int) ([]profilestore.Match, error) {
	if childID == "" {
		return nil, fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	if s.profiles == nil {
		return nil, fmt.Errorf("memory: search requires the profile store")
	}
	vec, err := s.gateway.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}
	matches, err := s.profiles.SearchEpisodes(ctx, childID, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: search episodes: %w", err)
	}
	return matches, nil
}
