package personalization

import (
	"context"
	"log"
)

// Embedder turns text into a fixed-length query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the similarity-search and preference capability consumed by
// the resolver.
type Store interface {
	SearchMemories(ctx context.Context, userID string, query []float32, limit int, threshold float64) ([]Memory, error)
	SearchSnippets(ctx context.Context, userID string, query []float32, limit int, threshold float64) ([]Snippet, error)
	Preferences(ctx context.Context, userID string) (Preferences, bool, error)
}

// Resolver produces the personalization context for a user.
type Resolver struct {
	embedder Embedder
	store    Store
}

func NewResolver(embedder Embedder, store Store) *Resolver {
	return &Resolver{embedder: embedder, store: store}
}

// Resolve computes one broad-query embedding, runs both similarity
// searches and fetches preferences. Personalization is best-effort:
// every failure degrades to the empty context instead of blocking
// generation.
func (r *Resolver) Resolve(ctx context.Context, userID string) Context {
	if userID == "" || r.embedder == nil || r.store == nil {
		return Empty()
	}

	query, err := r.embedder.Embed(ctx, broadQuery)
	if err != nil {
		log.Printf("personalization: embedding failed for user %s: %v", userID, err)
		return Empty()
	}

	out := Empty()

	memories, err := r.store.SearchMemories(ctx, userID, query, memoryLimit, similarityThreshold)
	if err != nil {
		log.Printf("personalization: memory search failed for user %s: %v", userID, err)
	} else {
		out.Memories = memories
	}

	snippets, err := r.store.SearchSnippets(ctx, userID, query, snippetLimit, similarityThreshold)
	if err != nil {
		log.Printf("personalization: snippet search failed for user %s: %v", userID, err)
	} else {
		out.Snippets = snippets
	}

	prefs, found, err := r.store.Preferences(ctx, userID)
	if err != nil {
		log.Printf("personalization: preference lookup failed for user %s: %v", userID, err)
	} else if found {
		out.Preferences = prefs
	}

	return out
}
