package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bytefold/recall/embedding"
)

// Query is a scope-filtered similarity search request.
type Query struct {
	// Text is what to search for. Required.
	Text string

	// Scopes selects which canon tiers to search. Required, non-empty.
	Scopes []Scope

	// PersonalityID is always required.
	PersonalityID string

	// UserID is required when Scopes includes ScopePersonal.
	UserID string

	// SessionID is required when Scopes includes ScopeSession.
	SessionID string

	// ExcludeNewerThan is the millisecond-epoch boundary from
	// ExclusionBoundary. Zero means no bound.
	ExcludeNewerThan int64

	// Limit caps results. Zero takes the resolver default.
	Limit int
}

// ErrInvalidQuery tags scope/identity validation failures. Requesting a
// scope without its identity is an error, never a silent fallback to a
// broader scope.
var ErrInvalidQuery = errors.New("memory: invalid query")

// Validate checks the query's scope-identity requirements.
func (q *Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: empty query text", ErrInvalidQuery)
	}
	if q.PersonalityID == "" {
		return fmt.Errorf("%w: personality is required", ErrInvalidQuery)
	}
	if len(q.Scopes) == 0 {
		return fmt.Errorf("%w: at least one scope is required", ErrInvalidQuery)
	}
	for _, scope := range q.Scopes {
		if !scope.Valid() {
			return fmt.Errorf("%w: unknown scope %q", ErrInvalidQuery, scope)
		}
		if scope == ScopePersonal && q.UserID == "" {
			return fmt.Errorf("%w: personal scope requires a user", ErrInvalidQuery)
		}
		if scope == ScopeSession && q.SessionID == "" {
			return fmt.Errorf("%w: session scope requires a session", ErrInvalidQuery)
		}
	}
	return nil
}

// ResolverConfig holds resolver tuning. Zero values take defaults.
type ResolverConfig struct {
	// DefaultLimit applies when a query has no limit. Default: 10.
	DefaultLimit int
}

// Resolver turns query text into a vector and delegates the similarity
// search to a Store with the full scope/identity/time filter.
type Resolver struct {
	engine       *embedding.Engine
	store        Store
	defaultLimit int
}

// NewResolver creates a resolver.
func NewResolver(engine *embedding.Engine, store Store, cfg ResolverConfig) *Resolver {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	return &Resolver{
		engine:       engine,
		store:        store,
		defaultLimit: cfg.DefaultLimit,
	}
}

// Query runs a validated scope-filtered similarity search. Results are
// ordered by score descending, ties broken by recency (newest first).
//
// If the embedding engine is unavailable, retrieval degrades to an
// empty result with no error: the caller skips memory this turn.
func (r *Resolver) Query(ctx context.Context, q Query) ([]ScoredRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	vector, err := r.engine.Embed(ctx, q.Text)
	if err != nil {
		if embedding.Unavailable(err) {
			log.Debug("memory retrieval skipped, embedding engine unavailable", "err", err)
			return nil, nil
		}
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = r.defaultLimit
	}

	results, err := r.store.Query(ctx, vector, Filter{
		Scopes:           q.Scopes,
		PersonalityID:    q.PersonalityID,
		UserID:           q.UserID,
		SessionID:        q.SessionID,
		ExcludeNewerThan: q.ExcludeNewerThan,
		Limit:            limit,
	})
	if err != nil {
		return nil, fmt.Errorf("memory: store query: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.CreatedAtMs > results[j].Record.CreatedAtMs
	})
	if len(results) > limit {
		results = results[:limit]
	}

	log.Debug("memory retrieval", "personality", q.PersonalityID, "scopes", q.Scopes, "results", len(results))
	return results, nil
}

// Remember embeds a record's content and upserts it into the store.
// Supplement for the write path: the conversation pipeline feeds
// summaries in through here.
func (r *Resolver) Remember(ctx context.Context, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	vector, err := r.engine.Embed(ctx, record.Content)
	if err != nil {
		return fmt.Errorf("memory: embed record: %w", err)
	}
	if err := r.store.Upsert(ctx, record, vector); err != nil {
		return fmt.Errorf("memory: upsert record: %w", err)
	}
	return nil
}
