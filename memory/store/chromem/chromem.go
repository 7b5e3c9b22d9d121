// Package chromem implements memory.Store on chromem-go, a pure Go
// embedded vector database. It keeps one collection per scope bucket:
// a personality's global canon, each user-personality pair, and each
// session.
package chromem

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	chromem "github.com/philippgille/chromem-go"

	"github.com/bytefold/recall/memory"
)

// Store holds all scope buckets in process memory. Safe for concurrent
// use.
type Store struct {
	db          *chromem.DB
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

// New creates an empty in-memory store.
func New() (*Store, error) {
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// collectionName maps a record's scope bucket to a collection.
// Identity strings are taken verbatim; the caller validated them.
func collectionName(personalityID string, scope memory.Scope, userID, sessionID string) string {
	switch scope {
	case memory.ScopePersonal:
		return fmt.Sprintf("p_%s_user_%s", personalityID, userID)
	case memory.ScopeSession:
		return fmt.Sprintf("p_%s_session_%s", personalityID, sessionID)
	default:
		return fmt.Sprintf("p_%s_global", personalityID)
	}
}

func (s *Store) getOrCreate(name string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[name]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[name]; ok {
		return col, nil
	}

	// We always provide embeddings, so no embedding func; the default
	// distance is cosine, which matches our normalized vectors.
	col, err := s.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: create collection %s: %w", name, err)
	}
	s.collections[name] = col
	return col, nil
}

func (s *Store) get(name string) *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collections[name]
}

// Upsert saves a record with its embedding into its scope bucket.
func (s *Store) Upsert(ctx context.Context, record *memory.Record, vector []float32) error {
	if err := record.Validate(); err != nil {
		return err
	}

	name := collectionName(record.PersonalityID, record.Scope, record.UserID, record.SessionID)
	col, err := s.getOrCreate(name)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        record.ID,
		Content:   record.Content,
		Embedding: vector,
		Metadata: map[string]string{
			"scope":          string(record.Scope),
			"personality_id": record.PersonalityID,
			"user_id":        record.UserID,
			"session_id":     record.SessionID,
			"created_at_ms":  strconv.FormatInt(record.CreatedAtMs, 10),
			"channel_id":     record.ChannelID,
			"guild_id":       record.GuildID,
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("chromem: add document: %w", err)
	}

	log.Debug("stored memory", "id", record.ID, "collection", name)
	return nil
}

// Query searches every requested scope bucket, applies the timestamp
// upper bound, and merges results most similar first.
func (s *Store) Query(ctx context.Context, vector []float32, filter memory.Filter) ([]memory.ScoredRecord, error) {
	var results []memory.ScoredRecord

	for _, scope := range filter.Scopes {
		name := collectionName(filter.PersonalityID, scope, filter.UserID, filter.SessionID)
		col := s.get(name)
		if col == nil {
			continue // bucket never written
		}

		count := col.Count()
		if count == 0 {
			continue
		}

		// chromem rejects nResults above the collection size. When a
		// time bound is in play, fetch the whole bucket so excluded
		// recent entries cannot crowd out valid older ones.
		ask := filter.Limit
		if ask <= 0 || filter.ExcludeNewerThan > 0 || ask > count {
			ask = count
		}

		hits, err := col.QueryEmbedding(ctx, vector, ask, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("chromem: query %s: %w", name, err)
		}

		for _, hit := range hits {
			record, err := recordFromResult(hit)
			if err != nil {
				log.Warn("skipping undecodable memory", "id", hit.ID, "err", err)
				continue
			}
			if filter.ExcludeNewerThan > 0 && record.CreatedAtMs >= filter.ExcludeNewerThan {
				continue
			}
			results = append(results, memory.ScoredRecord{
				Record: record,
				Score:  float64(hit.Similarity),
			})
		}
	}

	return results, nil
}

// Delete removes a record from its scope bucket. The user and session
// identity are not needed: deletion searches all buckets the
// personality owns for the ID.
func (s *Store) Delete(ctx context.Context, personalityID string, scope memory.Scope, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for name, col := range s.collections {
		if err := col.Delete(ctx, map[string]string{"personality_id": personalityID}, nil, id); err != nil {
			return fmt.Errorf("chromem: delete from %s: %w", name, err)
		}
	}
	return nil
}

// Close is a no-op: chromem keeps everything in process memory.
func (s *Store) Close() error { return nil }

func recordFromResult(result chromem.Result) (*memory.Record, error) {
	createdAtMs, err := strconv.ParseInt(result.Metadata["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad created_at_ms %q: %w", result.Metadata["created_at_ms"], err)
	}
	scope := memory.Scope(result.Metadata["scope"])
	if !scope.Valid() {
		return nil, fmt.Errorf("bad scope %q", result.Metadata["scope"])
	}

	return &memory.Record{
		ID:            result.ID,
		PersonalityID: result.Metadata["personality_id"],
		Scope:         scope,
		UserID:        result.Metadata["user_id"],
		SessionID:     result.Metadata["session_id"],
		Content:       result.Content,
		CreatedAtMs:   createdAtMs,
		ChannelID:     result.Metadata["channel_id"],
		GuildID:       result.Metadata["guild_id"],
	}, nil
}

var _ memory.Store = (*Store)(nil)
