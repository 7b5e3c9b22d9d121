package memory

import "context"

// Filter is the query contract this core hands to a vector store. The
// store matches records against the embedded query within the given
// scopes and identities, excluding anything at or after ExcludeNewerThan.
type Filter struct {
	Scopes        []Scope
	PersonalityID string
	UserID        string
	SessionID     string

	// ExcludeNewerThan is a millisecond-epoch upper bound; records
	// with CreatedAtMs >= this value are excluded. Zero means no
	// bound.
	ExcludeNewerThan int64

	// Limit caps the number of results. Zero takes the store default.
	Limit int
}

// Store is the vector storage backend.
// Implementations: chromem.Store (embedded), networked vector databases
// in production deployments.
type Store interface {
	// Upsert saves a record with its embedding, replacing any
	// existing record with the same ID.
	Upsert(ctx context.Context, record *Record, vector []float32) error

	// Query returns records matching the filter, most similar first.
	Query(ctx context.Context, vector []float32, filter Filter) ([]ScoredRecord, error)

	// Delete removes a record permanently.
	Delete(ctx context.Context, personalityID string, scope Scope, id string) error

	// Close releases resources.
	Close() error
}
