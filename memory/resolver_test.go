package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bytefold/recall/embedding"
	"github.com/bytefold/recall/embedding/model/mock"
	"github.com/bytefold/recall/memory"
)

// captureStore records the filter it was queried with and returns a
// canned result set.
type captureStore struct {
	lastFilter memory.Filter
	results    []memory.ScoredRecord
	queryErr   error
}

func (s *captureStore) Upsert(ctx context.Context, record *memory.Record, vector []float32) error {
	return nil
}

func (s *captureStore) Query(ctx context.Context, vector []float32, filter memory.Filter) ([]memory.ScoredRecord, error) {
	s.lastFilter = filter
	return s.results, s.queryErr
}

func (s *captureStore) Delete(ctx context.Context, personalityID string, scope memory.Scope, id string) error {
	return nil
}

func (s *captureStore) Close() error { return nil }

func newTestResolver(t *testing.T, store memory.Store) *memory.Resolver {
	t.Helper()
	eng, err := embedding.New(mock.New(), embedding.Config{})
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return memory.NewResolver(eng, store, memory.ResolverConfig{})
}

func TestQueryValidation(t *testing.T) {
	r := newTestResolver(t, &captureStore{})

	cases := []struct {
		name  string
		query memory.Query
	}{
		{"empty text", memory.Query{Scopes: []memory.Scope{memory.ScopeGlobal}, PersonalityID: "lilith"}},
		{"no personality", memory.Query{Text: "hi", Scopes: []memory.Scope{memory.ScopeGlobal}}},
		{"no scopes", memory.Query{Text: "hi", PersonalityID: "lilith"}},
		{"unknown scope", memory.Query{Text: "hi", PersonalityID: "lilith", Scopes: []memory.Scope{"cosmic"}}},
		{"personal without user", memory.Query{Text: "hi", PersonalityID: "lilith", Scopes: []memory.Scope{memory.ScopePersonal}}},
		{"session without session", memory.Query{Text: "hi", PersonalityID: "lilith", Scopes: []memory.Scope{memory.ScopeSession}}},
		{"mixed scopes missing user", memory.Query{Text: "hi", PersonalityID: "lilith", Scopes: []memory.Scope{memory.ScopeGlobal, memory.ScopePersonal}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Query(context.Background(), tc.query)
			require.ErrorIs(t, err, memory.ErrInvalidQuery)
		})
	}
}

func TestQuery_PassesFullFilterToStore(t *testing.T) {
	store := &captureStore{}
	r := newTestResolver(t, store)

	_, err := r.Query(context.Background(), memory.Query{
		Text:             "what did we talk about",
		Scopes:           []memory.Scope{memory.ScopePersonal, memory.ScopeGlobal},
		PersonalityID:    "lilith",
		UserID:           "user-1",
		ExcludeNewerThan: 123_456,
		Limit:            5,
	})
	require.NoError(t, err)

	require.Equal(t, []memory.Scope{memory.ScopePersonal, memory.ScopeGlobal}, store.lastFilter.Scopes)
	require.Equal(t, "lilith", store.lastFilter.PersonalityID)
	require.Equal(t, "user-1", store.lastFilter.UserID)
	require.Equal(t, int64(123_456), store.lastFilter.ExcludeNewerThan)
	require.Equal(t, 5, store.lastFilter.Limit)
}

func TestQuery_OrdersByScoreThenRecency(t *testing.T) {
	older := &memory.Record{ID: "older", PersonalityID: "p", Scope: memory.ScopeGlobal, CreatedAtMs: 100}
	newer := &memory.Record{ID: "newer", PersonalityID: "p", Scope: memory.ScopeGlobal, CreatedAtMs: 200}
	best := &memory.Record{ID: "best", PersonalityID: "p", Scope: memory.ScopeGlobal, CreatedAtMs: 50}

	store := &captureStore{results: []memory.ScoredRecord{
		{Record: older, Score: 0.7},
		{Record: best, Score: 0.9},
		{Record: newer, Score: 0.7},
	}}
	r := newTestResolver(t, store)

	results, err := r.Query(context.Background(), memory.Query{
		Text:          "anything",
		Scopes:        []memory.Scope{memory.ScopeGlobal},
		PersonalityID: "p",
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "best", results[0].Record.ID)
	// Equal scores: newest first.
	require.Equal(t, "newer", results[1].Record.ID)
	require.Equal(t, "older", results[2].Record.ID)
}

func TestQuery_EngineUnavailableSkipsRetrieval(t *testing.T) {
	mdl := mock.New()
	mdl.LoadErr = errors.New("no model")
	eng, err := embedding.New(mdl, embedding.Config{})
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	store := &captureStore{results: []memory.ScoredRecord{{Record: &memory.Record{ID: "x"}, Score: 1}}}
	r := memory.NewResolver(eng, store, memory.ResolverConfig{})

	results, err := r.Query(context.Background(), memory.Query{
		Text:          "anything",
		Scopes:        []memory.Scope{memory.ScopeGlobal},
		PersonalityID: "p",
	})
	require.NoError(t, err)
	require.Empty(t, results)
	// The store was never consulted.
	require.Empty(t, store.lastFilter.PersonalityID)
}

func TestRecordValidate(t *testing.T) {
	valid := memory.NewRecord("lilith", memory.ScopeGlobal, "likes tea")
	require.NoError(t, valid.Validate())

	personal := memory.NewRecord("lilith", memory.ScopePersonal, "user fact")
	require.Error(t, personal.Validate())
	personal.UserID = "user-1"
	require.NoError(t, personal.Validate())

	session := memory.NewRecord("lilith", memory.ScopeSession, "session fact")
	require.Error(t, session.Validate())
	session.SessionID = "sess-1"
	require.NoError(t, session.Validate())

	unscoped := memory.NewRecord("lilith", "weird", "x")
	require.Error(t, unscoped.Validate())
}
