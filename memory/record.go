package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Scope is the visibility tier of a memory record.
type Scope string

const (
	// ScopeGlobal is the shared baseline: no per-user variation.
	ScopeGlobal Scope = "global"

	// ScopePersonal is per user-personality pair.
	ScopePersonal Scope = "personal"

	// ScopeSession is temporary multi-party context, isolated from
	// personal canon unless the caller reconciles them explicitly.
	ScopeSession Scope = "session"
)

// Valid reports whether s is one of the three canon scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopePersonal, ScopeSession:
		return true
	}
	return false
}

// Record is one stored memory. Records are created by the surrounding
// conversation pipeline; this core only reads and filters them.
//
// Invariant: ScopePersonal requires UserID, ScopeSession requires
// SessionID, ScopeGlobal requires neither.
type Record struct {
	ID            string
	PersonalityID string
	Scope         Scope
	UserID        string
	SessionID     string
	Content       string
	CreatedAtMs   int64
	ChannelID     string
	GuildID       string
}

// NewRecord creates a record with a fresh ID and the current timestamp.
func NewRecord(personalityID string, scope Scope, content string) *Record {
	return &Record{
		ID:            uuid.NewString(),
		PersonalityID: personalityID,
		Scope:         scope,
		Content:       content,
		CreatedAtMs:   time.Now().UnixMilli(),
	}
}

// Validate checks the scope-identity invariant.
func (r *Record) Validate() error {
	if r.PersonalityID == "" {
		return fmt.Errorf("memory: record %s has no personality", r.ID)
	}
	if !r.Scope.Valid() {
		return fmt.Errorf("memory: record %s has unknown scope %q", r.ID, r.Scope)
	}
	if r.Scope == ScopePersonal && r.UserID == "" {
		return fmt.Errorf("memory: personal record %s has no user", r.ID)
	}
	if r.Scope == ScopeSession && r.SessionID == "" {
		return fmt.Errorf("memory: session record %s has no session", r.ID)
	}
	return nil
}

// ScoredRecord is a retrieval result: a record with its similarity
// score in [0, 1].
type ScoredRecord struct {
	Record *Record
	Score  float64
}
