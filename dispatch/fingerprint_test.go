package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bytefold/recall/core"
)

func TestFingerprint_StableAcrossFormatting(t *testing.T) {
	a := &core.GenerationRequest{
		PersonalityID: "lilith",
		UserID:        "alice",
		ContextID:     "chan-1",
		Message:       "Hello   there,\nfriend",
	}
	b := &core.GenerationRequest{
		PersonalityID: "lilith",
		UserID:        "alice",
		ContextID:     "chan-1",
		Message:       "hello there, friend",
	}
	require.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_DistinguishesIdentity(t *testing.T) {
	base := core.GenerationRequest{
		PersonalityID: "lilith",
		UserID:        "alice",
		ContextID:     "chan-1",
		Message:       "hello",
	}

	otherPersonality := base
	otherPersonality.PersonalityID = "morgan"
	otherUser := base
	otherUser.UserID = "bob"
	otherContext := base
	otherContext.ContextID = "chan-2"
	otherMessage := base
	otherMessage.Message = "goodbye"

	fp := Fingerprint(&base)
	require.NotEqual(t, fp, Fingerprint(&otherPersonality))
	require.NotEqual(t, fp, Fingerprint(&otherUser))
	require.NotEqual(t, fp, Fingerprint(&otherContext))
	require.NotEqual(t, fp, Fingerprint(&otherMessage))
}

func TestBlackoutKey_FallsBackToUser(t *testing.T) {
	dm := &core.GenerationRequest{PersonalityID: "lilith", UserID: "alice"}
	channel := &core.GenerationRequest{PersonalityID: "lilith", UserID: "alice", ContextID: "chan-1"}

	require.NotEqual(t, BlackoutKey(dm), BlackoutKey(channel))
	require.Contains(t, BlackoutKey(dm), "alice")
}
