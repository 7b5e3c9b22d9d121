package dispatch

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/bytefold/recall/core"
)

// Fingerprint returns a stable hash identifying a generation request
// for in-flight deduplication: same personality, same normalized
// content, same user/context means same fingerprint.
func Fingerprint(req *core.GenerationRequest) string {
	h := sha256.New()
	h.Write([]byte(req.PersonalityID))
	h.Write([]byte{0})
	h.Write([]byte(normalizeContent(req.Message)))
	h.Write([]byte{0})
	h.Write([]byte(req.UserID))
	h.Write([]byte{0})
	h.Write([]byte(req.ContextID))
	return hex.EncodeToString(h.Sum(nil))
}

// BlackoutKey identifies the (personality, context) pair that a
// transient failure escalates. Requests without a context fall back to
// the user so DMs still get a stable key.
func BlackoutKey(req *core.GenerationRequest) string {
	ctx := req.ContextID
	if ctx == "" {
		ctx = req.UserID
	}
	return req.PersonalityID + "\x00" + ctx
}

// normalizeContent case-folds and collapses whitespace so trivial
// formatting differences do not defeat deduplication.
func normalizeContent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
