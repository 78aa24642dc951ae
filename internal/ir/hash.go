package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainDecision is the domain prefix for decision ids. The version suffix
// leaves room for a future change of the hashed fields.
const DomainDecision = "continual-learning/decision/v1"

// hashWithDomain computes SHA-256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DecisionID computes the content-addressed id of one evaluated invocation.
// The same event evaluated at the same millisecond with the same reason
// always maps to the same id, which lets journal writes be idempotent.
func DecisionID(conversationID, generationID, reason string, decidedAtMs int64) (string, error) {
	obj := map[string]any{
		"conversation_id": conversationID,
		"generation_id":   generationID,
		"reason":          reason,
		"decided_at_ms":   decidedAtMs,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("DecisionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDecision, canonical), nil
}

// MustDecisionID is like DecisionID but panics on error.
// All inputs are strings and ints, so marshaling cannot fail in practice.
func MustDecisionID(conversationID, generationID, reason string, decidedAtMs int64) string {
	id, err := DecisionID(conversationID, generationID, reason, decidedAtMs)
	if err != nil {
		panic(err)
	}
	return id
}
