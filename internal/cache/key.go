package cache

import (
	"crypto/sha256"
	"fmt"
)

// Fingerprint returns the deterministic content hash used as the text part
// of a cache key. Equal inputs always hash to the same value, also across
// process restarts, so fingerprints are safe to persist.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum[:])
}

// Key addresses one cached analysis response: the same text analyzed by two
// different experts, or in two different modes, maps to two distinct keys.
type Key struct {
	ExpertID    string
	Mode        string
	Fingerprint string
}

// NewKey computes the key for the given source text, expert and mode.
func NewKey(text, expertID, mode string) Key {
	return Key{
		ExpertID:    expertID,
		Mode:        mode,
		Fingerprint: Fingerprint(text),
	}
}

// String renders the key in its storage form, e.g. "E2_SKILL_7a8b9c...".
func (k Key) String() string {
	return fmt.Sprintf("%s_%s_%s", k.ExpertID, k.Mode, k.Fingerprint)
}
