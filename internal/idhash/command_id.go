package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeCommandID computes a deterministic command id using SHA256.
// Formula: SHA256(signal_id|leg)
// Returns hex-encoded hash (64 characters).
//
// Replaying the same signal always yields the same ids, so the two legs of
// one arbitrage signal stay distinguishable and retries stay idempotent.
func ComputeCommandID(signalID, leg string) string {
	data := fmt.Sprintf("%s|%s", signalID, leg)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
