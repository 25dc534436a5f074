// Package idhash derives deterministic identifiers so that replaying the
// same session produces the same position and event ids.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePositionID computes a deterministic position id using SHA256.
// Formula: SHA256(session_date|direction|entry_time_ms)
// Returns hex-encoded hash (64 characters).
func ComputePositionID(sessionDate, direction string, entryTimeMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", sessionDate, direction, entryTimeMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeEventID computes a deterministic lifecycle-event id.
// Formula: SHA256(position_id|event_type)
func ComputeEventID(positionID, eventType string) string {
	data := fmt.Sprintf("%s|%s", positionID, eventType)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
