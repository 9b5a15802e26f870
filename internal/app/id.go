package app

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// generateComplaintID produces a human-readable identifier of the form
// CCH-<year>-<6-digit millisecond suffix><4-digit random>. Collisions are
// extremely unlikely but possible; the store's uniqueness constraint is the
// real enforcer and the caller retries on conflict.
func generateComplaintID(now time.Time) (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	suffix := now.UnixMilli() % 1_000_000
	random := 1000 + binary.BigEndian.Uint32(b[:])%9000
	return fmt.Sprintf("CCH-%d-%06d%d", now.Year(), suffix, random), nil
}
