package engine

import "github.com/google/uuid"

// newUUID mints a packet identifier for trace emission. A thin wrapper so
// every emit call site doesn't need its own import.
func newUUID() uuid.UUID {
	return uuid.New()
}
