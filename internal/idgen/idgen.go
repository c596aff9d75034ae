// Package idgen generates identifiers for members and story messages.
package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewMemberID returns an opaque per-session member identifier.
func NewMemberID() string {
	return uuid.NewString()
}

// NewMessageID returns a lexicographically sortable id for a story message.
// Messages are append-only, so time-ordered ids keep the log ordering
// visible in the ids themselves.
func NewMessageID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}
