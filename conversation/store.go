package conversation

import (
	"context"
	"strings"

	"github.com/poiesic/graphqa/core"
)

// Store persists conversation turns keyed by session id.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append records turn under turn.SessionID.
	// A zero Timestamp is set to the current time.
	Append(ctx context.Context, turn core.Turn) error

	// History returns the most recent turns of a session, oldest first.
	// A limit of zero or less returns every turn.
	History(ctx context.Context, sessionID string, limit int) ([]core.Turn, error)

	// Clear removes every turn of a session.
	Clear(ctx context.Context, sessionID string) error

	// Close releases the underlying storage.
	Close() error
}

// ValidateSessionID checks that id can key a session.
func ValidateSessionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrSessionIDRequired
	}
	return nil
}
