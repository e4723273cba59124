// Package eventstore defines the port interface for the append-only
// claim event log.
package eventstore

import (
	"context"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/event"
)

// Store is the port interface for appending and reading claim events.
// There is deliberately no update or delete operation: the audit trail
// records realized history only and is never rewritten.
type Store interface {
	// Append persists a new event to the log.
	Append(ctx context.Context, ev *event.ClaimEvent) error

	// ListByClaim returns all events for the given claim in insertion order.
	ListByClaim(ctx context.Context, claimID string) ([]event.ClaimEvent, error)
}
