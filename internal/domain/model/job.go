// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/meskan/granary/internal/domain/allocation"
)

// DistributionJob represents a distribution request submitted by clients.
// Fields mirror the JSON schema for /distributions.
type DistributionJob struct {
	RequestID       string                // unique id for idempotency
	CredTimestampMs int64                 // cred snapshot the payout is computed against
	Identities      []allocation.Identity // roster with cred history and paid totals
	Policies        []allocation.Policy   // one allocation per policy
	SubmittedAt     time.Time             // server-side receipt time
}
