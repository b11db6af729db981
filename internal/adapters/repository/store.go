// Package repository defines the earnings store interface and errors.
package repository

import (
	"context"

	"github.com/meskan/granary/internal/domain/allocation"
	"github.com/meskan/granary/internal/domain/grain"
)

// Entry represents an earnings board row.
type Entry struct {
	Rank       int
	IdentityID allocation.IdentityID
	Total      grain.Amount
	Receipts   int
	LastCredMs int64
}

// Store provides read/write access to recorded distributions and the
// earnings board built from their receipts.
type Store interface {
	// SaveDistribution records a distribution under its request id and
	// credits every receipt to the earnings board.
	// Returns ErrDistributionExists if the request id was already recorded.
	SaveDistribution(ctx context.Context, requestID string, dist allocation.Distribution) error

	// Distribution returns the distribution recorded for a request id.
	// Returns ErrNotFound if the request id is unknown.
	Distribution(ctx context.Context, requestID string) (allocation.Distribution, error)

	// Earnings returns the current rank and lifetime total for an identity.
	// Returns ErrNotFound if the identity has never received a receipt.
	Earnings(ctx context.Context, id allocation.IdentityID) (Entry, error)

	// TopEarners returns the top-N entries ordered by total desc.
	TopEarners(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of identities tracked on the earnings board.
	Count(ctx context.Context) int

	// DistributionCount returns the number of recorded distributions.
	DistributionCount(ctx context.Context) int
}
