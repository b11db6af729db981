package allocation

import (
	"fmt"
	"math"
	"strings"

	"github.com/meskan/granary/internal/domain/grain"
)

// IdentityID names a payable identity.
type IdentityID string

// NewIdentityID validates and returns an identity id.
func NewIdentityID(s string) (IdentityID, error) {
	if strings.TrimSpace(s) == "" {
		return "", ErrInvalidIdentity
	}
	return IdentityID(s), nil
}

// Identity couples an id with its cred history and its lifetime payout
// total. Cred holds one non-negative score per completed interval, oldest
// first; Paid can never be negative because Amount forbids it.
type Identity struct {
	ID   IdentityID
	Cred []float64
	Paid grain.Amount
}

// identityStats carries the per-identity precomputation shared by the
// policies, so no policy walks the cred series twice.
type identityStats struct {
	lifetime float64
	latest   float64
}

// validateIdentities checks the roster invariants and precomputes lifetime
// and latest cred per identity. Every compute path runs through here before
// touching a weight.
func validateIdentities(ids []Identity) ([]identityStats, error) {
	if len(ids) == 0 {
		return nil, ErrNoIdentities
	}

	stats := make([]identityStats, len(ids))
	seen := make(map[IdentityID]struct{}, len(ids))
	seriesLen := len(ids[0].Cred)
	anyCred := false

	for i, id := range ids {
		if strings.TrimSpace(string(id.ID)) == "" {
			return nil, fmt.Errorf("%w: index %d", ErrInvalidIdentity, i)
		}
		if _, dup := seen[id.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateIdentity, id.ID)
		}
		seen[id.ID] = struct{}{}

		if len(id.Cred) != seriesLen {
			return nil, fmt.Errorf("%w: %q has %d intervals, want %d",
				ErrCredMismatch, id.ID, len(id.Cred), seriesLen)
		}

		var lifetime float64
		for t, s := range id.Cred {
			if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
				return nil, fmt.Errorf("%w: %q interval %d holds %v", ErrInvalidCred, id.ID, t, s)
			}
			lifetime += s
		}

		var latest float64
		if seriesLen > 0 {
			latest = id.Cred[seriesLen-1]
		}
		stats[i] = identityStats{lifetime: lifetime, latest: latest}
		if lifetime > 0 {
			anyCred = true
		}
	}

	if !anyCred {
		return nil, ErrZeroCred
	}
	return stats, nil
}
