package allocation

import (
	"fmt"

	"github.com/google/uuid"
)

// Distribution groups the allocations computed for one cred snapshot. The
// timestamp names the cred evaluation time, not the wall clock of the
// computation; deciding when distributions happen is the caller's business.
type Distribution struct {
	ID              uuid.UUID    `json:"id"`
	CredTimestampMs int64        `json:"credTimestampMs"`
	Allocations     []Allocation `json:"allocations"`
}

// ComputeDistribution runs every policy over the same identity snapshot and
// groups the results. One failing policy fails the whole distribution; no
// partial batch is ever returned.
func ComputeDistribution(credTimestampMs int64, policies []Policy, ids []Identity) (Distribution, error) {
	if len(policies) == 0 {
		return Distribution{}, ErrNoPolicies
	}

	allocs := make([]Allocation, 0, len(policies))
	for _, p := range policies {
		a, err := ComputeAllocation(p, ids)
		if err != nil {
			return Distribution{}, fmt.Errorf("%s policy: %w", p.Kind, err)
		}
		allocs = append(allocs, a)
	}

	return Distribution{
		ID:              uuid.New(),
		CredTimestampMs: credTimestampMs,
		Allocations:     allocs,
	}, nil
}
