package testpayouts

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/meskan/granary/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	requestIDDivisor   = 10000
	profileDivisor     = 8
	policyKindDivisor  = 4
)

// Constants for cred generation ranges per contributor profile.
const (
	steadyMin         = 3.0
	steadyRange       = 4.0
	prolificMin       = 7.0
	prolificRange     = 2.0
	occasionalMin     = 0.1
	occasionalRange   = 2.9
	eliteMin          = 9.0
	eliteRange        = 1.0
	newcomerMin       = 0.5
	newcomerRange     = 1.5
	veteranStartMin   = 6.0
	veteranStartRange = 2.0
	veteranDecay      = 0.6
	veteranFloor      = 0.1
	rampStartMin      = 0.1
	rampStartRange    = 0.4
	rampStep          = 1.0
	erraticMin        = 0.1
	erraticRange      = 9.9
)

// Constants for contributor profile cases.
const (
	profileSteady     = 0
	profileProlific   = 1
	profileOccasional = 2
	profileElite      = 3
	profileNewcomer   = 4
	profileVeteran    = 5
	profileRamping    = 6
	profileErratic    = 7
)

// Constants for policy budget and discount ranges.
const (
	balancedBudgetMin    = 500.0
	balancedBudgetRange  = 1500.0
	immediateBudgetMin   = 100.0
	immediateBudgetRange = 400.0
	recentBudgetMin      = 100.0
	recentBudgetRange    = 400.0
	specialBudgetMin     = 10.0
	specialBudgetRange   = 90.0
	recentDiscountMin    = 0.05
	recentDiscountRange  = 0.45
)

// Constants for policy kind cases.
const (
	casePolicyBalanced  = 0
	casePolicyImmediate = 1
	casePolicyRecent    = 2
	casePolicySpecial   = 3
)

// Memos attached to generated SPECIAL policies.
var specialMemos = []string{
	"community fund",
	"maintainer stipend",
	"audit bounty",
	"infrastructure grant",
}

// poolIdentity is one member of the shared earner pool.
type poolIdentity struct {
	id      string
	profile int64
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randIndex returns a random index below n using crypto/rand.
func randIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateRequests creates the shared earner pool and the configured number
// of distribution requests over it.
func generateRequests(ctx context.Context, config *Config, stats *Stats) ([]DistributionRequest, error) {
	switch {
	case config.NumRequests < 1:
		return nil, fmt.Errorf("number of requests must be positive, got %d", config.NumRequests)
	case config.NumIdentities < 1:
		return nil, fmt.Errorf("number of identities must be positive, got %d", config.NumIdentities)
	case config.NumIntervals < 1:
		return nil, fmt.Errorf("number of intervals must be positive, got %d", config.NumIntervals)
	case config.NumPolicies < 1:
		return nil, fmt.Errorf("number of policies must be positive, got %d", config.NumPolicies)
	}

	logger.Get().Info(ctx, "generating distribution requests over a shared earner pool",
		logger.Int("numRequests", config.NumRequests),
		logger.Int("numIdentities", config.NumIdentities),
		logger.Int("numIntervals", config.NumIntervals),
		logger.Int("numPolicies", config.NumPolicies))

	pool := generateIdentityPool(config.NumIdentities)

	requests := make([]DistributionRequest, config.NumRequests)

	// Generate requests concurrently
	type requestResult struct {
		index   int
		request DistributionRequest
		err     error
	}

	resultChan := make(chan requestResult, config.NumRequests)

	// Use worker pool for request generation
	workerCount := minInt(config.Workers, config.NumRequests)
	if workerCount < 1 {
		workerCount = 1
	}
	requestsPerWorker := config.NumRequests / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * requestsPerWorker
		end := start + requestsPerWorker
		if worker == workerCount-1 {
			end = config.NumRequests // Last worker gets remaining requests
		}

		go func(_ int, start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- requestResult{index: i, err: ctx.Err()}
					return
				default:
					request := generateSingleRequest(i, pool, config)
					resultChan <- requestResult{index: i, request: request, err: nil}
				}
			}
		}(worker, start, end)
	}

	// Collect results
	for i := 0; i < config.NumRequests; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during request generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate request %d: %w", result.index, result.err)
			}
			requests[result.index] = result.request
		}
	}

	stats.RequestsGenerated = len(requests)
	logger.Get().Info(ctx, "generated requests successfully", logger.Int("count", len(requests)))

	return requests, nil
}

// generateIdentityPool creates the shared earner pool with stable ids and
// contributor profiles. The same roster rides along in every request so
// earnings accumulate across distributions.
func generateIdentityPool(size int) []poolIdentity {
	pool := make([]poolIdentity, size)
	for i := range pool {
		profile, _ := rand.Int(rand.Reader, big.NewInt(profileDivisor))
		pool[i] = poolIdentity{
			id:      uuid.New().String(),
			profile: profile.Int64(),
		}
	}
	return pool
}

// generateSingleRequest creates one distribution request over the shared pool.
func generateSingleRequest(index int, pool []poolIdentity, config *Config) DistributionRequest {
	identities := make([]IdentityPayload, len(pool))
	for i, member := range pool {
		identities[i] = IdentityPayload{
			ID:   member.id,
			Cred: generateCredSeries(member.profile, config.NumIntervals),
			Paid: "0",
		}
	}

	// Generate unique request ID
	randNum, _ := rand.Int(rand.Reader, big.NewInt(requestIDDivisor))
	requestID := "payout_" + strconv.FormatInt(int64(index), 10) + "_" + strconv.FormatInt(time.Now().Unix(), 10) + "_" + strconv.FormatInt(randNum.Int64(), 10)

	return DistributionRequest{
		RequestID:       requestID,
		CredTimestampMs: time.Now().UnixMilli(),
		Identities:      identities,
		Policies:        generatePolicies(pool, config.NumPolicies),
	}
}

// generateCredSeries produces one cred series for the given contributor
// profile. Every profile keeps the latest interval positive so each policy
// kind has a usable weight source.
func generateCredSeries(profile int64, intervals int) []float64 {
	cred := make([]float64, intervals)
	switch profile {
	case profileSteady:
		// Steady contributors (3.0 - 7.0) - most common
		for i := range cred {
			cred[i] = steadyMin + getRandomFloat()*steadyRange
		}
	case profileProlific:
		// Prolific contributors (7.0 - 9.0)
		for i := range cred {
			cred[i] = prolificMin + getRandomFloat()*prolificRange
		}
	case profileOccasional:
		// Occasional contributors (0.1 - 3.0)
		for i := range cred {
			cred[i] = occasionalMin + getRandomFloat()*occasionalRange
		}
	case profileElite:
		// Elite contributors (9.0 - 10.0) - rare
		for i := range cred {
			cred[i] = eliteMin + getRandomFloat()*eliteRange
		}
	case profileNewcomer:
		// Nothing before the latest interval
		cred[intervals-1] = newcomerMin + getRandomFloat()*newcomerRange
	case profileVeteran:
		// Early activity that decays toward a floor
		value := veteranStartMin + getRandomFloat()*veteranStartRange
		for i := range cred {
			cred[i] = value
			value *= veteranDecay
			if value < veteranFloor {
				value = veteranFloor
			}
		}
	case profileRamping:
		// Activity that grows interval over interval
		value := rampStartMin + getRandomFloat()*rampStartRange
		for i := range cred {
			cred[i] = value
			value += rampStep
		}
	case profileErratic:
		// Random across full range (0.1 - 10.0)
		for i := range cred {
			cred[i] = erraticMin + getRandomFloat()*erraticRange
		}
	default:
		for i := range cred {
			cred[i] = erraticMin + getRandomFloat()*erraticRange
		}
	}
	return cred
}

// generatePolicies creates a varied policy list for one request.
func generatePolicies(pool []poolIdentity, count int) []PolicyPayload {
	policies := make([]PolicyPayload, count)
	for i := range policies {
		kind, _ := rand.Int(rand.Reader, big.NewInt(policyKindDivisor))
		switch kind.Int64() {
		case casePolicyBalanced:
			policies[i] = PolicyPayload{
				PolicyType: "BALANCED",
				Budget:     randomBudget(balancedBudgetMin, balancedBudgetRange),
			}
		case casePolicyImmediate:
			policies[i] = PolicyPayload{
				PolicyType: "IMMEDIATE",
				Budget:     randomBudget(immediateBudgetMin, immediateBudgetRange),
			}
		case casePolicyRecent:
			discount := recentDiscountMin + getRandomFloat()*recentDiscountRange
			policies[i] = PolicyPayload{
				PolicyType: "RECENT",
				Budget:     randomBudget(recentBudgetMin, recentBudgetRange),
				Discount:   &discount,
			}
		case casePolicySpecial:
			memo := specialMemos[randIndex(len(specialMemos))]
			recipient := pool[randIndex(len(pool))].id
			policies[i] = PolicyPayload{
				PolicyType: "SPECIAL",
				Budget:     randomBudget(specialBudgetMin, specialBudgetRange),
				Memo:       &memo,
				Recipient:  &recipient,
			}
		default:
			policies[i] = PolicyPayload{
				PolicyType: "IMMEDIATE",
				Budget:     randomBudget(immediateBudgetMin, immediateBudgetRange),
			}
		}
	}
	return policies
}

// randomBudget formats a random amount in [min, min+span) as a decimal string.
func randomBudget(min, span float64) string {
	return strconv.FormatFloat(min+getRandomFloat()*span, 'f', 2, 64)
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
