package testpayouts

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/shopspring/decimal"
)

// verifyResults checks that every allocation conserves its budget and that
// the earnings board agrees with the summed receipts.
func verifyResults(ctx context.Context, config *Config, results []DistributionResponse, ranks, earners []Entry, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if len(results) == 0 {
		return fmt.Errorf("no distributions to verify")
	}

	expected, err := verifyConservation(results, stats)
	if err != nil {
		return err
	}

	// Cross-check the board if we have board data
	if len(ranks) > 0 || len(earners) > 0 {
		if err := verifyBoardConsistency(expected, ranks, earners); err != nil {
			log.Printf("⚠️  Earnings board consistency warning: %v", err)
		} else {
			log.Println("✅ Earnings board consistency verified")
		}
	}

	// Display top earners
	displayTopEarners(ranks, earners, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyConservation checks that the receipts of every allocation sum
// exactly to its budget, and returns the per-identity totals implied by the
// receipts. Amounts are compared as decimals, never floats.
func verifyConservation(results []DistributionResponse, stats *Stats) (map[string]decimal.Decimal, error) {
	expected := make(map[string]decimal.Decimal)
	totalGrain := decimal.Zero
	checked := 0
	violations := 0

	for _, result := range results {
		for _, alloc := range result.Distribution.Allocations {
			budget, err := decimal.NewFromString(alloc.Policy.Budget)
			if err != nil {
				return nil, fmt.Errorf("bad budget in distribution %s: %w", result.RequestID, err)
			}

			sum := decimal.Zero
			for _, receipt := range alloc.Receipts {
				amount, err := decimal.NewFromString(receipt.Amount)
				if err != nil {
					return nil, fmt.Errorf("bad receipt amount in distribution %s: %w", result.RequestID, err)
				}
				sum = sum.Add(amount)
				expected[receipt.ID] = expected[receipt.ID].Add(amount)
			}

			checked++
			if !sum.Equal(budget) {
				violations++
				log.Printf("⚠️  Conservation violation in %s: receipts sum to %s, budget is %s",
					result.RequestID, sum.String(), budget.String())
			}
			totalGrain = totalGrain.Add(sum)
		}
	}

	stats.AllocationsChecked = checked
	stats.ConservationViolations = violations
	stats.GrainDistributed = totalGrain.String()

	if violations > 0 {
		return nil, fmt.Errorf("%d of %d allocations violated conservation", violations, checked)
	}

	log.Printf("✅ Conservation verified across %d allocations (%s grain distributed)", checked, totalGrain.String())
	return expected, nil
}

// verifyBoardConsistency cross-checks board reads against receipt totals and
// checks the top-earners ordering.
func verifyBoardConsistency(expected map[string]decimal.Decimal, ranks, earners []Entry) error {
	for _, entry := range ranks {
		want, ok := expected[entry.IdentityID]
		if !ok {
			return fmt.Errorf("board entry %s has no matching receipts", entry.IdentityID)
		}
		got, err := decimal.NewFromString(entry.Total)
		if err != nil {
			return fmt.Errorf("bad total for %s: %w", entry.IdentityID, err)
		}
		if !got.Equal(want) {
			return fmt.Errorf("board total for %s is %s, receipts sum to %s",
				entry.IdentityID, got.String(), want.String())
		}
	}

	var prev decimal.Decimal
	for i, entry := range earners {
		total, err := decimal.NewFromString(entry.Total)
		if err != nil {
			return fmt.Errorf("bad total for %s: %w", entry.IdentityID, err)
		}
		if entry.Rank < 1 || (i > 0 && entry.Rank < earners[i-1].Rank) {
			return fmt.Errorf("earners rank sequence broken at entry %d", i)
		}
		if i > 0 && total.GreaterThan(prev) {
			return fmt.Errorf("earners not sorted: entry %d outranks entry %d", i, i-1)
		}
		if want, ok := expected[entry.IdentityID]; ok && !total.Equal(want) {
			return fmt.Errorf("earner total for %s is %s, receipts sum to %s",
				entry.IdentityID, total.String(), want.String())
		}
		prev = total
	}

	return nil
}

// displayTopEarners shows the highest earners from rank lookups and the board.
func displayTopEarners(ranks, earners []Entry, verbose bool) {
	type rankedEntry struct {
		entry Entry
		total decimal.Decimal
	}

	sorted := make([]rankedEntry, 0, len(ranks))
	for _, entry := range ranks {
		total, err := decimal.NewFromString(entry.Total)
		if err != nil {
			continue
		}
		sorted = append(sorted, rankedEntry{entry: entry, total: total})
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].total.GreaterThan(sorted[j].total)
	})

	topN := 10
	if len(sorted) < topN {
		topN = len(sorted)
	}

	log.Printf("🏆 Top %d earners from rank lookups:", topN)
	for i := 0; i < topN; i++ {
		log.Printf("   %d. %s - Total: %s", i+1, sorted[i].entry.IdentityID, sorted[i].total.String())
	}

	if len(earners) > 0 {
		boardTopN := topN
		if len(earners) < boardTopN {
			boardTopN = len(earners)
		}

		log.Printf("🥇 Top %d earners from the board:", boardTopN)
		for i := 0; i < boardTopN; i++ {
			entry := earners[i]
			log.Printf("   %d. %s - Total: %s", entry.Rank, entry.IdentityID, entry.Total)
		}
	}

	if verbose && len(sorted) > 0 {
		// Show some statistics
		sum := decimal.Zero
		for _, ranked := range sorted {
			sum = sum.Add(ranked.total)
		}
		avgTotal := sum.Div(decimal.NewFromInt(int64(len(sorted))))
		maxTotal := sorted[0].total
		minTotal := sorted[len(sorted)-1].total

		log.Printf(`📊 Earnings statistics:
   Average: %s
   Maximum: %s
   Minimum: %s
`, avgTotal.StringFixed(2), maxTotal.String(), minTotal.String())
	}
}
