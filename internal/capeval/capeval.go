// Package capeval implements the CAP evaluator (spec §4.6): a pure
// function over ordered order-book ticks that decides whether the entry
// price stayed at or below the configured cap for a sustained run of
// ticks inside [confirm_ts, end_ts].
package capeval

import (
	"sort"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/shopspring/decimal"
)

// Params bundles the evaluation window and thresholds.
type Params struct {
	ConfirmTS    int64
	EndTS        int64
	PriceCap     decimal.Decimal
	CapMinTicks  int
	Now          int64
}

// Result is the CAP verdict plus the fields a CapCheck row needs.
type Result struct {
	Status           domain.CapStatus
	ConsecutiveTicks int
	FirstPassTS      *int64
	PriceAtPass      *decimal.Decimal
}

// Evaluate runs the §4.6 algorithm over ticks. ticks need not be sorted
// or pre-filtered; Evaluate discards pre-confirm ticks (MG-2) and sorts
// the remainder by timestamp before scanning.
func Evaluate(ticks []domain.PriceTick, p Params) Result {
	if p.ConfirmTS >= p.EndTS {
		return Result{Status: domain.CapStatusLate}
	}

	kept := make([]domain.PriceTick, 0, len(ticks))
	for _, t := range ticks {
		if t.TS < p.ConfirmTS {
			continue // MG-2: pre-confirm ticks never count
		}
		if t.TS > p.EndTS {
			continue
		}
		kept = append(kept, t)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].TS < kept[j].TS
	})

	run := 0
	for _, t := range kept {
		if t.Price.LessThanOrEqual(p.PriceCap) {
			run++
		} else {
			run = 0 // a gap invalidates the prior run
			continue
		}
		if run >= p.CapMinTicks {
			ts := t.TS
			price := t.Price
			return Result{
				Status:           domain.CapStatusPass,
				ConsecutiveTicks: run,
				FirstPassTS:      &ts,
				PriceAtPass:      &price,
			}
		}
	}

	if p.Now >= p.EndTS {
		return Result{Status: domain.CapStatusFail, ConsecutiveTicks: run}
	}

	return Result{Status: domain.CapStatusPending, ConsecutiveTicks: run}
}
