package partner

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// DefaultInflationRate is used whenever the market lookup fails
	DefaultInflationRate = 4.0
	// DefaultInflationMultiplier is how many times inflation a hike may reach
	DefaultInflationMultiplier = 2.0
	// UnfairPricePenalty is the merit change applied to a rejected hike
	UnfairPricePenalty = -5

	AcceptedPriceReason = "Price hike within acceptable market bounds."
)

// PricePolicy parameterizes the price-fairness gate
type PricePolicy struct {
	Multiplier float64
	Penalty    int
}

// DefaultPricePolicy returns the 2x inflation, -5 merit policy
func DefaultPricePolicy() PricePolicy {
	return PricePolicy{
		Multiplier: DefaultInflationMultiplier,
		Penalty:    UnfairPricePenalty,
	}
}

// PriceDecision is the outcome of the gate. Penalty is zero when accepted.
type PriceDecision struct {
	Accepted    bool    `json:"accepted"`
	Reason      string  `json:"reason"`
	IncreasePct float64 `json:"increase_pct"`
	Inflation   float64 `json:"inflation"`
	Penalty     int     `json:"penalty"`
}

// Evaluate compares the percentage increase from prior to next against the
// allowed multiple of inflation. With no positive prior price there is no
// baseline and the price is accepted.
func (p PricePolicy) Evaluate(prior, next decimal.Decimal, inflation float64) PriceDecision {
	if !prior.IsPositive() {
		return PriceDecision{Accepted: true, Reason: AcceptedPriceReason, Inflation: inflation}
	}
	pct := next.Sub(prior).Div(prior).Mul(decimal.NewFromInt(100))
	limit := decimal.NewFromFloat(inflation).Mul(decimal.NewFromFloat(p.Multiplier))
	pctValue := pct.InexactFloat64()

	if pct.GreaterThan(limit) {
		return PriceDecision{
			Accepted:    false,
			Reason:      fmt.Sprintf("Unfair price hike: %.1f%% vs %.1f%% inflation", pctValue, inflation),
			IncreasePct: pctValue,
			Inflation:   inflation,
			Penalty:     p.Penalty,
		}
	}
	return PriceDecision{
		Accepted:    true,
		Reason:      AcceptedPriceReason,
		IncreasePct: pctValue,
		Inflation:   inflation,
	}
}

// MarketPrice is the last unit price seen from an entity for an item
type MarketPrice struct {
	EntityID  string
	ItemName  string
	UnitPrice decimal.Decimal
}
