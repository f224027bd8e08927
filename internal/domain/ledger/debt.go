package ledger

import "github.com/shopspring/decimal"

// DebtBreakdown is the net balance with an entity.
// Net is positive when the entity owes us and negative when we owe it.
type DebtBreakdown struct {
	Receivable decimal.Decimal
	Payable    decimal.Decimal
	Net        decimal.Decimal
}

// ComputeDebt sums obligated minus settled over the invoices we sent to the
// entity and subtracts the same sum over the invoices it sent to us.
func ComputeDebt(receivable, payable []LineItem) DebtBreakdown {
	r := decimal.Zero
	for i := range receivable {
		r = r.Add(receivable[i].Outstanding())
	}
	p := decimal.Zero
	for i := range payable {
		p = p.Add(payable[i].Outstanding())
	}
	return DebtBreakdown{
		Receivable: r,
		Payable:    p,
		Net:        r.Sub(p),
	}
}
