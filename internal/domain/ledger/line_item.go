package ledger

import (
	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LineItem is one priced row of a document. Its settled amount is the
// settled quantity valued at the line's own unit price, capped at the
// obligated amount.
type LineItem struct {
	ID              uint64
	DocumentID      string
	Name            string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	TaxRate         decimal.Decimal
	AmountObligated decimal.Decimal
	QtySettled      decimal.Decimal
	AmountSettled   decimal.Decimal
	Status          Status
}

// NewLineItem creates an unsettled line item
func NewLineItem(documentID, name string, quantity, unitPrice, taxRate decimal.Decimal) (*LineItem, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ITEM", "Line item name cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Line item quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidPrice, "Line item unit price cannot be negative")
	}
	item := &LineItem{
		DocumentID:      documentID,
		Name:            name,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		TaxRate:         taxRate,
		AmountObligated: quantity.Mul(unitPrice),
		QtySettled:      decimal.Zero,
		AmountSettled:   decimal.Zero,
	}
	item.refreshStatus()
	return item, nil
}

// merge folds another row with the same name into this one
func (li *LineItem) merge(other *LineItem) {
	li.Quantity = li.Quantity.Add(other.Quantity)
	li.AmountObligated = li.AmountObligated.Add(other.AmountObligated)
	li.UnitPrice = li.AmountObligated.DivRound(li.Quantity, 4)
	li.refreshStatus()
}

// SettleQuantity records qty units as settled and returns the amount added
func (li *LineItem) SettleQuantity(qty decimal.Decimal) (decimal.Decimal, error) {
	if !qty.IsPositive() {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidQuantity, "Settled quantity must be positive")
	}
	before := li.AmountSettled
	li.QtySettled = li.QtySettled.Add(qty)
	if li.QtySettled.GreaterThanOrEqual(li.Quantity) {
		li.AmountSettled = li.AmountObligated
	} else {
		li.AmountSettled = decimal.Min(li.QtySettled.Mul(li.UnitPrice), li.AmountObligated)
	}
	li.refreshStatus()
	return li.AmountSettled.Sub(before), nil
}

// Outstanding returns the amount still to be settled
func (li *LineItem) Outstanding() decimal.Decimal {
	return li.AmountObligated.Sub(li.AmountSettled)
}

func (li *LineItem) refreshStatus() {
	li.Status = DeriveStatus(li.AmountSettled, li.AmountObligated)
}
