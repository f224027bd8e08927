package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	t.Run("IsValid accepts the three states", func(t *testing.T) {
		assert.True(t, StatusIncomplete.IsValid())
		assert.True(t, StatusPartial.IsValid())
		assert.True(t, StatusCompleted.IsValid())
		assert.False(t, Status("Done").IsValid())
	})

	t.Run("only Completed is closed", func(t *testing.T) {
		assert.True(t, StatusIncomplete.IsOpen())
		assert.True(t, StatusPartial.IsOpen())
		assert.False(t, StatusCompleted.IsOpen())
	})
}

func TestDeriveStatus(t *testing.T) {
	ten := decimal.NewFromInt(10)
	tests := []struct {
		name string
		done decimal.Decimal
		want Status
	}{
		{"nothing settled", decimal.Zero, StatusIncomplete},
		{"partly settled", decimal.NewFromInt(4), StatusPartial},
		{"exactly settled", ten, StatusCompleted},
		{"over settled", decimal.NewFromInt(11), StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.done, ten))
		})
	}
}

func TestRollupStatus(t *testing.T) {
	tests := []struct {
		name     string
		children []Status
		want     Status
	}{
		{"no children", nil, StatusIncomplete},
		{"all incomplete", []Status{StatusIncomplete, StatusIncomplete}, StatusIncomplete},
		{"one partial", []Status{StatusIncomplete, StatusPartial}, StatusPartial},
		{"one completed", []Status{StatusCompleted, StatusIncomplete}, StatusPartial},
		{"all completed", []Status{StatusCompleted, StatusCompleted}, StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RollupStatus(tt.children))
		})
	}

	t.Run("is a pure function of its input", func(t *testing.T) {
		children := []Status{StatusPartial, StatusCompleted}
		first := RollupStatus(children)
		assert.Equal(t, first, RollupStatus(children))
		assert.Equal(t, []Status{StatusPartial, StatusCompleted}, children)
	})
}

func TestDocumentType(t *testing.T) {
	t.Run("ParseDocumentType normalizes case", func(t *testing.T) {
		dt, err := ParseDocumentType(" INV_SENT ")
		assert.NoError(t, err)
		assert.Equal(t, DocumentTypeInvoiceSent, dt)
	})

	t.Run("ParseDocumentType rejects unknown types", func(t *testing.T) {
		_, err := ParseDocumentType("credit_note")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Unknown document type")
	})

	t.Run("invoices open buckets and receipts settle them", func(t *testing.T) {
		side, ok := DocumentTypeInvoiceSent.BucketSide()
		assert.True(t, ok)
		assert.Equal(t, BucketSideReceivable, side)

		side, ok = DocumentTypeInvoiceReceived.BucketSide()
		assert.True(t, ok)
		assert.Equal(t, BucketSidePayable, side)

		_, ok = DocumentTypeReceiptSent.BucketSide()
		assert.False(t, ok)

		side, ok = DocumentTypeReceiptSent.SettlesSide()
		assert.True(t, ok)
		assert.Equal(t, BucketSideReceivable, side)
		assert.Equal(t, DocumentTypeInvoiceSent, side.InvoiceType())

		side, ok = DocumentTypeReceiptReceived.SettlesSide()
		assert.True(t, ok)
		assert.Equal(t, DocumentTypeInvoiceReceived, side.InvoiceType())

		_, ok = DocumentTypeInvoiceSent.SettlesSide()
		assert.False(t, ok)
	})

	t.Run("AllDocumentTypes lists the four ledgers", func(t *testing.T) {
		types := AllDocumentTypes()
		assert.Len(t, types, 4)
		for _, dt := range types {
			assert.True(t, dt.IsValid())
			assert.NotEqual(t, dt.IsInvoice(), dt.IsReceipt())
		}
	})
}
