package ledger

import (
	"strings"

	"github.com/meritledger/backend/internal/domain/shared"
)

// DocumentType identifies which of the four ledgers a document belongs to
type DocumentType string

const (
	// DocumentTypeInvoiceReceived is an invoice the entity issued to us (we owe them)
	DocumentTypeInvoiceReceived DocumentType = "inv_rec"
	// DocumentTypeInvoiceSent is an invoice we issued to the entity (they owe us)
	DocumentTypeInvoiceSent DocumentType = "inv_sent"
	// DocumentTypeReceiptReceived is a receipt handed to us after we paid the entity
	DocumentTypeReceiptReceived DocumentType = "rec_rec"
	// DocumentTypeReceiptSent is a receipt we issued after the entity paid us
	DocumentTypeReceiptSent DocumentType = "rec_sent"
)

// AllDocumentTypes returns every document type
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeInvoiceReceived,
		DocumentTypeInvoiceSent,
		DocumentTypeReceiptReceived,
		DocumentTypeReceiptSent,
	}
}

// ParseDocumentType parses the wire representation of a document type
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidDocumentType, "Unknown document type: "+s)
	}
	return t, nil
}

// IsValid checks if the type is one of the four ledgers
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeInvoiceReceived, DocumentTypeInvoiceSent,
		DocumentTypeReceiptReceived, DocumentTypeReceiptSent:
		return true
	}
	return false
}

// String returns the string representation
func (t DocumentType) String() string {
	return string(t)
}

// IsInvoice reports whether documents of this type open obligation buckets
func (t DocumentType) IsInvoice() bool {
	return t == DocumentTypeInvoiceReceived || t == DocumentTypeInvoiceSent
}

// IsReceipt reports whether documents of this type settle obligation buckets
func (t DocumentType) IsReceipt() bool {
	return t == DocumentTypeReceiptReceived || t == DocumentTypeReceiptSent
}

// BucketSide returns the side of the buckets an invoice opens
func (t DocumentType) BucketSide() (BucketSide, bool) {
	switch t {
	case DocumentTypeInvoiceSent:
		return BucketSideReceivable, true
	case DocumentTypeInvoiceReceived:
		return BucketSidePayable, true
	}
	return "", false
}

// SettlesSide returns the side of the buckets a receipt fills
func (t DocumentType) SettlesSide() (BucketSide, bool) {
	switch t {
	case DocumentTypeReceiptSent:
		return BucketSideReceivable, true
	case DocumentTypeReceiptReceived:
		return BucketSidePayable, true
	}
	return "", false
}

// BucketSide tells whether a bucket tracks money owed to us or money we owe
type BucketSide string

const (
	BucketSideReceivable BucketSide = "receivable"
	BucketSidePayable    BucketSide = "payable"
)

// InvoiceType returns the invoice ledger whose buckets live on this side
func (s BucketSide) InvoiceType() DocumentType {
	if s == BucketSideReceivable {
		return DocumentTypeInvoiceSent
	}
	return DocumentTypeInvoiceReceived
}
