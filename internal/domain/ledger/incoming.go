package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DateLayout is the only date format accepted from extraction
const DateLayout = "2006-01-02"

var validate = validator.New(validator.WithRequiredStructEnabled())

// FlexDecimal decodes JSON numbers, numeric strings and placeholder tokens.
// Placeholders and null leave Valid false.
type FlexDecimal struct {
	Value decimal.Decimal
	Valid bool
}

// NewFlexDecimal wraps a known value
func NewFlexDecimal(d decimal.Decimal) FlexDecimal {
	return FlexDecimal{Value: d, Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexDecimal) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = FlexDecimal{}
		return nil
	}
	s = strings.Trim(s, `"`)
	if shared.IsPlaceholder(s) {
		*f = FlexDecimal{}
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return fmt.Errorf("invalid numeric value %q: %w", s, err)
	}
	*f = FlexDecimal{Value: d, Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler
func (f FlexDecimal) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// RawDocument is the record produced by the extraction collaborator.
// Any string field may carry a placeholder token instead of a value.
type RawDocument struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	EntityID    *string      `json:"entity_id"`
	EntityName  *string      `json:"entity_name"`
	Date        string       `json:"date"`
	DueDate     string       `json:"due_date,omitempty"`
	ReceiptDate string       `json:"receipt_date,omitempty"`
	Total       FlexDecimal  `json:"total"`
	TaxTotal    FlexDecimal  `json:"tax_total"`
	Currency    string       `json:"currency,omitempty"`
	Confidence  *FlexDecimal `json:"confidence,omitempty"`
	Items       []RawItem    `json:"items"`
}

// RawItem is one extracted line
type RawItem struct {
	Name      string      `json:"name"`
	Qty       FlexDecimal `json:"qty"`
	UnitPrice FlexDecimal `json:"unit_price"`
	TaxRate   FlexDecimal `json:"tax_rate"`
}

// IncomingDocument is the normalized, typed form of a RawDocument.
// Absent values are nil, never sentinel strings.
type IncomingDocument struct {
	ID         string          `validate:"required,max=128"`
	Type       DocumentType    `validate:"required,oneof=inv_rec inv_sent rec_rec rec_sent"`
	EntityID   *string         `validate:"omitempty,max=64"`
	EntityName *string         `validate:"omitempty,max=255"`
	IssueDate  *time.Time      `validate:"-"`
	Total      decimal.Decimal `validate:"-"`
	TaxTotal   decimal.Decimal `validate:"-"`
	Currency   string          `validate:"max=16"`
	Confidence *float64        `validate:"omitempty,gte=0,lte=100"`
	Items      []IncomingItem  `validate:"dive"`
}

// IncomingItem is a normalized line
type IncomingItem struct {
	Name      string          `validate:"required,max=255"`
	Quantity  decimal.Decimal `validate:"-"`
	UnitPrice decimal.Decimal `validate:"-"`
	TaxRate   decimal.Decimal `validate:"-"`
}

// NormalizeRaw converts placeholders to absent values, parses dates and
// numbers, and validates the result. It is the only place sentinel strings
// are interpreted.
func NormalizeRaw(raw *RawDocument) (*IncomingDocument, error) {
	if raw == nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Document record is required")
	}
	id := shared.Present(raw.ID)
	if id == nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Document id is required")
	}
	docType, err := ParseDocumentType(raw.Type)
	if err != nil {
		return nil, err
	}

	doc := &IncomingDocument{
		ID:         *id,
		Type:       docType,
		EntityID:   shared.PresentPtr(raw.EntityID),
		EntityName: shared.PresentPtr(raw.EntityName),
		IssueDate:  EarliestDate(raw.Date, raw.DueDate, raw.ReceiptDate),
		Total:      raw.Total.Value,
		TaxTotal:   raw.TaxTotal.Value,
		Items:      make([]IncomingItem, 0, len(raw.Items)),
	}
	if c := shared.Present(raw.Currency); c != nil {
		doc.Currency = strings.ToUpper(*c)
	}
	if raw.Confidence != nil && raw.Confidence.Valid {
		c := raw.Confidence.Value.InexactFloat64()
		doc.Confidence = &c
	}

	for i, it := range raw.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf("Item %d has no name", i+1))
		}
		if !it.Qty.Valid || !it.Qty.Value.IsPositive() {
			return nil, shared.NewDomainError(shared.CodeInvalidQuantity, fmt.Sprintf("Item %q must have a positive quantity", name))
		}
		if !it.UnitPrice.Valid || it.UnitPrice.Value.IsNegative() {
			return nil, shared.NewDomainError(shared.CodeInvalidPrice, fmt.Sprintf("Item %q must have a non-negative unit price", name))
		}
		doc.Items = append(doc.Items, IncomingItem{
			Name:      name,
			Quantity:  it.Qty.Value,
			UnitPrice: it.UnitPrice.Value,
			TaxRate:   it.TaxRate.Value,
		})
	}

	if err := validate.Struct(doc); err != nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Invalid document record: "+err.Error())
	}
	return doc, nil
}

// EarliestDate returns the earliest parseable YYYY-MM-DD value, or nil
func EarliestDate(values ...string) *time.Time {
	var earliest *time.Time
	for _, v := range values {
		p := shared.Present(v)
		if p == nil {
			continue
		}
		t, err := time.Parse(DateLayout, *p)
		if err != nil {
			continue
		}
		if earliest == nil || t.Before(*earliest) {
			earliest = &t
		}
	}
	return earliest
}
