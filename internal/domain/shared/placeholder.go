package shared

import "strings"

// placeholderTokens are the literal values extraction emits for a missing field
var placeholderTokens = map[string]struct{}{
	"":        {},
	"N/A":     {},
	"NONE":    {},
	"NULL":    {},
	"UNKNOWN": {},
}

// IsPlaceholder reports whether s carries no information
func IsPlaceholder(s string) bool {
	_, ok := placeholderTokens[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

// Present returns a trimmed copy of s, or nil when s is a placeholder
func Present(s string) *string {
	if IsPlaceholder(s) {
		return nil
	}
	v := strings.TrimSpace(s)
	return &v
}

// PresentPtr is Present for optional inputs
func PresentPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return Present(*s)
}
