package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// EntitySortFields contains allowed sort fields for entities
var EntitySortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"merit":      true,
	"streak":     true,
	"debt":       true,
}

// DocumentSortFields contains allowed sort fields for documents
var DocumentSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"issue_date": true,
	"total":      true,
	"status":     true,
	"type":       true,
}

// orderClause builds a whitelisted ORDER BY clause with id as the tiebreaker
func orderClause(field, dir string, allowed map[string]bool, defaultField string) string {
	col := ValidateSortField(field, allowed, defaultField)
	order := col + " " + ValidateSortOrder(dir)
	if col != "id" {
		order += ", id ASC"
	}
	return order
}

// pageBounds normalizes page and page size into offset and limit
func pageBounds(page, pageSize int) (offset, limit int) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 500 {
		pageSize = 500
	}
	if page <= 0 {
		page = 1
	}
	return (page - 1) * pageSize, pageSize
}
