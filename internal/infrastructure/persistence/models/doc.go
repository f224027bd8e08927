// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - entity.go: trading partners, merit audit trail and the market price index
//   - ledger.go: documents, line items, obligation buckets, settlements and review queues
//
// Identifiers minted by the domain (uuid.UUID) are stored as varchar(36) so the same
// schema runs on PostgreSQL and SQLite.
package models
