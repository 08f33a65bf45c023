// Package models contains GORM persistence models for the marketplace tables.
// Domain types carry no ORM tags; each model converts with ToDomain/FromDomain.
//
//   - catalog.go: product variants with their stock counters
//   - inventory.go: stock reservations
//   - order.go: orders, order items and merchant orders
//   - identity.go: users, profiles and addresses
package models
