// Package models defines the core domain models for tripmate.
//
// # Models
//
//   - ExpenseItem: one shared or private expense, split equally among its beneficiaries
//   - ItineraryItem: one scheduled activity, grouped by day and ordered by time
//   - Photo: one gallery entry, held either locally or by the remote trip store
//   - UserSession: the device-local identity (display name + avatar)
//
// Participants are identified by display name strings throughout. There is no
// stable participant id: the name is the join key across expenses, the roster,
// itinerary authorship and the session identity. Renaming a participant therefore
// breaks the join. This is a known limitation carried over deliberately; the
// settlement math compensates by deriving its participant universe from the
// expense list itself, so a name removed from the roster keeps its debts.
//
// # Design principles
//
//  1. Models are plain data. All derived figures (balances, transfers) are pure
//     projections computed elsewhere and never stored.
//  2. JSON field names match the persisted wire format of both stores, so one
//     struct serves the local KV store and the remote trip store.
//  3. Legacy records are migrated on read, never rewritten in place.
package models
