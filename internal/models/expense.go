package models

import (
	"strconv"
	"time"
)

// ExpenseItem represents a single expense paid by one participant and split
// equally among its beneficiaries.
type ExpenseItem struct {
	// ID is the unique identifier for the expense, derived from the creation
	// time in milliseconds. It doubles as a chronological sort key.
	ID string `json:"id"`

	// Name is the human-readable label (e.g., "Dinner", "Train tickets").
	Name string `json:"name"`

	// Cost is the full amount paid, in display currency units. Non-negative.
	Cost float64 `json:"cost"`

	// Payer is the display name of the participant who paid.
	Payer string `json:"payer"`

	// SplitBy lists the participants who share this expense. Must be non-empty
	// on new records. When it equals [Payer] the expense is private and nets to
	// zero debt by construction.
	SplitBy []string `json:"splitBy,omitempty"`

	// IsShared is the legacy split flag, superseded by SplitBy. Records written
	// before SplitBy existed carry only this field; Beneficiaries falls back to
	// it when SplitBy is empty.
	IsShared bool `json:"isShared,omitempty"`
}

// NewExpenseID returns a time-derived expense id for the given creation time.
func NewExpenseID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// Beneficiaries resolves who shares this expense: SplitBy when present,
// otherwise the legacy derivation (the whole roster when IsShared, else just
// the payer). The result is never empty for a well-formed record.
func (e ExpenseItem) Beneficiaries(roster []string) []string {
	if len(e.SplitBy) > 0 {
		return e.SplitBy
	}
	if e.IsShared {
		return roster
	}
	return []string{e.Payer}
}

// IsPrivate reports whether the expense is funded entirely by its payer and
// therefore contributes zero net debt.
func (e ExpenseItem) IsPrivate(roster []string) bool {
	b := e.Beneficiaries(roster)
	return len(b) == 1 && b[0] == e.Payer
}

// Migrated returns a copy of the expense with SplitBy populated from the
// legacy IsShared flag. It is idempotent: a record that already carries a
// usable SplitBy comes back unchanged. The receiver is never mutated; the
// stored record keeps its original shape and only the in-memory projection is
// upgraded.
func (e ExpenseItem) Migrated(roster []string) ExpenseItem {
	if len(e.SplitBy) > 0 {
		return e
	}
	out := e
	if e.IsShared {
		out.SplitBy = append([]string(nil), roster...)
	} else {
		out.SplitBy = []string{e.Payer}
	}
	return out
}
