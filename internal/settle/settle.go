// Package settle computes debt settlement plans from the trip's expense list.
//
// The engine is a pure projection: it takes the full expense list plus the
// current roster and produces per-participant totals and a small list of
// suggested transfers. Nothing is cached or persisted; callers recompute on
// every data change.
package settle

import (
	"math"
	"sort"

	"github.com/tripmate-app/tripmate/internal/models"
)

// settledBand is the residual balance, in currency units, below which a
// participant counts as settled. It absorbs floating-point noise from the
// equal-split division and keeps sub-unit residues out of the transfer plan.
const settledBand = 1.0

// Transfer is one suggested payment that reduces outstanding net balances.
type Transfer struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// Settlement is the full output of one computation.
type Settlement struct {
	// PaidTotals maps each participant to the sum of costs they paid,
	// including private expenses.
	PaidTotals map[string]float64

	// Balances maps each participant to paid minus consumed. Positive means
	// the participant is owed money.
	Balances map[string]float64

	// Transfers is the suggested payment plan, in sweep order.
	Transfers []Transfer
}

// Compute derives totals, net balances and a transfer plan from expenses and
// the current roster.
//
// The participant universe is the union of the roster and every name that
// appears as a payer or beneficiary in the expense list. A participant who
// left the roster while still owing or being owed money therefore stays in
// the math; dropping them would silently destroy debt.
//
// Transfers are produced by a greedy two-pointer sweep: debtors sorted most
// negative first against creditors sorted most positive first, settling
// min(debt, credit) at each step. This pairs the largest debts with the
// largest credits and keeps the edge count at most one less than the number
// of unsettled participants. It is not provably optimal across all inputs,
// but it is deterministic and sufficient for small groups.
func Compute(expenses []models.ExpenseItem, roster []string) Settlement {
	universe := make([]string, 0, len(roster))
	seen := make(map[string]bool, len(roster))
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			universe = append(universe, name)
		}
	}
	for _, name := range roster {
		add(name)
	}
	for _, e := range expenses {
		add(e.Payer)
		for _, b := range e.Beneficiaries(roster) {
			add(b)
		}
	}

	paid := make(map[string]float64, len(universe))
	balances := make(map[string]float64, len(universe))
	for _, name := range universe {
		paid[name] = 0
		balances[name] = 0
	}

	for _, e := range expenses {
		paid[e.Payer] += e.Cost

		beneficiaries := e.Beneficiaries(roster)
		// A legacy shared record against an empty roster resolves to no
		// beneficiaries; crediting the payer anyway would break balance
		// conservation, so it counts toward paid totals only.
		if len(beneficiaries) == 0 {
			continue
		}
		// A self-funded expense nets to zero by construction; it counts toward
		// the payer's total but moves no balance.
		if len(beneficiaries) == 1 && beneficiaries[0] == e.Payer {
			continue
		}

		balances[e.Payer] += e.Cost
		share := e.Cost / float64(len(beneficiaries))
		for _, name := range beneficiaries {
			balances[name] -= share
		}
	}

	type party struct {
		name    string
		balance float64
	}
	var debtors, creditors []party
	for _, name := range universe {
		switch bal := balances[name]; {
		case bal < -settledBand:
			debtors = append(debtors, party{name, bal})
		case bal > settledBand:
			creditors = append(creditors, party{name, bal})
		}
	}
	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].balance < debtors[j].balance
	})
	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[i].balance > creditors[j].balance
	})

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		owed := -debtors[i].balance
		due := creditors[j].balance

		amount := math.Min(owed, due)
		if amount > settledBand {
			transfers = append(transfers, Transfer{
				From:   debtors[i].name,
				To:     creditors[j].name,
				Amount: amount,
			})
		}

		debtors[i].balance += amount
		creditors[j].balance -= amount

		if -debtors[i].balance < settledBand {
			i++
		}
		if creditors[j].balance < settledBand {
			j++
		}
	}

	return Settlement{
		PaidTotals: paid,
		Balances:   balances,
		Transfers:  transfers,
	}
}
