// Package netting reduces a group's net balances to a minimal settlement
// plan: the smallest set of payments that zeroes every balance.
//
// The engine is a pure function over the current balance set. It is always a
// full recomputation, never an incremental patch: the plan depends only on
// current balances, and recomputing is O(members) while patching after
// arbitrary accept/cancel sequences is not. Netting also deliberately severs
// the link between original UOMes and the suggested payments; a settlement
// suggestion never reveals which loans produced it.
package netting

import (
	"sort"

	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

// Plan maps each debtor to the creditors they should pay and the amount of
// each payment, in minor currency units.
type Plan map[cryptox.Identity]map[cryptox.Identity]int64

// Settlement is one flattened payment of a plan.
type Settlement struct {
	Debtor   cryptox.Identity
	Creditor cryptox.Identity
	Value    int64
}

type stake struct {
	id        cryptox.Identity
	remaining int64
}

// Compute derives the settlement plan for the given net balances. Positive
// balances are credit (owed money), negative are debt. Identities with zero
// balance do not appear in the plan.
//
// Both partitions are walked in identity byte order. The order is a fixed
// part of the contract: greedy matching admits several equally minimal
// plans, and replicas must agree on one of them byte for byte.
func Compute(balances map[cryptox.Identity]int64) Plan {
	var creditors, debtors []stake
	for id, balance := range balances {
		switch {
		case balance > 0:
			creditors = append(creditors, stake{id: id, remaining: balance})
		case balance < 0:
			debtors = append(debtors, stake{id: id, remaining: -balance})
		}
	}

	sort.Slice(creditors, func(i, j int) bool { return creditors[i].id < creditors[j].id })
	sort.Slice(debtors, func(i, j int) bool { return debtors[i].id < debtors[j].id })

	plan := make(Plan)
	for c := range creditors {
		for d := range debtors {
			if creditors[c].remaining == 0 {
				break
			}
			if debtors[d].remaining == 0 {
				continue
			}

			settled := min(creditors[c].remaining, debtors[d].remaining)
			creditors[c].remaining -= settled
			debtors[d].remaining -= settled

			payments, ok := plan[debtors[d].id]
			if !ok {
				payments = make(map[cryptox.Identity]int64)
				plan[debtors[d].id] = payments
			}
			payments[creditors[c].id] += settled
		}
	}

	return plan
}

// Flatten returns the plan as settlement rows sorted by debtor then
// creditor, the order the ledger stores them in.
func (p Plan) Flatten() []Settlement {
	var out []Settlement
	for debtor, payments := range p {
		for creditor, value := range payments {
			out = append(out, Settlement{Debtor: debtor, Creditor: creditor, Value: value})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Debtor != out[j].Debtor {
			return out[i].Debtor < out[j].Debtor
		}
		return out[i].Creditor < out[j].Creditor
	})
	return out
}
