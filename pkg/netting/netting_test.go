package netting_test

import (
	"testing"

	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/netting"
	"github.com/stretchr/testify/require"
)

const (
	idA = cryptox.Identity("A")
	idB = cryptox.Identity("B")
	idC = cryptox.Identity("C")
	idD = cryptox.Identity("D")
)

// applyAccept mirrors the ledger's balance update when a UOMe is accepted.
func applyAccept(balances map[cryptox.Identity]int64, lender, borrower cryptox.Identity, value int64) {
	balances[lender] += value
	balances[borrower] -= value
}

func TestComputeThreeMemberScenario(t *testing.T) {
	t.Parallel()

	// A borrows 5 from B, B borrows 2 from A, B borrows 1 from C,
	// C borrows 4 from A.
	balances := map[cryptox.Identity]int64{}
	applyAccept(balances, idB, idA, 5)
	applyAccept(balances, idA, idB, 2)
	applyAccept(balances, idC, idB, 1)
	applyAccept(balances, idA, idC, 4)

	require.Equal(t, map[cryptox.Identity]int64{idA: 1, idB: 2, idC: -3}, balances)

	plan := netting.Compute(balances)
	require.Equal(t, netting.Plan{
		idC: {idA: 1, idB: 2},
	}, plan)
}

func TestComputeConservationAndExactness(t *testing.T) {
	t.Parallel()

	balances := map[cryptox.Identity]int64{
		idA: 700,
		idB: -250,
		idC: -1000,
		idD: 550,
	}

	var sum int64
	for _, b := range balances {
		sum += b
	}
	require.Zero(t, sum, "test input must conserve value")

	plan := netting.Compute(balances)

	// Every debtor's entries sum to its debt magnitude; every creditor's
	// incoming entries sum to its credit.
	paid := map[cryptox.Identity]int64{}
	received := map[cryptox.Identity]int64{}
	for debtor, payments := range plan {
		for creditor, value := range payments {
			require.Positive(t, value)
			paid[debtor] += value
			received[creditor] += value
		}
	}
	require.Equal(t, map[cryptox.Identity]int64{idB: 250, idC: 1000}, paid)
	require.Equal(t, map[cryptox.Identity]int64{idA: 700, idD: 550}, received)
}

func TestComputeDeterminism(t *testing.T) {
	t.Parallel()

	balances := map[cryptox.Identity]int64{
		idA: 300, idB: 300, idC: -300, idD: -300,
	}

	first := netting.Compute(balances)
	for range 50 {
		require.Equal(t, first, netting.Compute(balances))
		require.Equal(t, first.Flatten(), netting.Compute(balances).Flatten())
	}

	// Equal credits are matched in identity order, so the tie-break is
	// fixed: C pays A, D pays B.
	require.Equal(t, netting.Plan{
		idC: {idA: 300},
		idD: {idB: 300},
	}, first)
}

func TestComputeEdgeCases(t *testing.T) {
	t.Parallel()

	t.Run("empty balances", func(t *testing.T) {
		require.Empty(t, netting.Compute(nil))
	})

	t.Run("all zero", func(t *testing.T) {
		require.Empty(t, netting.Compute(map[cryptox.Identity]int64{idA: 0, idB: 0}))
	})

	t.Run("single pair", func(t *testing.T) {
		plan := netting.Compute(map[cryptox.Identity]int64{idA: 42, idB: -42})
		require.Equal(t, netting.Plan{idB: {idA: 42}}, plan)
	})
}

func TestFlattenOrdering(t *testing.T) {
	t.Parallel()

	plan := netting.Plan{
		idD: {idB: 2, idA: 1},
		idC: {idA: 3},
	}

	require.Equal(t, []netting.Settlement{
		{Debtor: idC, Creditor: idA, Value: 3},
		{Debtor: idD, Creditor: idA, Value: 1},
		{Debtor: idD, Creditor: idB, Value: 2},
	}, plan.Flatten())
}
