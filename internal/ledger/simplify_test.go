package ledger

import (
	"math"
	"testing"
)

func TestSimplify(t *testing.T) {
	res := Simplify(map[string]float64{"A": -100, "B": 40, "C": 60})

	if res.OptimizedCount != 2 {
		t.Fatalf("OptimizedCount = %d, want 2", res.OptimizedCount)
	}
	if len(res.Transfers) != 2 {
		t.Fatalf("got %d transfers, want 2", len(res.Transfers))
	}

	// Largest creditor first: A pays C 60, then A pays B 40.
	first, second := res.Transfers[0], res.Transfers[1]
	if first.From != "A" || first.To != "C" || math.Abs(first.Amount-60) > 0.001 {
		t.Errorf("first transfer = %+v, want A->C 60", first)
	}
	if second.From != "A" || second.To != "B" || math.Abs(second.Amount-40) > 0.001 {
		t.Errorf("second transfer = %+v, want A->B 40", second)
	}
}

func TestSimplifyAlreadyMinimal(t *testing.T) {
	res := Simplify(map[string]float64{"debtor": -25, "creditor": 25})

	if len(res.Transfers) != 1 {
		t.Fatalf("got %d transfers, want 1", len(res.Transfers))
	}
	tr := res.Transfers[0]
	if tr.From != "debtor" || tr.To != "creditor" || math.Abs(tr.Amount-25) > 0.001 {
		t.Errorf("transfer = %+v, want debtor->creditor 25", tr)
	}
	if res.OriginalCount != 1 || res.OptimizedCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", res.OriginalCount, res.OptimizedCount)
	}
}

func TestSimplifyMismatchedSides(t *testing.T) {
	// One debtor worth less than the creditor is owed: the smaller absolute
	// value is transferred.
	res := Simplify(map[string]float64{"debtor": -10, "creditor": 25})

	if len(res.Transfers) != 1 {
		t.Fatalf("got %d transfers, want 1", len(res.Transfers))
	}
	if math.Abs(res.Transfers[0].Amount-10) > 0.001 {
		t.Errorf("transfer amount = %v, want 10", res.Transfers[0].Amount)
	}
}

func TestSimplifyDegenerate(t *testing.T) {
	if res := Simplify(nil); len(res.Transfers) != 0 || res.OriginalCount != 0 {
		t.Errorf("Simplify(nil) = %+v, want empty", res)
	}

	// Unbalanced input: a single non-zero holder has no match; no crash,
	// no transfers.
	if res := Simplify(map[string]float64{"A": -50}); len(res.Transfers) != 0 {
		t.Errorf("single debtor produced transfers: %+v", res.Transfers)
	}

	// Sub-cent noise is treated as settled.
	if res := Simplify(map[string]float64{"A": 0.005, "B": -0.005}); len(res.Transfers) != 0 {
		t.Errorf("noise produced transfers: %+v", res.Transfers)
	}
}

func TestSimplifyDeterministicTieBreak(t *testing.T) {
	res := Simplify(map[string]float64{"zed": 30, "amy": 30, "deb": -60})

	if len(res.Transfers) != 2 {
		t.Fatalf("got %d transfers, want 2", len(res.Transfers))
	}
	if res.Transfers[0].To != "amy" || res.Transfers[1].To != "zed" {
		t.Errorf("tie not broken by ID: %+v", res.Transfers)
	}
}
