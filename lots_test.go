package folio

import (
	"context"
	"testing"
)

func mustReplay(t *testing.T, records ...TransactionRecord) *ReplayResult {
	t.Helper()
	result, err := Replay(context.Background(), records)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	return result
}

func TestReplayFIFO(t *testing.T) {
	result := mustReplay(t,
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 10, 0, t),
		buy("t2", "acct-1", "AAPL", "2025-01-20", 10, 20, 0, t),
		sell("t3", "acct-1", "AAPL", "2025-02-01", 15, 30, 0, t),
	)

	// The sale consumes the whole first lot and half of the second.
	if len(result.Realized) != 2 {
		t.Fatalf("got %d realized gains, want 2", len(result.Realized))
	}
	first, second := result.Realized[0], result.Realized[1]
	if first.LotID != "t1" || !first.Quantity.Equal(Q(10)) {
		t.Errorf("first consumption = lot %s qty %s, want lot t1 qty 10", first.LotID, first.Quantity)
	}
	if !first.CostBasis.Equal(EUR(100)) {
		t.Errorf("first cost basis = %s, want 100", first.CostBasis)
	}
	if second.LotID != "t2" || !second.Quantity.Equal(Q(5)) {
		t.Errorf("second consumption = lot %s qty %s, want lot t2 qty 5", second.LotID, second.Quantity)
	}
	if !second.CostBasis.Equal(EUR(100)) {
		t.Errorf("second cost basis = %s, want 100", second.CostBasis)
	}

	// Total basis consumed is 10×10 + 5×20 = 200.
	var basis Money
	for _, g := range result.Realized {
		basis = basis.Add(g.CostBasis)
	}
	if !basis.Equal(EUR(200)) {
		t.Errorf("total cost basis = %s, want 200", basis)
	}

	// 5 shares remain, all from the second lot at 20.
	if len(result.OpenLots) != 1 {
		t.Fatalf("got %d open lots, want 1", len(result.OpenLots))
	}
	lot := result.OpenLots[0]
	if lot.OpenTransactionID != "t2" || !lot.RemainingQuantity.Equal(Q(5)) || !lot.UnitCostBasis.Equal(EUR(20)) {
		t.Errorf("open lot = %+v, want 5 remaining of t2 at 20", lot)
	}
}

func TestReplayPartialLotConsumption(t *testing.T) {
	result := mustReplay(t,
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 10, 0, t),
		sell("t2", "acct-1", "AAPL", "2025-01-20", 4, 12, 0, t),
		sell("t3", "acct-1", "AAPL", "2025-01-25", 6, 14, 0, t),
	)

	if len(result.OpenLots) != 0 {
		t.Errorf("lot not exhausted: %+v", result.OpenLots)
	}
	if len(result.AllLots) != 1 {
		t.Fatalf("exhausted lot missing from the audit pool")
	}
	lot := result.AllLots[0]
	if !lot.Exhausted() || !lot.ClosedQuantity.Equal(Q(10)) {
		t.Errorf("audit lot = %+v, want fully closed 10", lot)
	}
}

func TestReplayBuyFeesCapitalized(t *testing.T) {
	result := mustReplay(t,
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 10, 5, t),
	)
	lot := result.OpenLots[0]
	// (100 + 5) / 10
	if !lot.UnitCostBasis.Equal(EUR(10.5)) {
		t.Errorf("unit cost = %s, want 10.50", lot.UnitCostBasis)
	}
}

func TestReplaySellFeesReduceProceeds(t *testing.T) {
	result := mustReplay(t,
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 10, 0, t),
		buy("t2", "acct-1", "AAPL", "2025-01-20", 10, 10, 0, t),
		sell("t3", "acct-1", "AAPL", "2025-02-01", 15, 20, 3, t),
	)

	// The fee is allocated pro rata and must sum exactly.
	var fees Money
	for _, g := range result.Realized {
		gross := M(g.Quantity.Decimal().Mul(dec(20)), "EUR")
		fees = fees.Add(gross.Sub(g.Proceeds))
	}
	if !fees.Equal(EUR(3)) {
		t.Errorf("allocated fees sum to %s, want 3", fees)
	}
}

func TestReplayOversell(t *testing.T) {
	result := mustReplay(t,
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 10, 0, t),
		sell("t2", "acct-1", "AAPL", "2025-01-20", 15, 12, 0, t),
		buy("t3", "acct-1", "AAPL", "2025-02-01", 5, 11, 0, t),
	)

	if len(result.Oversells) != 1 {
		t.Fatalf("got %d oversells, want 1", len(result.Oversells))
	}
	oversell := result.Oversells[0]
	if oversell.TransactionID != "t2" {
		t.Errorf("oversell blames %s, want t2", oversell.TransactionID)
	}
	if !oversell.Requested.Equal(Q(15)) || !oversell.Held.Equal(Q(10)) {
		t.Errorf("oversell = requested %s held %s, want 15/10", oversell.Requested, oversell.Held)
	}

	// The oversell consumes nothing and the position is flagged, with the
	// later buy still processed.
	if !result.Inconsistent("acct-1", "AAPL") {
		t.Errorf("position not flagged inconsistent")
	}
	var remaining Quantity
	for _, lot := range result.OpenLots {
		remaining = remaining.Add(lot.RemainingQuantity)
	}
	if !remaining.Equal(Q(15)) {
		t.Errorf("remaining = %s, want 15 (10 intact + 5 later buy)", remaining)
	}

	positions := result.Positions()
	if len(positions) != 1 || !positions[0].Inconsistent {
		t.Errorf("positions = %+v, want one inconsistent position", positions)
	}
}

func TestReplayPositionsAverageCost(t *testing.T) {
	result := mustReplay(t,
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 10, 0, t),
		buy("t2", "acct-1", "AAPL", "2025-01-20", 10, 20, 0, t),
		buy("t3", "acct-1", "MSFT", "2025-01-20", 5, 300, 0, t),
	)
	positions := result.Positions()
	if len(positions) != 2 {
		t.Fatalf("got %d positions, want 2", len(positions))
	}
	aapl := positions[0]
	if aapl.InstrumentID != "AAPL" {
		t.Fatalf("positions not sorted by key: %+v", positions)
	}
	if !aapl.Quantity.Equal(Q(20)) || !aapl.AverageCost.Equal(EUR(15)) {
		t.Errorf("AAPL position = %s at %s, want 20 at 15", aapl.Quantity, aapl.AverageCost)
	}
}

func TestReplayPerAccountIsolation(t *testing.T) {
	result := mustReplay(t,
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 10, 0, t),
		buy("t2", "acct-2", "AAPL", "2025-01-10", 3, 10, 0, t),
		sell("t3", "acct-1", "AAPL", "2025-01-20", 10, 12, 0, t),
	)
	positions := result.Positions()
	if len(positions) != 1 {
		t.Fatalf("got %d positions, want only acct-2's", len(positions))
	}
	if positions[0].AccountID != "acct-2" || !positions[0].Quantity.Equal(Q(3)) {
		t.Errorf("position = %+v, want 3 AAPL in acct-2", positions[0])
	}
}

func TestReplayCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Replay(ctx, []TransactionRecord{
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 10, 0, t),
	})
	if err == nil {
		t.Fatalf("replay ignored a canceled context")
	}
}

func TestRealizedThrough(t *testing.T) {
	result := mustReplay(t,
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 10, 0, t),
		sell("t2", "acct-1", "AAPL", "2025-02-01", 5, 12, 0, t),
		sell("t3", "acct-1", "AAPL", "2025-03-01", 5, 14, 0, t),
	)
	if got := result.RealizedThrough(day(t, "2025-02-15")); !got.Equal(EUR(10)) {
		t.Errorf("realized through Feb 15 = %s, want 10", got)
	}
	if got := result.RealizedThrough(day(t, "2025-03-31")); !got.Equal(EUR(30)) {
		t.Errorf("realized through Mar 31 = %s, want 30", got)
	}
}
