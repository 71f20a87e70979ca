package folio

import (
	"context"
	"errors"
	"testing"
)

func TestValue(t *testing.T) {
	records := []TransactionRecord{
		deposit("t0", "acct-1", "2025-01-02", 10000, t),
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 100, 10, t),
		sell("t2", "acct-1", "AAPL", "2025-02-01", 5, 120, 0, t),
	}
	replay := mustReplay(t, records...)

	table := NewPriceTable(0)
	table.Set("AAPL", day(t, "2025-02-15"), EUR(130))

	nav, err := Value(context.Background(), "acct-1", records, replay, table, day(t, "2025-02-15"))
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	// 5 shares at 130.
	if !nav.MarketValue.Equal(EUR(650)) {
		t.Errorf("market value = %s, want 650", nav.MarketValue)
	}
	// 10000 - 1000 - 10 + 600.
	if !nav.CashBalance.Equal(EUR(9590)) {
		t.Errorf("cash = %s, want 9590", nav.CashBalance)
	}
	if !nav.TotalValue().Equal(EUR(10240)) {
		t.Errorf("NAV = %s, want 10240", nav.TotalValue())
	}
	// Realized on t2: proceeds 600 - basis 5×101 = 95.
	if !nav.RealizedPLToDate.Equal(EUR(95)) {
		t.Errorf("realized = %s, want 95", nav.RealizedPLToDate)
	}
	// Unrealized: 650 - 5×101 = 145.
	if !nav.UnrealizedPL.Equal(EUR(145)) {
		t.Errorf("unrealized = %s, want 145", nav.UnrealizedPL)
	}
}

func TestValueMissingPrice(t *testing.T) {
	records := []TransactionRecord{
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 100, 0, t),
	}
	replay := mustReplay(t, records...)

	_, err := Value(context.Background(), "acct-1", records, replay, NewPriceTable(0), day(t, "2025-02-15"))
	var stale *StalePriceError
	if !errors.As(err, &stale) {
		t.Fatalf("missing price: got %v, want *StalePriceError", err)
	}
	if stale.InstrumentID != "AAPL" || stale.AgeDays != -1 {
		t.Errorf("stale error = %+v, want AAPL with no known quote", stale)
	}
}

func TestValueStaleQuoteDisclosed(t *testing.T) {
	records := []TransactionRecord{
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 100, 0, t),
	}
	replay := mustReplay(t, records...)

	table := NewPriceTable(5)
	table.Set("AAPL", day(t, "2025-01-15"), EUR(110))

	nav, err := Value(context.Background(), "acct-1", records, replay, table, day(t, "2025-02-15"))
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if len(nav.StaleInstruments) != 1 || nav.StaleInstruments[0] != "AAPL" {
		t.Errorf("stale instruments = %v, want [AAPL]", nav.StaleInstruments)
	}
	// The stale quote is still used.
	if !nav.MarketValue.Equal(EUR(1100)) {
		t.Errorf("market value = %s, want 1100", nav.MarketValue)
	}
}

func TestPriceTableCarriesForward(t *testing.T) {
	table := NewPriceTable(0)
	table.Set("AAPL", day(t, "2025-01-10"), EUR(100))
	table.Set("AAPL", day(t, "2025-01-20"), EUR(105))

	quote, err := table.Price(context.Background(), "AAPL", day(t, "2025-01-15"))
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if !quote.Price.Equal(EUR(100)) || quote.AsOf != day(t, "2025-01-10") {
		t.Errorf("quote = %s as of %s, want 100 as of 2025-01-10", quote.Price, quote.AsOf)
	}

	quote, err = table.Price(context.Background(), "AAPL", day(t, "2025-01-20"))
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if !quote.Price.Equal(EUR(105)) {
		t.Errorf("quote = %s, want 105", quote.Price)
	}
}

func TestNavSeriesAppendReplacesSameDate(t *testing.T) {
	var series NavSeries
	series = series.Append(NavSnapshot{AsOf: day(t, "2025-01-10"), CashBalance: EUR(100)})
	series = series.Append(NavSnapshot{AsOf: day(t, "2025-01-05"), CashBalance: EUR(90)})
	series = series.Append(NavSnapshot{AsOf: day(t, "2025-01-10"), CashBalance: EUR(120)})

	if len(series) != 2 {
		t.Fatalf("series has %d snapshots, want 2", len(series))
	}
	if series[0].AsOf != day(t, "2025-01-05") {
		t.Errorf("series not sorted: first is %s", series[0].AsOf)
	}
	if !series[1].CashBalance.Equal(EUR(120)) {
		t.Errorf("rebuild did not replace the snapshot: %s", series[1].CashBalance)
	}
}
