package folio

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func snap(t *testing.T, date string, total float64) NavSnapshot {
	t.Helper()
	return NavSnapshot{AccountID: "acct-1", AsOf: day(t, date), CashBalance: EUR(total)}
}

func TestExternalFlows(t *testing.T) {
	records := []TransactionRecord{
		deposit("t1", "acct-1", "2025-01-02", 1000, t),
		buy("t2", "acct-1", "AAPL", "2025-01-10", 5, 100, 0, t),
		withdraw("t3", "acct-1", "2025-06-01", 200, t),
	}
	// In-kind transfers are not external cash flows.
	inKind := deposit("t4", "acct-1", "2025-07-01", 3, t)
	inKind.InstrumentID = "AAPL"
	inKind.Price = dec(150)
	records = append(records, inKind)

	flows := ExternalFlows(records)
	if len(flows) != 2 {
		t.Fatalf("got %d flows, want 2", len(flows))
	}
	if !flows[0].Amount.Equal(EUR(1000)) {
		t.Errorf("first flow = %s, want +1000", flows[0].Amount)
	}
	if !flows[1].Amount.Equal(EUR(-200)) {
		t.Errorf("second flow = %s, want -200", flows[1].Amount)
	}
}

func TestTimeWeightedReturnNeutralizesFlows(t *testing.T) {
	// 100 grows to 110 (+10%), then a 110 deposit doubles the account, then
	// the account grows to 242 (+10%). TWRR must ignore the deposit.
	series := NavSeries{
		snap(t, "2025-01-01", 100),
		snap(t, "2025-02-01", 220),
		snap(t, "2025-03-01", 242),
	}
	flows := []CashFlow{{Date: day(t, "2025-02-01"), Amount: EUR(110)}}

	got, err := TimeWeightedReturn(series, flows)
	if err != nil {
		t.Fatalf("twrr: %v", err)
	}
	if !got.Equal(Percent(21)) {
		t.Errorf("twrr = %s, want 21%% (1.10 × 1.10)", got)
	}
}

func TestTimeWeightedReturnRequiresFlowSnapshots(t *testing.T) {
	series := NavSeries{
		snap(t, "2025-01-01", 100),
		snap(t, "2025-03-01", 242),
	}
	flows := []CashFlow{{Date: day(t, "2025-02-01"), Amount: EUR(110)}}

	_, err := TimeWeightedReturn(series, flows)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("flow without snapshot: got %v, want *InsufficientDataError", err)
	}
	if insufficient.MissingDate != day(t, "2025-02-01") {
		t.Errorf("missing date = %s, want 2025-02-01", insufficient.MissingDate)
	}
	if !strings.Contains(insufficient.Error(), "2025-02-01") {
		t.Errorf("error %q does not name the missing date", insufficient.Error())
	}
}

func TestTimeWeightedReturnTooFewSnapshots(t *testing.T) {
	_, err := TimeWeightedReturn(NavSeries{snap(t, "2025-01-01", 100)}, nil)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want *InsufficientDataError", err)
	}
}

func TestMoneyWeightedReturnSingleFlow(t *testing.T) {
	// 1000 invested, worth 1100 exactly one 365-day year later: 10%.
	series := NavSeries{snap(t, "2026-01-02", 1100)}
	flows := []CashFlow{{Date: day(t, "2025-01-02"), Amount: EUR(1000)}}

	got, err := MoneyWeightedReturn(series, flows)
	if err != nil {
		t.Fatalf("mwrr: %v", err)
	}
	if math.Abs(float64(got)-10) > 0.01 {
		t.Errorf("mwrr = %s, want 10%%", got)
	}
}

func TestMoneyWeightedReturnIsFlowSensitive(t *testing.T) {
	// Same final NAV, but a second deposit arrives mid-year, just before the
	// growth: the money-weighted return must exceed the single-flow rate.
	series := NavSeries{snap(t, "2026-01-02", 2300)}
	early := []CashFlow{
		{Date: day(t, "2025-01-02"), Amount: EUR(1000)},
		{Date: day(t, "2025-01-03"), Amount: EUR(1000)},
	}
	late := []CashFlow{
		{Date: day(t, "2025-01-02"), Amount: EUR(1000)},
		{Date: day(t, "2025-10-01"), Amount: EUR(1000)},
	}

	gotEarly, err := MoneyWeightedReturn(series, early)
	if err != nil {
		t.Fatalf("mwrr early: %v", err)
	}
	gotLate, err := MoneyWeightedReturn(series, late)
	if err != nil {
		t.Fatalf("mwrr late: %v", err)
	}
	if gotLate <= gotEarly {
		t.Errorf("late deposit mwrr %s <= early deposit mwrr %s, want greater", gotLate, gotEarly)
	}
}

func TestMoneyWeightedReturnNoData(t *testing.T) {
	_, err := MoneyWeightedReturn(nil, nil)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want *InsufficientDataError", err)
	}
}

func TestMaxDrawdown(t *testing.T) {
	series := NavSeries{
		snap(t, "2025-01-01", 100),
		snap(t, "2025-02-01", 120),
		snap(t, "2025-03-01", 90), // 25% below the 120 peak
		snap(t, "2025-04-01", 130),
		snap(t, "2025-05-01", 117),
	}
	got, err := MaxDrawdown(series)
	if err != nil {
		t.Fatalf("drawdown: %v", err)
	}
	if !got.Equal(Percent(25)) {
		t.Errorf("max drawdown = %s, want 25%%", got)
	}
}

func TestMaxDrawdownMonotonicSeries(t *testing.T) {
	series := NavSeries{
		snap(t, "2025-01-01", 100),
		snap(t, "2025-02-01", 110),
		snap(t, "2025-03-01", 120),
	}
	got, err := MaxDrawdown(series)
	if err != nil {
		t.Fatalf("drawdown: %v", err)
	}
	if !got.Equal(Percent(0)) {
		t.Errorf("max drawdown = %s, want 0%%", got)
	}
}

func TestSharpeRatio(t *testing.T) {
	got, err := SharpeRatio([]float64{0.02, 0.00, 0.04, -0.02}, 0)
	if err != nil {
		t.Fatalf("sharpe: %v", err)
	}
	if got <= 0 {
		t.Errorf("sharpe = %f, want positive for positive mean excess return", got)
	}
}

func TestSharpeRatioUndefined(t *testing.T) {
	var insufficient *InsufficientDataError
	if _, err := SharpeRatio([]float64{0.01}, 0); !errors.As(err, &insufficient) {
		t.Errorf("one period: got %v, want *InsufficientDataError", err)
	}
	if _, err := SharpeRatio([]float64{0.01, 0.01, 0.01}, 0); !errors.As(err, &insufficient) {
		t.Errorf("flat series: got %v, want *InsufficientDataError", err)
	}
}
