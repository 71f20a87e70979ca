package folio

import (
	"math"
	"slices"
)

// CashFlow is an external flow into (positive) or out of (negative) an
// account: a deposit or withdrawal. Trading activity inside the account is
// not a cash flow in performance terms.
type CashFlow struct {
	Date   Date
	Amount Money
}

// ExternalFlows extracts the external cash flows from a transaction history:
// the cash transfers in and out of the account.
func ExternalFlows(records []TransactionRecord) []CashFlow {
	var flows []CashFlow
	for _, rec := range records {
		if !rec.IsCashTransfer() {
			continue
		}
		amount := rec.GrossAmount()
		if rec.Type == TxTransferOut {
			amount = amount.Neg()
		}
		flows = append(flows, CashFlow{Date: rec.TradeDate, Amount: amount})
	}
	slices.SortFunc(flows, func(a, b CashFlow) int { return a.Date.Compare(b.Date) })
	return flows
}

// TimeWeightedReturn computes the TWRR over a NAV series: the series is
// partitioned into sub-periods bounded by external flow dates, each sub-period
// return is (endNAV − flow) / startNAV − 1, and the sub-period returns are
// geometrically linked. Flow timing is thereby neutralized: TWRR measures the
// investments, not the investor.
//
// Every flow date must have a snapshot in the series; otherwise the sub-period
// boundaries are unknowable and the computation fails with
// *InsufficientDataError.
func TimeWeightedReturn(series NavSeries, flows []CashFlow) (Percent, error) {
	if len(series) < 2 {
		return 0, &InsufficientDataError{Metric: "time-weighted return", Need: 2, Have: len(series)}
	}

	flowOn := make(map[Date]Money)
	for _, f := range flows {
		flowOn[f.Date] = flowOn[f.Date].Add(f.Amount)
	}
	for _, f := range flows {
		if !f.Date.Before(series[0].AsOf) && !f.Date.After(series[len(series)-1].AsOf) {
			if !hasSnapshot(series, f.Date) {
				return 0, &InsufficientDataError{
					Metric:      "time-weighted return",
					MissingDate: f.Date,
				}
			}
		}
	}

	linked := 1.0
	for i := 1; i < len(series); i++ {
		start := series[i-1].TotalValue().AsFloat()
		end := series[i].TotalValue().AsFloat()
		flow := flowOn[series[i].AsOf].AsFloat()
		if start == 0 {
			// The account came to life with this sub-period's flow; there is
			// no invested capital to measure a return on yet.
			continue
		}
		linked *= (end - flow) / start
	}
	return Percent(100 * (linked - 1)), nil
}

func hasSnapshot(series NavSeries, on Date) bool {
	for _, s := range series {
		if s.AsOf == on {
			return true
		}
	}
	return false
}

// Money-weighted return solver bounds.
const (
	mwrMaxIterations = 100
	mwrTolerance     = 1e-6
	mwrRateFloor     = -0.9999
	mwrRateCeiling   = 10.0
)

// MoneyWeightedReturn computes the annualized internal rate of return of the
// account's external flows against its final NAV, by Newton-Raphson on the
// net-present-value function with a bisection fallback. Unlike TWRR it is
// sensitive to the timing and size of the investor's own flows.
//
// It fails with *ConvergenceError when no root is found within the bounded
// iteration count and tolerance; callers must not accept an unconverged
// estimate.
func MoneyWeightedReturn(series NavSeries, flows []CashFlow) (Percent, error) {
	if len(series) == 0 || len(flows) == 0 {
		return 0, &InsufficientDataError{Metric: "money-weighted return", Need: 1, Have: 0}
	}

	final := series[len(series)-1]
	epoch := flows[0].Date

	// Investor perspective: a deposit is money out of the investor's pocket,
	// the final NAV is money notionally back in.
	type flow struct {
		amount float64
		years  float64
	}
	cf := make([]flow, 0, len(flows)+1)
	for _, f := range flows {
		if f.Date.After(final.AsOf) {
			continue
		}
		cf = append(cf, flow{amount: -f.Amount.AsFloat(), years: years(epoch, f.Date)})
	}
	cf = append(cf, flow{amount: final.TotalValue().AsFloat(), years: years(epoch, final.AsOf)})

	npv := func(rate float64) float64 {
		var sum float64
		for _, f := range cf {
			sum += f.amount / math.Pow(1+rate, f.years)
		}
		return sum
	}
	npvPrime := func(rate float64) float64 {
		var sum float64
		for _, f := range cf {
			sum -= f.years * f.amount / math.Pow(1+rate, f.years+1)
		}
		return sum
	}

	// Newton-Raphson from a conventional starting guess.
	rate := 0.1
	for i := 0; i < mwrMaxIterations; i++ {
		value := npv(rate)
		if math.Abs(value) < mwrTolerance {
			return Percent(100 * rate), nil
		}
		derivative := npvPrime(rate)
		if derivative == 0 || math.IsNaN(derivative) {
			break
		}
		next := rate - value/derivative
		if math.IsNaN(next) || next <= mwrRateFloor || next > mwrRateCeiling {
			break
		}
		if math.Abs(next-rate) < mwrTolerance/1000 {
			rate = next
			if math.Abs(npv(rate)) < mwrTolerance {
				return Percent(100 * rate), nil
			}
			break
		}
		rate = next
	}

	// Bisection fallback over the admissible rate interval.
	lo, hi := mwrRateFloor, mwrRateCeiling
	flo, fhi := npv(lo), npv(hi)
	if math.IsNaN(flo) || math.IsNaN(fhi) || flo*fhi > 0 {
		return 0, &ConvergenceError{Metric: "money-weighted return", Iterations: mwrMaxIterations}
	}
	for i := 0; i < mwrMaxIterations; i++ {
		mid := (lo + hi) / 2
		fmid := npv(mid)
		if math.Abs(fmid) < mwrTolerance || (hi-lo)/2 < mwrTolerance {
			return Percent(100 * mid), nil
		}
		if flo*fmid < 0 {
			hi = mid
		} else {
			lo, flo = mid, fmid
		}
	}
	return 0, &ConvergenceError{Metric: "money-weighted return", Iterations: 2 * mwrMaxIterations}
}

// years converts a date interval into year fractions on a 365-day basis.
func years(from, to Date) float64 {
	return float64(from.DaysUntil(to)) / 365.0
}

// MaxDrawdown returns the maximum peak-to-trough decline of the NAV series as
// a percentage of the peak, scanning the series once with a running peak.
func MaxDrawdown(series NavSeries) (Percent, error) {
	if len(series) == 0 {
		return 0, &InsufficientDataError{Metric: "max drawdown", Need: 1, Have: 0}
	}
	peak := series[0].TotalValue().AsFloat()
	var worst float64
	for _, s := range series[1:] {
		value := s.TotalValue().AsFloat()
		if value > peak {
			peak = value
			continue
		}
		if peak > 0 {
			if dd := (peak - value) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return Percent(100 * worst), nil
}

// SharpeRatio computes mean excess return over the sample standard deviation
// of excess returns, for periodic returns and a periodic risk-free rate. It is
// undefined for fewer than 2 periods or a flat return series.
func SharpeRatio(returns []float64, riskFree float64) (float64, error) {
	if len(returns) < 2 {
		return 0, &InsufficientDataError{Metric: "sharpe ratio", Need: 2, Have: len(returns)}
	}

	var mean float64
	for _, r := range returns {
		mean += r - riskFree
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := (r - riskFree) - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	if variance == 0 {
		return 0, &InsufficientDataError{Metric: "sharpe ratio (zero variance)", Need: 2, Have: len(returns)}
	}
	return mean / math.Sqrt(variance), nil
}
