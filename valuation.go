package folio

import (
	"context"
	"slices"
	"sync"
)

// Quote is one point-in-time price observation from a price source.
type Quote struct {
	Price Money
	AsOf  Date // the date the quote was established, possibly before the requested date
	Stale bool // disclaimer flag: the source considers the quote out of date
}

// PriceSource is the port the valuation engine consults for quotes. The
// implementation (cache, circuit breaker, retry policy) lives outside the
// core; the engine only requires that the call respects the context deadline
// and flags staleness instead of silently serving old data.
type PriceSource interface {
	Price(ctx context.Context, instrumentID string, asOf Date) (Quote, error)
}

// NavSnapshot is the valuation of one account at one date. Snapshots are
// derived values: a NAV series is only ever extended or rebuilt by full
// replay, never edited retroactively.
type NavSnapshot struct {
	AccountID        string
	AsOf             Date
	MarketValue      Money
	CashBalance      Money
	UnrealizedPL     Money
	RealizedPLToDate Money
	// StaleInstruments lists instruments valued from a quote the source
	// flagged as stale. The numbers stand, the disclaimer propagates.
	StaleInstruments []string
}

// TotalValue is market value plus cash: the account's NAV.
func (s NavSnapshot) TotalValue() Money { return s.MarketValue.Add(s.CashBalance) }

// Value combines replayed positions with point-in-time prices into a
// NavSnapshot as of the given date.
//
// A missing price for an instrument with a nonzero position fails with
// *StalePriceError carrying the instrument and the age of the last known
// quote; the engine never substitutes zero. A quote flagged stale is used and
// disclosed through StaleInstruments.
func Value(ctx context.Context, accountID string, adjusted []TransactionRecord, replay *ReplayResult, source PriceSource, asOf Date) (NavSnapshot, error) {
	snapshot := NavSnapshot{AccountID: accountID, AsOf: asOf}

	for _, pos := range replay.Positions() {
		if pos.AccountID != accountID || pos.Quantity.IsZero() {
			continue
		}
		quote, err := source.Price(ctx, pos.InstrumentID, asOf)
		if err != nil {
			return NavSnapshot{}, staleFor(pos.InstrumentID, asOf, quote, err)
		}
		if quote.Stale {
			snapshot.StaleInstruments = append(snapshot.StaleInstruments, pos.InstrumentID)
		}
		snapshot.MarketValue = snapshot.MarketValue.Add(pos.MarketValue(quote.Price))
		snapshot.UnrealizedPL = snapshot.UnrealizedPL.
			Add(pos.MarketValue(quote.Price)).
			Sub(pos.AverageCost.Mul(pos.Quantity))
	}

	snapshot.CashBalance = cashBalance(adjusted, asOf)
	snapshot.RealizedPLToDate = replay.RealizedThrough(asOf)
	slices.Sort(snapshot.StaleInstruments)
	return snapshot, nil
}

// staleFor shapes any price source failure (missing quote, timeout,
// cancellation) into the *StalePriceError the valuation contract promises.
func staleFor(instrumentID string, asOf Date, quote Quote, err error) error {
	if stale, ok := err.(*StalePriceError); ok {
		return stale
	}
	age := -1
	if !quote.AsOf.IsZero() {
		age = quote.AsOf.DaysUntil(asOf)
	}
	return &StalePriceError{InstrumentID: instrumentID, AsOf: asOf, AgeDays: age}
}

// cashBalance folds the cash effect of every record on or before asOf.
func cashBalance(records []TransactionRecord, asOf Date) Money {
	var balance Money
	for _, rec := range records {
		if rec.TradeDate.After(asOf) {
			continue
		}
		fees := M(rec.Fees, rec.Currency)
		switch rec.Type {
		case TxBuy:
			balance = balance.Sub(rec.GrossAmount()).Sub(fees)
		case TxSell:
			balance = balance.Add(rec.GrossAmount()).Sub(fees)
		case TxDividend:
			balance = balance.Add(rec.GrossAmount()).Sub(fees)
		case TxFee:
			balance = balance.Sub(fees)
		case TxTransferIn:
			if rec.IsCashTransfer() {
				balance = balance.Add(rec.GrossAmount())
			}
		case TxTransferOut:
			if rec.IsCashTransfer() {
				balance = balance.Sub(rec.GrossAmount())
			}
		}
	}
	return balance
}

// NavSeries is a date-ordered, append-only sequence of snapshots for one
// account.
type NavSeries []NavSnapshot

// Append adds a snapshot, keeping the series ordered by date. Appending a
// snapshot for an existing date replaces it: a rebuild supersedes the previous
// value, it never coexists with it.
func (s NavSeries) Append(snapshot NavSnapshot) NavSeries {
	for i, existing := range s {
		if existing.AsOf == snapshot.AsOf {
			out := slices.Clone(s)
			out[i] = snapshot
			return out
		}
	}
	out := append(slices.Clone(s), snapshot)
	slices.SortFunc(out, func(a, b NavSnapshot) int { return a.AsOf.Compare(b.AsOf) })
	return out
}

// Returns computes the simple periodic returns between consecutive snapshots.
func (s NavSeries) Returns() []float64 {
	if len(s) < 2 {
		return nil
	}
	out := make([]float64, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		prev := s[i-1].TotalValue().AsFloat()
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, s[i].TotalValue().AsFloat()/prev-1)
	}
	return out
}

// PriceTable is an in-memory PriceSource, useful for tests, tools and
// point-in-time valuations from imported quote files.
type PriceTable struct {
	mu sync.RWMutex
	// StaleAfterDays is the age beyond which a carried-forward quote is
	// flagged stale. Zero means quotes never go stale.
	StaleAfterDays int
	quotes         map[string][]datedPrice
}

type datedPrice struct {
	on    Date
	price Money
}

// NewPriceTable creates an empty table with the given staleness threshold.
func NewPriceTable(staleAfterDays int) *PriceTable {
	return &PriceTable{StaleAfterDays: staleAfterDays, quotes: make(map[string][]datedPrice)}
}

// Set records a quote for an instrument on a date, replacing any quote already
// recorded for that date.
func (t *PriceTable) Set(instrumentID string, on Date, price Money) {
	t.mu.Lock()
	defer t.mu.Unlock()
	series := t.quotes[instrumentID]
	for i, dp := range series {
		if dp.on == on {
			series[i].price = price
			return
		}
	}
	series = append(series, datedPrice{on: on, price: price})
	slices.SortFunc(series, func(a, b datedPrice) int { return a.on.Compare(b.on) })
	t.quotes[instrumentID] = series
}

// Price returns the latest quote on or before asOf, honoring ctx cancellation.
func (t *PriceTable) Price(ctx context.Context, instrumentID string, asOf Date) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last *datedPrice
	for i := range t.quotes[instrumentID] {
		dp := &t.quotes[instrumentID][i]
		if dp.on.After(asOf) {
			break
		}
		last = dp
	}
	if last == nil {
		return Quote{}, &StalePriceError{InstrumentID: instrumentID, AsOf: asOf, AgeDays: -1}
	}
	age := last.on.DaysUntil(asOf)
	return Quote{
		Price: last.price,
		AsOf:  last.on,
		Stale: t.StaleAfterDays > 0 && age > t.StaleAfterDays,
	}, nil
}
