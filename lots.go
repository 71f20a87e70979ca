package folio

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// TaxLot is one purchase batch of a security, tracked separately for cost
// basis. Lots are derived state: they exist only as the output of a replay and
// are rebuilt from scratch every time.
type TaxLot struct {
	OpenTransactionID string
	AccountID         string
	InstrumentID      string
	OpenDate          Date
	RemainingQuantity Quantity
	ClosedQuantity    Quantity
	UnitCostBasis     Money // per share, opening fees capitalized
}

// Exhausted reports whether the lot has been fully consumed. Exhausted lots
// leave the open pool but are retained for realized-gain audit.
func (l TaxLot) Exhausted() bool { return l.RemainingQuantity.IsZero() }

// RealizedGain is one partial or full consumption of a lot by a sale.
type RealizedGain struct {
	TransactionID string // the consuming sell or transfer-out
	LotID         string // the opening transaction of the consumed lot
	AccountID     string
	InstrumentID  string
	Date          Date
	Quantity      Quantity
	Proceeds      Money // consumed share of the sale, net of allocated fees
	CostBasis     Money // consumed quantity × lot unit cost
	Gain          Money
}

// Position aggregates the open lots of one (account, instrument).
type Position struct {
	AccountID    string
	InstrumentID string
	Quantity     Quantity
	AverageCost  Money
	Currency     string
	// Inconsistent is set when an oversell was reported for the instrument;
	// the position is not trustworthy until the history is corrected.
	Inconsistent bool
}

// MarketValue prices the position at the given unit price.
func (p Position) MarketValue(price Money) Money { return price.Mul(p.Quantity) }

// ReplayResult is the complete derived state produced by one replay pass.
type ReplayResult struct {
	OpenLots  []TaxLot       // open pool, FIFO order per instrument
	AllLots   []TaxLot       // every lot ever opened, exhausted ones included
	Realized  []RealizedGain // chronological
	Oversells []*OversellError

	inconsistent map[string]bool // account|instrument
}

func posKey(accountID, instrumentID string) string { return accountID + "|" + instrumentID }

// Inconsistent reports whether an oversell left the instrument's derived state
// untrustworthy.
func (r *ReplayResult) Inconsistent(accountID, instrumentID string) bool {
	return r.inconsistent[posKey(accountID, instrumentID)]
}

// Positions rebuilds the position aggregates from the open lot pool. Average
// cost is the remaining-quantity-weighted average of lot unit costs.
func (r *ReplayResult) Positions() []Position {
	grouped := make(map[string][]TaxLot)
	for _, lot := range r.OpenLots {
		k := posKey(lot.AccountID, lot.InstrumentID)
		grouped[k] = append(grouped[k], lot)
	}

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	positions := make([]Position, 0, len(keys))
	for _, k := range keys {
		lots := grouped[k]
		var qty Quantity
		var cost Money
		for _, lot := range lots {
			qty = qty.Add(lot.RemainingQuantity)
			cost = cost.Add(lot.UnitCostBasis.Mul(lot.RemainingQuantity))
		}
		if qty.IsZero() {
			continue
		}
		positions = append(positions, Position{
			AccountID:    lots[0].AccountID,
			InstrumentID: lots[0].InstrumentID,
			Quantity:     qty,
			AverageCost:  cost.Div(qty),
			Currency:     cost.Currency(),
			Inconsistent: r.inconsistent[k],
		})
	}
	return positions
}

// RealizedThrough sums realized gains dated on or before asOf.
func (r *ReplayResult) RealizedThrough(asOf Date) Money {
	var total Money
	for _, g := range r.Realized {
		if g.Date.After(asOf) {
			continue
		}
		total = total.Add(g.Gain)
	}
	return total
}

// Replay rebuilds tax lots and realized gains from an adjusted, replay-ordered
// transaction history. It processes records strictly in (trade date, ID)
// order: a buy or in-kind transfer-in opens a lot, a sell or in-kind
// transfer-out consumes open lots oldest-first, splitting across lots as
// needed.
//
// An oversell, a sale exceeding the instrument's total open quantity, is
// recorded as an *OversellError in the result and marks the position
// inconsistent; existing lots for the instrument are left intact and replay
// continues. Replay never interprets an oversell as a short sale.
//
// Cancellation is checked between records; an aborted replay returns
// ctx.Err() and no result, never a partial one.
func Replay(ctx context.Context, records []TransactionRecord) (*ReplayResult, error) {
	result := &ReplayResult{inconsistent: make(map[string]bool)}
	open := make(map[string][]*TaxLot) // account|instrument -> FIFO open pool
	all := make(map[string][]*TaxLot)
	var keys []string // insertion-ordered pool keys

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch {
		case rec.opensLot():
			unitCost := rec.GrossAmount().Add(M(rec.Fees, rec.Currency)).Div(Q(rec.Quantity))
			lot := &TaxLot{
				OpenTransactionID: rec.ID,
				AccountID:         rec.AccountID,
				InstrumentID:      rec.InstrumentID,
				OpenDate:          rec.TradeDate,
				RemainingQuantity: Q(rec.Quantity),
				UnitCostBasis:     unitCost,
			}
			k := posKey(rec.AccountID, rec.InstrumentID)
			if _, ok := all[k]; !ok {
				keys = append(keys, k)
			}
			open[k] = append(open[k], lot)
			all[k] = append(all[k], lot)

		case rec.consumesLots():
			k := posKey(rec.AccountID, rec.InstrumentID)
			if err := consume(rec, open, k, result); err != nil {
				var oversell *OversellError
				if errors.As(err, &oversell) {
					result.Oversells = append(result.Oversells, oversell)
					result.inconsistent[k] = true
					continue
				}
				return nil, err
			}
		}
		// Dividends and fees move cash only; splits were folded into the
		// history by Adjust before replay.
	}

	for _, k := range keys {
		for _, lot := range all[k] {
			result.AllLots = append(result.AllLots, *lot)
			if !lot.Exhausted() {
				result.OpenLots = append(result.OpenLots, *lot)
			}
		}
	}
	if err := checkConservation(records, result); err != nil {
		return nil, err
	}
	return result, nil
}

// consume matches a sale against the instrument's open pool, oldest lot first.
func consume(rec TransactionRecord, open map[string][]*TaxLot, key string, result *ReplayResult) error {
	pool := open[key]

	var held Quantity
	for _, lot := range pool {
		held = held.Add(lot.RemainingQuantity)
	}
	toSell := Q(rec.Quantity)
	if toSell.GreaterThan(held) {
		return &OversellError{
			TransactionID: rec.ID,
			AccountID:     rec.AccountID,
			InstrumentID:  rec.InstrumentID,
			Requested:     toSell,
			Held:          held,
		}
	}

	unitPrice := M(rec.Price, rec.Currency)
	feeLeft := M(rec.Fees, rec.Currency)
	saleQty := toSell

	for !toSell.IsZero() {
		lot := pool[0]
		consumed := lot.RemainingQuantity
		if consumed.GreaterThan(toSell) {
			consumed = toSell
		}

		lot.RemainingQuantity = lot.RemainingQuantity.Sub(consumed)
		lot.ClosedQuantity = lot.ClosedQuantity.Add(consumed)
		toSell = toSell.Sub(consumed)

		if lot.RemainingQuantity.IsNegative() {
			return &InvariantError{
				Invariant:     "remaining-quantity",
				TransactionID: rec.ID,
				AccountID:     rec.AccountID,
				InstrumentID:  rec.InstrumentID,
				Detail: fmt.Sprintf("lot %s remaining %s after consuming %s",
					lot.OpenTransactionID, lot.RemainingQuantity, consumed),
			}
		}

		// Allocate the sale fee pro rata; the final consumption takes the
		// remainder so the allocations sum to the fee exactly.
		var fee Money
		if toSell.IsZero() {
			fee = feeLeft
		} else {
			fee = M(rec.Fees, rec.Currency).Mul(consumed).Div(saleQty)
		}
		feeLeft = feeLeft.Sub(fee)

		proceeds := unitPrice.Mul(consumed).Sub(fee)
		costBasis := lot.UnitCostBasis.Mul(consumed)
		result.Realized = append(result.Realized, RealizedGain{
			TransactionID: rec.ID,
			LotID:         lot.OpenTransactionID,
			AccountID:     rec.AccountID,
			InstrumentID:  rec.InstrumentID,
			Date:          rec.TradeDate,
			Quantity:      consumed,
			Proceeds:      proceeds,
			CostBasis:     costBasis,
			Gain:          proceeds.Sub(costBasis),
		})

		if lot.Exhausted() {
			pool = pool[1:]
		}
	}
	open[key] = pool
	return nil
}

// checkConservation verifies that for every instrument, remaining plus closed
// quantity equals the total quantity ever acquired. A mismatch is a bug in the
// matching algorithm, reported as *InvariantError with full context.
func checkConservation(records []TransactionRecord, result *ReplayResult) error {
	acquired := make(map[string]Quantity)
	for _, rec := range records {
		if rec.opensLot() {
			k := posKey(rec.AccountID, rec.InstrumentID)
			acquired[k] = acquired[k].Add(Q(rec.Quantity))
		}
	}

	tracked := make(map[string]Quantity)
	for _, lot := range result.AllLots {
		k := posKey(lot.AccountID, lot.InstrumentID)
		tracked[k] = tracked[k].Add(lot.RemainingQuantity).Add(lot.ClosedQuantity)
	}

	for k, want := range acquired {
		if got := tracked[k]; !got.Equal(want) {
			account, instrument, _ := strings.Cut(k, "|")
			return &InvariantError{
				Invariant:    "lot-conservation",
				AccountID:    account,
				InstrumentID: instrument,
				Detail:       fmt.Sprintf("tracked %s, acquired %s", got, want),
			}
		}
	}
	return nil
}
