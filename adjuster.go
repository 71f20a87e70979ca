package folio

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// ActionType identifies the kind of a corporate action.
type ActionType string

const (
	ActionSplit    ActionType = "split"
	ActionDividend ActionType = "dividend"
)

// CorporateAction describes an event that alters share count or cash position
// independent of trading. Application is idempotent, keyed by
// (instrument, effective date, type).
type CorporateAction struct {
	InstrumentID  string
	EffectiveDate Date
	Type          ActionType
	Ratio         decimal.Decimal // split ratio, 2 for a 2-for-1 split
	CashAmount    decimal.Decimal // total dividend cash
}

// key is the idempotency key of the action.
func (a CorporateAction) key() string {
	return a.InstrumentID + "|" + a.EffectiveDate.String() + "|" + string(a.Type)
}

// dividendRecordID derives the deterministic ID of the synthetic cash record a
// dividend action emits, so that re-applying the action dedupes in the output.
func dividendRecordID(instrumentID string, effective Date) string {
	return "ca:" + instrumentID + ":" + effective.String() + ":dividend"
}

// Adjust rewrites a replay-ordered transaction history for corporate actions.
//
// For each split with ratio r effective on date d, every lot-relevant record
// for the instrument dated strictly before d has its quantity multiplied and
// its price divided by r, preserving total cost. Splits compose
// multiplicatively in ascending effective-date order. Split records already in
// the history (as delivered by some broker feeds) are treated as actions under
// the same idempotency key, so a feed split and a reference-data split on the
// same day apply once.
//
// Each dividend action emits one synthetic dividend cash record, skipped when
// the history already contains it or when the account holds no shares of the
// instrument at the effective date.
//
// Adjust is pure: it never mutates its inputs, and re-running it on the same
// inputs yields byte-identical output.
func Adjust(records []TransactionRecord, actions []CorporateAction) []TransactionRecord {
	out := slices.Clone(records)

	// Fold split records from the history into the action set.
	merged := make([]CorporateAction, 0, len(actions))
	applied := make(map[string]struct{})
	for _, rec := range records {
		if rec.Type != TxSplit {
			continue
		}
		a := CorporateAction{
			InstrumentID:  rec.InstrumentID,
			EffectiveDate: rec.TradeDate,
			Type:          ActionSplit,
			Ratio:         rec.Quantity,
		}
		if _, ok := applied[a.key()]; ok {
			continue
		}
		applied[a.key()] = struct{}{}
		merged = append(merged, a)
	}
	for _, a := range actions {
		if _, ok := applied[a.key()]; ok {
			continue
		}
		applied[a.key()] = struct{}{}
		merged = append(merged, a)
	}

	slices.SortFunc(merged, func(a, b CorporateAction) int {
		if c := a.EffectiveDate.Compare(b.EffectiveDate); c != 0 {
			return c
		}
		if c := strings.Compare(a.InstrumentID, b.InstrumentID); c != 0 {
			return c
		}
		return strings.Compare(string(a.Type), string(b.Type))
	})

	existing := make(map[string]struct{}, len(out))
	for _, rec := range out {
		existing[rec.ID] = struct{}{}
	}

	for _, action := range merged {
		switch action.Type {
		case ActionSplit:
			for i, rec := range out {
				if rec.InstrumentID != action.InstrumentID || !rec.lotRelevant() {
					continue
				}
				if !rec.TradeDate.Before(action.EffectiveDate) {
					continue
				}
				rec.Quantity = rec.Quantity.Mul(action.Ratio)
				rec.Price = rec.Price.Div(action.Ratio)
				out[i] = rec
			}
		case ActionDividend:
			id := dividendRecordID(action.InstrumentID, action.EffectiveDate)
			if _, ok := existing[id]; ok {
				continue
			}
			account, currency, held := instrumentContext(out, action)
			if !held.IsPositive() {
				// Nothing held at the effective date: nothing to credit.
				continue
			}
			existing[id] = struct{}{}
			out = append(out, TransactionRecord{
				ID:           id,
				AccountID:    account,
				InstrumentID: action.InstrumentID,
				Type:         TxDividend,
				TradeDate:    action.EffectiveDate,
				Quantity:     decimal.NewFromInt(1),
				Price:        action.CashAmount,
				Currency:     currency,
			})
		}
	}

	slices.SortFunc(out, func(a, b TransactionRecord) int {
		if a.less(b) {
			return -1
		}
		if b.less(a) {
			return 1
		}
		return 0
	})
	return out
}

// instrumentContext finds the account and currency of an instrument's lot
// history and the net quantity held at the action's effective date.
func instrumentContext(records []TransactionRecord, action CorporateAction) (account, currency string, held decimal.Decimal) {
	for _, rec := range records {
		if rec.InstrumentID != action.InstrumentID || !rec.lotRelevant() {
			continue
		}
		if rec.TradeDate.After(action.EffectiveDate) {
			continue
		}
		account, currency = rec.AccountID, rec.Currency
		if rec.opensLot() {
			held = held.Add(rec.Quantity)
		} else {
			held = held.Sub(rec.Quantity)
		}
	}
	return account, currency, held
}
