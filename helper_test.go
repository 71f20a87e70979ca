package folio

import (
	"testing"

	"github.com/shopspring/decimal"
)

// EUR is a helper for tests to create euro money from a const.
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for tests to create usd money from a const.
func USD(v float64) Money { return M(v, "USD") }

// day parses a date and fails the test on error.
func day(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("invalid test date %q: %v", s, err)
	}
	return d
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// buy builds a buy record with a deterministic ID.
func buy(id, account, instrument, trade string, qty, price, fees float64, t *testing.T) TransactionRecord {
	t.Helper()
	return TransactionRecord{
		ID:           id,
		AccountID:    account,
		InstrumentID: instrument,
		Type:         TxBuy,
		TradeDate:    day(t, trade),
		Quantity:     dec(qty),
		Price:        dec(price),
		Fees:         dec(fees),
		Currency:     "EUR",
	}
}

func sell(id, account, instrument, trade string, qty, price, fees float64, t *testing.T) TransactionRecord {
	t.Helper()
	rec := buy(id, account, instrument, trade, qty, price, fees, t)
	rec.Type = TxSell
	return rec
}

// deposit builds a cash transfer-in record.
func deposit(id, account, trade string, amount float64, t *testing.T) TransactionRecord {
	t.Helper()
	return TransactionRecord{
		ID:        id,
		AccountID: account,
		Type:      TxTransferIn,
		TradeDate: day(t, trade),
		Quantity:  dec(amount),
		Price:     dec(1),
		Currency:  "EUR",
	}
}

// withdraw builds a cash transfer-out record.
func withdraw(id, account, trade string, amount float64, t *testing.T) TransactionRecord {
	t.Helper()
	rec := deposit(id, account, trade, amount, t)
	rec.Type = TxTransferOut
	return rec
}

// appendAll appends records one by one and fails the test on any error.
func appendAll(t *testing.T, ledger *Ledger, records ...TransactionRecord) {
	t.Helper()
	for _, rec := range records {
		if _, err := ledger.Append(rec); err != nil {
			t.Fatalf("appending %s: %v", rec.ID, err)
		}
	}
}
