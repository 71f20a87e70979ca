package folio

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"
)

// TxType identifies the kind of a normalized transaction record.
type TxType string

const (
	TxBuy         TxType = "buy"
	TxSell        TxType = "sell"
	TxDividend    TxType = "dividend"
	TxSplit       TxType = "split"
	TxTransferIn  TxType = "transfer-in"
	TxTransferOut TxType = "transfer-out"
	TxFee         TxType = "fee"
)

// ParseTxType parses a string into a TxType.
func ParseTxType(s string) (TxType, error) {
	switch t := TxType(s); t {
	case TxBuy, TxSell, TxDividend, TxSplit, TxTransferIn, TxTransferOut, TxFee:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transaction type: %q", s)
	}
}

// TransactionRecord is the normalized form every broker adapter produces.
// Once committed to the ledger it is immutable; corrections are modeled as new
// offsetting records, never as edits.
//
// Conventions:
//   - Quantity counts shares for security transactions. For a split record it
//     carries the split ratio (2 for a 2-for-1 split).
//   - A transfer with an empty InstrumentID is a cash movement: Price is 1 and
//     Quantity is the cash amount. With an InstrumentID it is an in-kind share
//     transfer whose Price carries the inherited unit basis.
//   - Fees on a buy are capitalized into the lot's cost basis; fees on a sell
//     reduce the proceeds.
type TransactionRecord struct {
	ID           string
	AccountID    string
	InstrumentID string
	Type         TxType
	TradeDate    Date
	SettleDate   Date // zero means same day as TradeDate
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	Fees         decimal.Decimal
	Currency     string
	RawSource    string // opaque adapter payload kept for audit
}

// DeriveID builds the stable idempotency key for a record that carries a
// broker-assigned external reference.
func DeriveID(broker, account, externalRef string) string {
	return broker + ":" + account + ":" + externalRef
}

// ContentID derives an idempotency key from the record's own content, for
// adapters whose source format has no usable external reference. Two imports
// of the same source row always derive the same key.
func (r TransactionRecord) ContentID() string {
	clone := r
	clone.ID = ""
	sum := sha256.Sum256(clone.canonical())
	return "sha256:" + hex.EncodeToString(sum[:])
}

// canonical returns the single canonical byte encoding of the record. The
// ledger's byte-for-byte duplicate comparison and the append-only log format
// both use it.
func (r TransactionRecord) canonical() []byte {
	var w jsonObjectWriter
	w.Optional("id", r.ID)
	w.Append("account", r.AccountID)
	w.Optional("instrument", r.InstrumentID)
	w.Append("type", r.Type)
	w.Append("trade", r.TradeDate)
	if !r.SettleDate.IsZero() && r.SettleDate != r.TradeDate {
		w.Append("settle", r.SettleDate)
	}
	w.Append("quantity", r.Quantity)
	w.Append("price", r.Price)
	if !r.Fees.IsZero() {
		w.Append("fees", r.Fees)
	}
	w.Append("currency", r.Currency)
	w.Optional("source", r.RawSource)
	b, err := w.MarshalJSON()
	if err != nil {
		// Only reachable if a field type stops being marshalable, which is a
		// programming error, not an input error.
		panic(fmt.Sprintf("canonical encoding failed: %v", err))
	}
	return b
}

// GrossAmount is Quantity × Price: the cash value of the record before fees.
func (r TransactionRecord) GrossAmount() Money {
	return M(r.Quantity.Mul(r.Price), r.Currency)
}

// IsCashTransfer reports whether the record moves cash in or out of the
// account (an external flow in performance terms).
func (r TransactionRecord) IsCashTransfer() bool {
	return (r.Type == TxTransferIn || r.Type == TxTransferOut) && r.InstrumentID == ""
}

// opensLot reports whether the record creates a tax lot.
func (r TransactionRecord) opensLot() bool {
	return r.Type == TxBuy || (r.Type == TxTransferIn && r.InstrumentID != "")
}

// consumesLots reports whether the record consumes tax lots.
func (r TransactionRecord) consumesLots() bool {
	return r.Type == TxSell || (r.Type == TxTransferOut && r.InstrumentID != "")
}

// lotRelevant reports whether split back-adjustment applies to the record.
func (r TransactionRecord) lotRelevant() bool {
	return r.opensLot() || r.consumesLots()
}

// Validate checks the record against the ingestion contract. It returns a
// *ValidationError naming the first offending field, or nil.
func (r TransactionRecord) Validate() error {
	if r.AccountID == "" {
		return &ValidationError{Field: "account", Reason: "missing"}
	}
	if _, err := ParseTxType(string(r.Type)); err != nil {
		return &ValidationError{Field: "type", Reason: err.Error()}
	}
	if r.TradeDate.IsZero() {
		return &ValidationError{Field: "trade", Reason: "missing"}
	}
	if !r.SettleDate.IsZero() && r.SettleDate.Before(r.TradeDate) {
		return &ValidationError{Field: "settle", Reason: "before trade date"}
	}
	if r.Currency == "" {
		return &ValidationError{Field: "currency", Reason: "missing"}
	}
	if r.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "negative"}
	}
	if r.Fees.IsNegative() {
		return &ValidationError{Field: "fees", Reason: "negative"}
	}

	switch r.Type {
	case TxBuy, TxSell:
		if r.InstrumentID == "" {
			return &ValidationError{Field: "instrument", Reason: "missing"}
		}
		if !r.Quantity.IsPositive() {
			return &ValidationError{Field: "quantity", Reason: "must be positive"}
		}
	case TxDividend:
		if r.InstrumentID == "" {
			return &ValidationError{Field: "instrument", Reason: "missing"}
		}
	case TxSplit:
		if r.InstrumentID == "" {
			return &ValidationError{Field: "instrument", Reason: "missing"}
		}
		if !r.Quantity.IsPositive() {
			return &ValidationError{Field: "quantity", Reason: "split ratio must be positive"}
		}
	case TxTransferIn, TxTransferOut:
		if !r.Quantity.IsPositive() {
			return &ValidationError{Field: "quantity", Reason: "must be positive"}
		}
		if r.InstrumentID == "" && !r.Price.Equal(decimal.NewFromInt(1)) {
			return &ValidationError{Field: "price", Reason: "cash transfers use price 1"}
		}
	case TxFee:
		if !r.Fees.IsPositive() {
			return &ValidationError{Field: "fees", Reason: "must be positive"}
		}
	}
	return nil
}

// less orders records by (trade date, id): the deterministic replay order.
func (r TransactionRecord) less(other TransactionRecord) bool {
	if c := r.TradeDate.Compare(other.TradeDate); c != 0 {
		return c < 0
	}
	return r.ID < other.ID
}
