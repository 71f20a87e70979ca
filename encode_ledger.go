package folio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// MarshalJSON encodes the record in its canonical field order. The encoding is
// the append-only log format and the byte-for-byte dedup payload at once.
func (r TransactionRecord) MarshalJSON() ([]byte, error) {
	return r.canonical(), nil
}

// recordLine mirrors the canonical encoding for decoding.
type recordLine struct {
	ID         string          `json:"id"`
	Account    string          `json:"account"`
	Instrument string          `json:"instrument"`
	Type       string          `json:"type"`
	Trade      Date            `json:"trade"`
	Settle     Date            `json:"settle"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Fees       decimal.Decimal `json:"fees"`
	Currency   string          `json:"currency"`
	Source     string          `json:"source"`
}

// UnmarshalJSON decodes a record from its canonical encoding.
func (r *TransactionRecord) UnmarshalJSON(b []byte) error {
	var line recordLine
	if err := json.Unmarshal(b, &line); err != nil {
		return err
	}
	txType, err := ParseTxType(line.Type)
	if err != nil {
		return err
	}
	*r = TransactionRecord{
		ID:           line.ID,
		AccountID:    line.Account,
		InstrumentID: line.Instrument,
		Type:         txType,
		TradeDate:    line.Trade,
		SettleDate:   line.Settle,
		Quantity:     line.Quantity,
		Price:        line.Price,
		Fees:         line.Fees,
		Currency:     line.Currency,
		RawSource:    line.Source,
	}
	return nil
}

// EncodeRecord appends one record to a JSONL stream.
func EncodeRecord(w io.Writer, rec TransactionRecord) error {
	if _, err := w.Write(rec.canonical()); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// EncodeLedger writes every record of the view as JSONL, in commit order.
func EncodeLedger(w io.Writer, view *LedgerView) error {
	for rec := range view.All() {
		if err := EncodeRecord(w, rec); err != nil {
			return err
		}
	}
	return nil
}

// DecodeLedger rebuilds a ledger from a JSONL stream. Replaying the log
// through the ordinary append path keeps load subject to the same dedup and
// conflict rules as live ingestion.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	ledger := NewLedger()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec TransactionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", lineNo, err)
		}
		if _, err := ledger.Append(rec); err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// actionLine mirrors the corporate action JSONL encoding.
type actionLine struct {
	Instrument string          `json:"instrument"`
	Effective  Date            `json:"effective"`
	Type       string          `json:"type"`
	Ratio      decimal.Decimal `json:"ratio"`
	Cash       decimal.Decimal `json:"cash"`
}

// MarshalJSON encodes the action with ordered fields.
func (a CorporateAction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("instrument", a.InstrumentID)
	w.Append("effective", a.EffectiveDate)
	w.Append("type", a.Type)
	if a.Type == ActionSplit {
		w.Append("ratio", a.Ratio)
	}
	if a.Type == ActionDividend {
		w.Append("cash", a.CashAmount)
	}
	return w.MarshalJSON()
}

// UnmarshalJSON decodes an action.
func (a *CorporateAction) UnmarshalJSON(b []byte) error {
	var line actionLine
	if err := json.Unmarshal(b, &line); err != nil {
		return err
	}
	switch ActionType(line.Type) {
	case ActionSplit, ActionDividend:
	default:
		return fmt.Errorf("unknown corporate action type: %q", line.Type)
	}
	*a = CorporateAction{
		InstrumentID:  line.Instrument,
		EffectiveDate: line.Effective,
		Type:          ActionType(line.Type),
		Ratio:         line.Ratio,
		CashAmount:    line.Cash,
	}
	return nil
}

// DecodeActions reads corporate actions from a JSONL stream.
func DecodeActions(r io.Reader) ([]CorporateAction, error) {
	var actions []CorporateAction
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var a CorporateAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("actions line %d: %w", lineNo, err)
		}
		actions = append(actions, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}

// EncodeActions writes corporate actions as JSONL.
func EncodeActions(w io.Writer, actions []CorporateAction) error {
	for _, a := range actions {
		b, err := json.Marshal(a)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}
