package folio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// priceLine mirrors the quote JSONL encoding.
type priceLine struct {
	Instrument string          `json:"instrument"`
	On         Date            `json:"on"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
}

// DecodePrices reads quotes from a JSONL stream into a price table.
func DecodePrices(r io.Reader, staleAfterDays int) (*PriceTable, error) {
	table := NewPriceTable(staleAfterDays)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line priceLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("prices line %d: %w", lineNo, err)
		}
		if line.Instrument == "" {
			return nil, fmt.Errorf("prices line %d: missing instrument", lineNo)
		}
		table.Set(line.Instrument, line.On, M(line.Price, line.Currency))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// EncodePrice appends one quote to a JSONL stream.
func EncodePrice(w io.Writer, instrumentID string, on Date, price Money) error {
	var jw jsonObjectWriter
	jw.Append("instrument", instrumentID)
	jw.Append("on", on)
	jw.Append("price", price.Decimal())
	jw.Optional("currency", price.Currency())
	b, err := jw.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
