package folio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// JSONPriceSource adapts any quote service that answers JSON documents into a
// PriceSource. The URL template and the jsonpath expressions for price and
// quote date are configuration, so one adapter covers many vendors without
// the core ever branching on vendor identity.
//
// The HTTP request is bound by the caller's context: a deadline hit surfaces
// as *StalePriceError through the valuation engine, never as a hang.
type JSONPriceSource struct {
	// Client used for requests; http.DefaultClient when nil.
	Client *http.Client
	// URL is the request template; "{instrument}" and "{date}" are replaced.
	URL string
	// PricePath is the jsonpath expression for the price value.
	PricePath string
	// DatePath is the jsonpath expression for the quote date, optional. A
	// document without a date is assumed quoted as of the requested date.
	DatePath string
	// Currency of the returned prices.
	Currency string
	// StaleAfterDays flags quotes older than this many days, zero disables.
	StaleAfterDays int
}

// Price fetches the document and extracts the quote.
func (s *JSONPriceSource) Price(ctx context.Context, instrumentID string, asOf Date) (Quote, error) {
	addr := strings.NewReplacer(
		"{instrument}", instrumentID,
		"{date}", asOf.String(),
	).Replace(s.URL)

	var doc any
	if err := jwget(ctx, s.client(), addr, &doc); err != nil {
		return Quote{}, fmt.Errorf("fetching quote for %q: %w", instrumentID, err)
	}
	return s.extract(doc, instrumentID, asOf)
}

func (s *JSONPriceSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

// extract pulls a Quote out of a decoded quote document.
func (s *JSONPriceSource) extract(doc any, instrumentID string, asOf Date) (Quote, error) {
	value, err := jsonpath.Get(s.PricePath, doc)
	if err != nil {
		return Quote{}, fmt.Errorf("quote for %q: path %q: %w", instrumentID, s.PricePath, err)
	}
	price, err := asFloat(value)
	if err != nil {
		return Quote{}, fmt.Errorf("quote for %q: path %q: %w", instrumentID, s.PricePath, err)
	}

	quoted := asOf
	if s.DatePath != "" {
		value, err := jsonpath.Get(s.DatePath, doc)
		if err != nil {
			return Quote{}, fmt.Errorf("quote date for %q: path %q: %w", instrumentID, s.DatePath, err)
		}
		str, ok := firstValue(value).(string)
		if !ok {
			return Quote{}, fmt.Errorf("quote date for %q: path %q: not a string", instrumentID, s.DatePath)
		}
		if quoted, err = ParseDate(str); err != nil {
			return Quote{}, fmt.Errorf("quote date for %q: %w", instrumentID, err)
		}
	}

	age := quoted.DaysUntil(asOf)
	return Quote{
		Price: M(price, s.Currency),
		AsOf:  quoted,
		Stale: s.StaleAfterDays > 0 && age > s.StaleAfterDays,
	}, nil
}

// ParseQuoteDocument extracts a quote from an already-fetched document, for
// adapters feeding from files instead of live endpoints.
func (s *JSONPriceSource) ParseQuoteDocument(r io.Reader, instrumentID string, asOf Date) (Quote, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Quote{}, fmt.Errorf("decoding quote document: %w", err)
	}
	return s.extract(doc, instrumentID, asOf)
}

// firstValue unwraps jsonpath results that come back as a one-element list.
func firstValue(v any) any {
	if list, ok := v.([]any); ok && len(list) > 0 {
		return list[0]
	}
	return v
}

// asFloat converts a jsonpath result to a float64, tolerating services that
// return numbers as strings with comma decimal separators.
func asFloat(v any) (float64, error) {
	v = firstValue(v)
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		var f float64
		t = strings.ReplaceAll(t, ",", ".")
		if _, err := fmt.Sscanf(t, "%g", &f); err != nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

// jwget performs a context-bound HTTP GET and unmarshals the JSON response
// into the provided data structure.
func jwget(ctx context.Context, client *http.Client, addr string, data interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}
