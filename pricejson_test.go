package folio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestJSONPriceSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quotes/AAPL" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"symbol":"AAPL","last":130.25,"date":"2025-02-14"}`))
	}))
	defer server.Close()

	source := &JSONPriceSource{
		Client:    server.Client(),
		URL:       server.URL + "/quotes/{instrument}",
		PricePath: "$.last",
		DatePath:  "$.date",
		Currency:  "EUR",
	}

	quote, err := source.Price(context.Background(), "AAPL", day(t, "2025-02-15"))
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if !quote.Price.Equal(EUR(130.25)) {
		t.Errorf("price = %s, want 130.25", quote.Price)
	}
	if quote.AsOf != day(t, "2025-02-14") {
		t.Errorf("quote date = %s, want 2025-02-14", quote.AsOf)
	}
	if quote.Stale {
		t.Errorf("one-day-old quote flagged stale with staleness disabled")
	}
}

func TestJSONPriceSourceStaleness(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"last":"101,5","date":"2025-01-10"}`))
	}))
	defer server.Close()

	source := &JSONPriceSource{
		Client:         server.Client(),
		URL:            server.URL,
		PricePath:      "$.last",
		DatePath:       "$.date",
		Currency:       "EUR",
		StaleAfterDays: 5,
	}

	quote, err := source.Price(context.Background(), "AAPL", day(t, "2025-02-15"))
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	// Comma decimal separators are tolerated.
	if !quote.Price.Equal(EUR(101.5)) {
		t.Errorf("price = %s, want 101.50", quote.Price)
	}
	if !quote.Stale {
		t.Errorf("36-day-old quote not flagged stale")
	}
}

func TestJSONPriceSourceHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	source := &JSONPriceSource{
		Client:    server.Client(),
		URL:       server.URL,
		PricePath: "$.last",
		Currency:  "EUR",
	}
	if _, err := source.Price(context.Background(), "AAPL", day(t, "2025-02-15")); err == nil {
		t.Fatalf("404 response must fail the quote")
	}
}

func TestJSONPriceSourceHonorsContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	source := &JSONPriceSource{
		URL:       server.URL,
		PricePath: "$.last",
		Currency:  "EUR",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := source.Price(ctx, "AAPL", day(t, "2025-02-15")); err == nil {
		t.Fatalf("hung endpoint must fail when the context expires")
	}
}

func TestParseQuoteDocument(t *testing.T) {
	source := &JSONPriceSource{PricePath: "$.quotes[0].close", Currency: "USD"}
	doc := `{"quotes":[{"close":412.7}]}`

	quote, err := source.ParseQuoteDocument(strings.NewReader(doc), "MSFT", day(t, "2025-02-15"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !quote.Price.Equal(USD(412.7)) {
		t.Errorf("price = %s, want 412.70", quote.Price)
	}
	if quote.AsOf != day(t, "2025-02-15") {
		t.Errorf("undated document must assume the requested date, got %s", quote.AsOf)
	}
}
