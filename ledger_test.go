package folio

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestLedgerAppendIsIdempotent(t *testing.T) {
	ledger := NewLedger()
	rec := buy("ib:u1:t1", "acct-1", "AAPL", "2025-01-10", 10, 100, 0, t)

	status, err := ledger.Append(rec)
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	if status != Accepted {
		t.Errorf("first append status = %v, want Accepted", status)
	}
	v1 := ledger.Version()

	status, err = ledger.Append(rec)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if status != Deduplicated {
		t.Errorf("second append status = %v, want Deduplicated", status)
	}
	if ledger.Len() != 1 {
		t.Errorf("ledger has %d records, want 1", ledger.Len())
	}
	if ledger.Version() != v1 {
		t.Errorf("version changed on deduplicated append: %d -> %d", v1, ledger.Version())
	}
}

func TestLedgerAppendConflict(t *testing.T) {
	ledger := NewLedger()
	rec := buy("ib:u1:t1", "acct-1", "AAPL", "2025-01-10", 10, 100, 0, t)
	appendAll(t, ledger, rec)

	conflicting := rec
	conflicting.Price = dec(101)

	_, err := ledger.Append(conflicting)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("append with same ID and different payload: got %v, want *ConflictError", err)
	}
	if conflict.ID != rec.ID {
		t.Errorf("conflict reports ID %q, want %q", conflict.ID, rec.ID)
	}
	if ledger.Len() != 1 {
		t.Errorf("conflicting append modified the ledger: %d records", ledger.Len())
	}
}

func TestLedgerBatchIsAtomic(t *testing.T) {
	ledger := NewLedger()
	appendAll(t, ledger, buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 100, 0, t))
	v1 := ledger.Version()

	batch := []TransactionRecord{
		buy("t2", "acct-1", "MSFT", "2025-01-11", 5, 300, 0, t),
		sell("t1", "acct-1", "AAPL", "2025-01-12", 10, 110, 0, t), // conflicts with the committed t1
	}
	_, err := ledger.AppendBatch("acct-1", batch)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("batch with a conflict: got %v, want *ConflictError", err)
	}
	if ledger.Len() != 1 {
		t.Errorf("failed batch committed records: ledger has %d, want 1", ledger.Len())
	}
	if ledger.Version() != v1 {
		t.Errorf("failed batch bumped the version: %d -> %d", v1, ledger.Version())
	}
}

func TestLedgerBatchSingleVersionBump(t *testing.T) {
	ledger := NewLedger()
	v0 := ledger.Version()

	batch := []TransactionRecord{
		buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 100, 0, t),
		buy("t2", "acct-1", "MSFT", "2025-01-11", 5, 300, 0, t),
		buy("t3", "acct-1", "NVDA", "2025-01-12", 2, 500, 0, t),
	}
	statuses, err := ledger.AppendBatch("acct-1", batch)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	for i, s := range statuses {
		if s != Accepted {
			t.Errorf("status[%d] = %v, want Accepted", i, s)
		}
	}
	if got := ledger.Version(); got != v0+1 {
		t.Errorf("batch bumped version by %d, want 1", got-v0)
	}
}

func TestLedgerListOrdering(t *testing.T) {
	ledger := NewLedger()
	// Committed out of trade-date order, and with same-day records whose IDs
	// decide the tie.
	appendAll(t, ledger,
		buy("b", "acct-1", "AAPL", "2025-01-12", 1, 100, 0, t),
		buy("a", "acct-1", "AAPL", "2025-01-12", 1, 100, 0, t),
		buy("c", "acct-1", "AAPL", "2025-01-10", 1, 100, 0, t),
	)

	var got []string
	for rec := range ledger.Snapshot().List("acct-1", Range{}) {
		got = append(got, rec.ID)
	}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("replay order = %v, want %v", got, want)
		}
	}
}

func TestLedgerSnapshotIsolation(t *testing.T) {
	ledger := NewLedger()
	appendAll(t, ledger, buy("t1", "acct-1", "AAPL", "2025-01-10", 10, 100, 0, t))

	view := ledger.Snapshot()
	appendAll(t, ledger, buy("t2", "acct-1", "MSFT", "2025-01-11", 5, 300, 0, t))

	count := 0
	for range view.List("acct-1", Range{}) {
		count++
	}
	if count != 1 {
		t.Errorf("snapshot sees %d records, want the 1 present when taken", count)
	}
	if view.Version() == ledger.Version() {
		t.Errorf("snapshot version must lag the live ledger after an append")
	}
}

func TestLedgerConcurrentAppends(t *testing.T) {
	ledger := NewLedger()
	const writers = 8
	const perWriter = 20

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			account := fmt.Sprintf("acct-%d", w%2)
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("w%d-t%d", w, i)
				rec := buy(id, account, "AAPL", "2025-01-10", 1, 100, 0, t)
				if _, err := ledger.Append(rec); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent append: %v", err)
	}
	if got := ledger.Len(); got != writers*perWriter {
		t.Errorf("ledger has %d records, want %d", got, writers*perWriter)
	}
}
