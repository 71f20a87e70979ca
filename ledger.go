package folio

import (
	"bytes"
	"iter"
	"slices"
	"sync"
)

// AppendStatus is the outcome of an idempotent ledger append.
type AppendStatus int

const (
	// Accepted means the record was new and is now committed.
	Accepted AppendStatus = iota
	// Deduplicated means a byte-identical record with the same ID was already
	// committed; the append changed nothing.
	Deduplicated
)

func (s AppendStatus) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Deduplicated:
		return "deduplicated"
	default:
		return "unknown"
	}
}

// Ledger is the append-only, deduplicated store of normalized transaction
// records: the single source of truth from which every other view is rebuilt.
//
// Appends are linearized per account. Readers take a Snapshot, which pins a
// monotonic version so a replay never observes a partially committed batch.
type Ledger struct {
	mu      sync.RWMutex
	records []TransactionRecord
	index   map[string]int // record ID -> position in records
	version uint64

	accmu    sync.Mutex
	accounts map[string]*sync.Mutex
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		index:    make(map[string]int),
		accounts: make(map[string]*sync.Mutex),
	}
}

// accountLock returns the serialization point for one account's appends.
func (l *Ledger) accountLock(accountID string) *sync.Mutex {
	l.accmu.Lock()
	defer l.accmu.Unlock()
	m, ok := l.accounts[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.accounts[accountID] = m
	}
	return m
}

// Append commits a single record idempotently. A record whose ID is already
// committed is compared byte-for-byte against the stored copy: identical
// payloads return Deduplicated without touching state, differing payloads fail
// with *ConflictError and the ledger is left unchanged.
func (l *Ledger) Append(rec TransactionRecord) (AppendStatus, error) {
	statuses, err := l.AppendBatch(rec.AccountID, []TransactionRecord{rec})
	if err != nil {
		return 0, err
	}
	return statuses[0], nil
}

// AppendBatch commits a batch of records for one account as a single atomic
// unit: every record dedupe-checks and commits, or none of it does. A
// *ValidationError or *ConflictError on any record aborts the whole batch.
//
// On success the returned slice holds the per-record status in input order and
// the ledger version has advanced by exactly one.
func (l *Ledger) AppendBatch(accountID string, records []TransactionRecord) ([]AppendStatus, error) {
	acc := l.accountLock(accountID)
	acc.Lock()
	defer acc.Unlock()

	statuses := make([]AppendStatus, len(records))
	fresh := make([]TransactionRecord, 0, len(records))
	seen := make(map[string][]byte) // IDs introduced earlier in this batch

	l.mu.RLock()
	for i, rec := range records {
		if rec.AccountID != accountID {
			l.mu.RUnlock()
			return nil, &ValidationError{Field: "account", Reason: "does not match batch account"}
		}
		if rec.ID == "" {
			l.mu.RUnlock()
			return nil, &ValidationError{Field: "id", Reason: "missing"}
		}
		if err := rec.Validate(); err != nil {
			l.mu.RUnlock()
			return nil, err
		}

		canonical := rec.canonical()
		if pos, ok := l.index[rec.ID]; ok {
			if !bytes.Equal(canonical, l.records[pos].canonical()) {
				l.mu.RUnlock()
				return nil, &ConflictError{ID: rec.ID}
			}
			statuses[i] = Deduplicated
			continue
		}
		if prior, ok := seen[rec.ID]; ok {
			if !bytes.Equal(canonical, prior) {
				l.mu.RUnlock()
				return nil, &ConflictError{ID: rec.ID}
			}
			statuses[i] = Deduplicated
			continue
		}
		seen[rec.ID] = canonical
		statuses[i] = Accepted
		fresh = append(fresh, rec)
	}
	l.mu.RUnlock()

	if len(fresh) == 0 {
		return statuses, nil
	}

	l.mu.Lock()
	for _, rec := range fresh {
		l.index[rec.ID] = len(l.records)
		l.records = append(l.records, rec)
	}
	l.version++
	l.mu.Unlock()
	return statuses, nil
}

// Get returns the committed record with the given ID.
func (l *Ledger) Get(id string) (TransactionRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.index[id]
	if !ok {
		return TransactionRecord{}, false
	}
	return l.records[pos], true
}

// Version returns the current ledger version. It increases by one per
// committed append or batch and never decreases.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Len returns the number of committed records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Accounts returns the sorted list of account IDs present in the ledger.
func (l *Ledger) Accounts() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	set := make(map[string]struct{})
	for _, rec := range l.records {
		set[rec.AccountID] = struct{}{}
	}
	accounts := make([]string, 0, len(set))
	for a := range set {
		accounts = append(accounts, a)
	}
	slices.Sort(accounts)
	return accounts
}

// Snapshot pins the current ledger state. All derived views replay against a
// snapshot: records committed afterwards are invisible to it, so a valuation
// in flight never observes half of an import batch.
func (l *Ledger) Snapshot() *LedgerView {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &LedgerView{ledger: l, version: l.version, size: len(l.records)}
}

// LedgerView is a consistent, immutable view of the ledger at one version.
type LedgerView struct {
	ledger  *Ledger
	version uint64
	size    int
}

// Version returns the ledger version the view was taken at.
func (v *LedgerView) Version() uint64 { return v.version }

// Len returns the number of records visible to the view.
func (v *LedgerView) Len() int { return v.size }

// List yields the account's records ordered by (trade date, ID); the ID
// tie-break makes replay order deterministic. A zero Range means no date
// filter. The returned sequence is restartable: it may be ranged any number
// of times and always yields the same records in the same order.
func (v *LedgerView) List(accountID string, rng Range) iter.Seq[TransactionRecord] {
	v.ledger.mu.RLock()
	selected := make([]TransactionRecord, 0, v.size)
	for _, rec := range v.ledger.records[:v.size] {
		if rec.AccountID != accountID {
			continue
		}
		if !rng.IsZero() && !rng.Contains(rec.TradeDate) {
			continue
		}
		selected = append(selected, rec)
	}
	v.ledger.mu.RUnlock()

	slices.SortFunc(selected, func(a, b TransactionRecord) int {
		if a.less(b) {
			return -1
		}
		if b.less(a) {
			return 1
		}
		return 0
	})

	return func(yield func(TransactionRecord) bool) {
		for _, rec := range selected {
			if !yield(rec) {
				return
			}
		}
	}
}

// All yields every record visible to the view in commit order. It is the
// traversal the persistence backends use to write the append-only log.
func (v *LedgerView) All() iter.Seq[TransactionRecord] {
	v.ledger.mu.RLock()
	records := slices.Clone(v.ledger.records[:v.size])
	v.ledger.mu.RUnlock()
	return func(yield func(TransactionRecord) bool) {
		for _, rec := range records {
			if !yield(rec) {
				return
			}
		}
	}
}
