package folio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// System combines the transaction ledger with corporate action reference data
// and a price source. It is the query surface an API layer consumes: every
// method derives its answer by full replay against a pinned ledger snapshot,
// so concurrent appends never corrupt a computation in flight.
type System struct {
	Ledger *Ledger
	Source PriceSource

	actions []CorporateAction
	actKeys map[string]struct{}
	logger  *zap.Logger
}

// NewSystem creates a system over a ledger and a price source. A nil logger
// disables logging.
func NewSystem(ledger *Ledger, source PriceSource, logger *zap.Logger) *System {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{
		Ledger:  ledger,
		Source:  source,
		actKeys: make(map[string]struct{}),
		logger:  logger,
	}
}

// AddActions registers corporate actions. Registration is idempotent keyed by
// (instrument, effective date, type): the first registration wins.
func (s *System) AddActions(actions ...CorporateAction) {
	for _, a := range actions {
		if _, ok := s.actKeys[a.key()]; ok {
			continue
		}
		s.actKeys[a.key()] = struct{}{}
		s.actions = append(s.actions, a)
	}
}

// replayThrough runs the derivation pipeline (list, adjust, replay) for one
// account against a pinned snapshot, bounded by asOf (zero Date means full
// history). Corporate actions effective after asOf do not back-adjust: a
// point-in-time view reflects only what was known at that time.
func (s *System) replayThrough(ctx context.Context, view *LedgerView, accountID string, asOf Date) ([]TransactionRecord, *ReplayResult, error) {
	rng := Range{}
	if !asOf.IsZero() {
		rng = Range{From: NewDate(1, 1, 1), To: asOf}
	}

	var records []TransactionRecord
	for rec := range view.List(accountID, rng) {
		records = append(records, rec)
	}

	actions := s.actions
	if !asOf.IsZero() {
		actions = nil
		for _, a := range s.actions {
			if !a.EffectiveDate.After(asOf) {
				actions = append(actions, a)
			}
		}
	}

	adjusted := Adjust(records, actions)
	result, err := Replay(ctx, adjusted)
	if err != nil {
		return nil, nil, fmt.Errorf("replay of account %s failed: %w", accountID, err)
	}
	return adjusted, result, nil
}

// Positions rebuilds the account's current positions from the full history.
func (s *System) Positions(ctx context.Context, accountID string) ([]Position, error) {
	_, result, err := s.replayThrough(ctx, s.Ledger.Snapshot(), accountID, Date{})
	if err != nil {
		return nil, err
	}
	return result.Positions(), nil
}

// NavAt values the account as of one date.
func (s *System) NavAt(ctx context.Context, accountID string, asOf Date) (NavSnapshot, error) {
	adjusted, result, err := s.replayThrough(ctx, s.Ledger.Snapshot(), accountID, asOf)
	if err != nil {
		return NavSnapshot{}, err
	}
	return Value(ctx, accountID, adjusted, result, s.Source, asOf)
}

// NavHistory values the account for every day of the range against a single
// ledger snapshot, producing a consistent NAV series.
func (s *System) NavHistory(ctx context.Context, accountID string, rng Range) (NavSeries, error) {
	view := s.Ledger.Snapshot()
	var series NavSeries
	for day := range rng.Days() {
		adjusted, result, err := s.replayThrough(ctx, view, accountID, day)
		if err != nil {
			return nil, err
		}
		snapshot, err := Value(ctx, accountID, adjusted, result, s.Source, day)
		if err != nil {
			return nil, err
		}
		series = series.Append(snapshot)
	}
	return series, nil
}

// RealizedGains returns the account's realized gain events for one tax year.
func (s *System) RealizedGains(ctx context.Context, accountID string, taxYear int) ([]RealizedGain, error) {
	_, result, err := s.replayThrough(ctx, s.Ledger.Snapshot(), accountID, Date{})
	if err != nil {
		return nil, err
	}
	year := TaxYear(taxYear)
	var gains []RealizedGain
	for _, g := range result.Realized {
		if year.Contains(g.Date) {
			gains = append(gains, g)
		}
	}
	return gains, nil
}

// Flows returns the account's external cash flows in replay order.
func (s *System) Flows(ctx context.Context, accountID string) ([]CashFlow, error) {
	view := s.Ledger.Snapshot()
	var records []TransactionRecord
	for rec := range view.List(accountID, Range{}) {
		records = append(records, rec)
	}
	return ExternalFlows(records), nil
}

// PerformanceReport bundles the performance metrics over one NAV series.
type PerformanceReport struct {
	AccountID   string
	Range       Range
	TimeWeight  Percent
	MoneyWeight Percent
	MaxDrawdown Percent
	Sharpe      float64
	// SharpeDefined is false when the series is too short or flat for a
	// meaningful Sharpe ratio.
	SharpeDefined bool
}

// Performance computes the account's performance metrics over a range.
func (s *System) Performance(ctx context.Context, accountID string, rng Range, riskFree float64) (*PerformanceReport, error) {
	series, err := s.NavHistory(ctx, accountID, rng)
	if err != nil {
		return nil, err
	}
	flows, err := s.Flows(ctx, accountID)
	if err != nil {
		return nil, err
	}

	report := &PerformanceReport{AccountID: accountID, Range: rng}
	if report.TimeWeight, err = TimeWeightedReturn(series, flows); err != nil {
		return nil, err
	}
	if report.MoneyWeight, err = MoneyWeightedReturn(series, flows); err != nil {
		return nil, err
	}
	if report.MaxDrawdown, err = MaxDrawdown(series); err != nil {
		return nil, err
	}
	if sharpe, err := SharpeRatio(series.Returns(), riskFree); err == nil {
		report.Sharpe = sharpe
		report.SharpeDefined = true
	}
	return report, nil
}

// accountCurrency returns the currency the account's stored records are
// denominated in, or "" for an account with no history.
func (s *System) accountCurrency(accountID string) string {
	for rec := range s.Ledger.Snapshot().List(accountID, Range{}) {
		return rec.Currency
	}
	return ""
}

// RejectedRecord pairs a rejected input record with the reason it never
// reached the ledger.
type RejectedRecord struct {
	Record TransactionRecord
	Reason string
}

// ImportReport is the outcome of one batch import.
type ImportReport struct {
	BatchID      string
	AccountID    string
	Accepted     int
	Deduplicated int
	Rejected     []RejectedRecord
}

// ImportBatch ingests a batch of normalized records for one account.
//
// Records without an ID get a content-derived one, so re-imports of the same
// source rows dedupe instead of duplicating. Records failing validation are
// reported as rejected and never touch the ledger; that includes records whose
// currency differs from the account's established one, since an account is
// denominated in a single currency. The remaining records commit through the
// ledger's atomic batch append: a duplicate ID with a differing payload fails
// the whole batch with *ConflictError and nothing is committed.
func (s *System) ImportBatch(ctx context.Context, accountID string, records []TransactionRecord) (*ImportReport, error) {
	report := &ImportReport{BatchID: uuid.NewString(), AccountID: accountID}

	currency := s.accountCurrency(accountID)
	valid := make([]TransactionRecord, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rec.AccountID == "" {
			rec.AccountID = accountID
		}
		if err := rec.Validate(); err != nil {
			report.Rejected = append(report.Rejected, RejectedRecord{Record: rec, Reason: err.Error()})
			continue
		}
		if currency == "" {
			currency = rec.Currency
		} else if rec.Currency != currency {
			err := &ValidationError{
				Field:  "currency",
				Reason: fmt.Sprintf("account %s is denominated in %s, got %s", accountID, currency, rec.Currency),
			}
			report.Rejected = append(report.Rejected, RejectedRecord{Record: rec, Reason: err.Error()})
			continue
		}
		if rec.ID == "" {
			rec.ID = rec.ContentID()
		}
		valid = append(valid, rec)
	}

	statuses, err := s.Ledger.AppendBatch(accountID, valid)
	if err != nil {
		s.logger.Warn("import batch aborted",
			zap.String("batch", report.BatchID),
			zap.String("account", accountID),
			zap.Error(err))
		return report, err
	}
	for _, status := range statuses {
		switch status {
		case Accepted:
			report.Accepted++
		case Deduplicated:
			report.Deduplicated++
		}
	}

	s.logger.Info("import batch committed",
		zap.String("batch", report.BatchID),
		zap.String("account", accountID),
		zap.Int("accepted", report.Accepted),
		zap.Int("deduplicated", report.Deduplicated),
		zap.Int("rejected", len(report.Rejected)),
		zap.Uint64("ledger_version", s.Ledger.Version()))
	return report, nil
}
