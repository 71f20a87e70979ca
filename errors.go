package folio

import "fmt"

// The error taxonomy below is the whole contract between the core and its
// callers: every error kind except InvariantError is recoverable (retry with
// corrected input, supply better price data, extend history). InvariantError
// means the replay algorithm itself is wrong and the computation must be
// abandoned rather than produce a plausible-looking wrong number.

// ValidationError reports a malformed record rejected at the ingestion
// boundary. The ledger is never touched.
type ValidationError struct {
	Field  string // the offending field
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid transaction record: field %q: %s", e.Field, e.Reason)
}

// ConflictError reports an append whose ID matches a stored record but whose
// payload differs. The stored record is never overwritten; the caller must
// reconcile manually.
type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("transaction %s already exists with a different payload", e.ID)
}

// OversellError reports a sale whose quantity exceeds the open quantity held
// for the instrument. The engine never clamps the sale or guesses a short-sale
// interpretation.
type OversellError struct {
	TransactionID string
	AccountID     string
	InstrumentID  string
	Requested     Quantity
	Held          Quantity
}

func (e *OversellError) Error() string {
	return fmt.Sprintf("transaction %s: sell %s of %s exceeds open quantity %s in account %s",
		e.TransactionID, e.Requested, e.InstrumentID, e.Held, e.AccountID)
}

// StalePriceError reports that a trustworthy price could not be obtained for
// an instrument with a nonzero position. AgeDays is the age of the last known
// quote, or -1 when no quote was ever seen.
type StalePriceError struct {
	InstrumentID string
	AsOf         Date
	AgeDays      int
}

func (e *StalePriceError) Error() string {
	if e.AgeDays < 0 {
		return fmt.Sprintf("no price known for %s as of %s", e.InstrumentID, e.AsOf)
	}
	return fmt.Sprintf("price for %s as of %s is %d days old", e.InstrumentID, e.AsOf, e.AgeDays)
}

// InsufficientDataError reports that a metric is undefined for the amount of
// history supplied.
type InsufficientDataError struct {
	Metric string
	Need   int
	Have   int
	// MissingDate is set when the series lacks a snapshot on a specific date
	// the metric needs, regardless of its overall length.
	MissingDate Date
}

func (e *InsufficientDataError) Error() string {
	if !e.MissingDate.IsZero() {
		return fmt.Sprintf("%s requires a snapshot on %s", e.Metric, e.MissingDate)
	}
	return fmt.Sprintf("%s requires at least %d periods, have %d", e.Metric, e.Need, e.Have)
}

// ConvergenceError reports that a root-finding iteration did not converge.
// Callers must not fall back to the last iterate.
type ConvergenceError struct {
	Metric     string
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s did not converge after %d iterations", e.Metric, e.Iterations)
}

// InvariantError reports a violated internal invariant, such as a negative
// remaining lot quantity after matching. It is fatal to the computation that
// raised it and carries enough context to debug the replay.
type InvariantError struct {
	Invariant     string
	TransactionID string
	AccountID     string
	InstrumentID  string
	Detail        string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %q violated at transaction %s (%s/%s): %s",
		e.Invariant, e.TransactionID, e.AccountID, e.InstrumentID, e.Detail)
}
