// Package folio is a system of record for investment portfolios.
//
// The ledger is the single source of truth: an append-only, idempotent log
// of normalized transaction records keyed by deterministic IDs, so that
// re-importing a broker file is always safe. Every other view is derived
// from it on demand.
//
// The derivation pipeline runs in a fixed order. Corporate actions are
// applied first, rewriting historical quantities and prices so that splits
// and dividends are reflected retroactively. The adjusted history is then
// replayed into FIFO tax lots, producing open positions and realized gains.
// Positions are priced by a PriceSource into NAV snapshots, and series of
// snapshots feed the performance calculations: time-weighted and
// money-weighted returns, maximum drawdown and Sharpe ratio.
//
// System ties the stages together behind one façade; the stages themselves
// are pure functions over immutable ledger snapshots and can be used
// directly.
package folio
