// Package ledger holds the bookkeeping model of the home game: players,
// sessions and per-player results, and the pure functions deriving the
// leaderboard and balance checks from them.
//
// Amounts are decimals. Profit is always cash out minus buy in and is never
// stored. Nothing in this package talks to the store; every figure is
// recomputed from the lists it is given.
//
// Two input policies are lossy on purpose and tested as such:
//   - ParseAmount turns unparseable input into zero
//   - FromNet collapses a net amount into one canonical buy in / cash out pair
//
// NormalizeNet carries the rebuy assumption used by the historical import.
package ledger
