// Package ledger divides expenses among group members and settles the
// resulting debts.
//
// Allocate and ValidateSplits run when an expense is written. AggregateBalances,
// Simplify and BuildSummary run when a debt summary is read and always start
// from the full expense history of a group; nothing here keeps state between
// calls, so every function is safe for concurrent use.
//
// All amounts are integer minor units. Currencies are never mixed or converted.
package ledger
