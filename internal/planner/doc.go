// Package planner holds the pure decision layer of the sync engine.
//
// Signals are computed by the caller from I/O (local lookups, the remote
// row, the watermark); PlanPull and PlanPush turn them into an ordered list
// of actions without touching anything; Run dispatches the actions to
// injected handlers. Identical signals always produce identical plans, which
// is what lets the tables below be tested exhaustively.
//
// Pull (remote row → local store), highest precedence first:
//
//	no identifier, no local dedupe match      → Insert (+ backfill when enabled)
//	no identifier, local dedupe match         → Skip(duplicate), then BackfillIdentifier
//	                                            when enabled and the match has an identifier
//	identifier, no local row with it          → Skip(duplicate) on a dedupe hit, else Insert
//	identifier, local row, conflict           → RegisterConflict
//	identifier, local row, remote newer       → Update
//	identifier, local row, otherwise          → Skip(up to date)
//
// Push (changed local row → remote sheet):
//
//	no remote counterpart                     → Insert (append)
//	dedupe match without identifier           → BackfillIdentifier (+ Update when local newer)
//	                                            when enabled, else Skip(unlinked)
//	dedupe match with another identifier      → Skip(duplicate)
//	identifier match, conflict                → RegisterConflict
//	identifier match, local newer             → Update
//	identifier match, otherwise               → Skip(up to date)
package planner
