// Package normalize turns heterogeneous remote rows into canonical records
// and derives what the planner compares them by.
//
// Everything here is pure and total. Malformed input never produces an
// error: the affected field is left empty (zero HourMinute, empty date, ...)
// and callers decide whether the record is usable.
//
// Remote rows are maps from header text to cell text. Header text is folded
// (lower case, accents stripped, punctuation collapsed to "_") and matched
// against an explicit alias table per sheet, so "Fecha", "fecha " and "date"
// all resolve to the canonical date column.
package normalize
