// Package analytics is the aggregation pipeline: a library of pure
// functions that each take a (filtered) complaint record slice and return
// one chart-ready summary table. Rankings, group-by rollups,
// cross-tabulations and time-series rollups all recompute in full on every
// call; nothing is incrementally maintained and nothing here mutates the
// records, so concurrent callers can share one immutable record set.
//
// Degenerate inputs are normal: an empty filtered set, a grouping column
// with no valid keys, or a zero denominator all produce empty/zero/"no
// data" results, never an error. The only errors this package returns are
// for invalid parameters and for the documented fewer-than-two-years
// sentinel on year-over-year trends.
package analytics
