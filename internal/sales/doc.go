// Package sales turns a flat table of monthly sales transactions into
// validated per-product summaries, year-over-year comparisons and monthly
// unit trends. Every function here is pure: callers pass the rows in and
// get values back, nothing is cached between calls.
package sales
