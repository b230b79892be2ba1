// Package analytics is the aggregation engine behind the dashboards.
//
// Every function takes a *domain.Dataset, reads it without modifying it and
// returns plain values. Empty datasets give empty results; no function
// divides by a zero count.
//
// Grouping functions (GroupSum, TopN, CountBy, TopPair) keep groups in the
// order their key first appears and sort stably, so ties stay in
// first-seen order. Trend functions bucket by year and month unless the
// month-name mode is requested.
package analytics
