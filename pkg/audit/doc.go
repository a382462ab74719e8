// Package audit records policy evaluation results in a SQLite
// database for later inspection.
//
// Each recorded entry captures who asked for what, the final
// decision, and which policies and rules participated. The store is
// append-only; Query supports filtering by subject, decision, and
// time range.
package audit
