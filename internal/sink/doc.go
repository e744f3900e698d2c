// Package sink loads the published warehouse tables into MySQL.
//
// The files written by the pipeline remain the system of record; the sink
// keeps a queryable copy in sync with the latest successful run.
package sink
