// Package bench measures how secondary indexes change query latency.
//
// A Plan names a read-only query and the indexes relevant to it. Compare
// runs the query with those indexes dropped, then creates them and runs it
// again, and reports the median latency of each phase and their ratio.
//
// Comparing mutates the schema: indexes are left created when it returns.
// Callers that need the earlier index state must restore it themselves.
//
// The harness never inspects query results. Every run reads its result set
// to the end so that the measured time covers the whole query.
package bench
