// Package engine executes rendered statements against SQLite and folds the
// flat joined result set back into nested entity rows.
//
// Execution is read-only. The engine never builds SQL itself; it runs
// exactly what the renderer produced, with every value passed as a named
// parameter. Each failed execution carries a generated token so log lines
// and returned errors can be correlated.
package engine
