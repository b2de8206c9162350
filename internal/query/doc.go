// Package query executes queryir plans and streams typed results.
//
// An Enumerable binds a plan to a driver, a shaper and a query Context.
// Each enumerator generated from it runs the plan independently:
//
//	NotStarted -> Generating -> Executing -> Streaming -> Exhausted
//	                                   \          \
//	                                    +-> Faulted | Canceled
//
// The first advance expands membership tests over the current parameter
// snapshot, generates query text once, and hands it to the driver. Every
// following advance pulls one document from the cursor and shapes it.
//
// Enumerator is the blocking form. AsyncEnumerator takes a context on each
// advance and checks it before every driver round trip; All and ToList are
// built on it.
//
// # Errors
//
// Cancellation is reported as *CanceledError (which matches
// context.Canceled under errors.Is) and moves the enumerator to Canceled.
// Every other failure is returned unchanged and moves it to Faulted. Both
// states are terminal. Overlapping advances on one Context fail with
// *ReentrancyError unless thread-safety checks are disabled.
//
// The read path never retries.
//
// # Diagnostics
//
// Each enumeration opens one span ("docql.query") on the configured
// tracer and records the docql.query.executions, docql.query.failures and
// docql.query.documents instruments on the configured meter. Both default
// to the global otel providers.
package query
