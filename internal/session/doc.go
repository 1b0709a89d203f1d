// Package session turns invocation requests into invocation results.
//
// A [Dispatcher] takes the raw request fields of one session, validates
// them, resolves the execution context of the requested build through the
// context cache and runs its entry point with the [invoke.Invoker]. Every
// session moves through the states
//
//	Received -> Resolving -> Invoking -> Completed | Failed
//
// and always ends with a [Result], whatever went wrong on the way. Malformed
// requests, unresolvable classpaths, missing entry points, failing entry
// points, cancellation and defects in the dispatcher itself are all reported
// through the result's exit code, stderr and [Kind]; none of them can stop
// the dispatcher from serving the next session.
package session
