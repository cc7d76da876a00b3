// Package engine owns the Engine-side call dispatcher.
//
// The engine peer is cooperative and single-threaded: it has no event
// loop and cannot be called asynchronously. Every point at which it may
// react to the Process is an explicit RunOneTriggeredCall, threaded into
// the engine-side program like a manually written continuation.
//
// Ownership boundary:
// - triggered-call primitive and listen loop
// - nested calls back into the Process
// - engine-side return and fatal-error reporting
package engine
