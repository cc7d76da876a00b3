// Package process owns the Process-side call dispatcher.
//
// Ownership boundary:
// - handler table and call-frame stack for this side
// - InvokeRemote / ReturnToCaller and the reentrant receive loop
// - remote-failure propagation with originating call-site context
package process
