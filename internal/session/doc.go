// Package session owns per-session state shared by both dispatchers.
//
// Ownership boundary:
// - engine mark registry (variant and capability lookup)
// - identity handshake
// - status machine and lifecycle (open at handshake, close at end)
package session
