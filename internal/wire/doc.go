// Package wire owns the byte channels and the line-level wire contract.
//
// Ownership boundary:
// - channel pair (line read/write, process-side read timeout)
// - line kinds (invoke/return/error) and argument serialization
// - delimiter-framed block transfer
// - back-channel transport negotiation
package wire
