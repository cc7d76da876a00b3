// Package token owns the symbolic token model and its wire codec.
//
// Ownership boundary:
// - catcode and token primitives
// - token-list encode/decode (single printable line, caret escaping)
// - engine byte representation (unicode vs 8-bit)
package token
