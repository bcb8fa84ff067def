// Package matcher locates the destination counterpart of a source entity.
//
// Matching is a keyword search on a canonical title followed by "first result
// wins". There is no scoring or disambiguation, so a returned counterpart is a
// best guess that callers should treat as probabilistic.
package matcher
