// Package catalog holds the value types exchanged between the source catalog,
// the destination catalog, the matcher, and the asset locator.
//
// Entities carry an opaque identifier that only has meaning inside the system
// that produced it. Nothing in this package talks to a server; producers live
// under internal/services and consumers under internal/matcher and
// internal/assets.
package catalog
