// Package tokenstore holds the single gateway credential for the lifetime of
// the process.
//
// The store is one mutex-guarded slot: setting a token replaces the previous
// value and its metadata wholesale, and clearing returns the store to the
// empty state. Nothing is persisted; a restart always begins unauthenticated.
// Staleness is not tracked here - the gateway rejecting a request is the only
// signal that a stored token has expired.
package tokenstore
