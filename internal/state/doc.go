// Package state provides the report record store and a filesystem-backed
// document store.
package state

import "github.com/user/kernel6/internal/types"

// Compile-time interface compliance checks.
var _ types.DocumentStore = (*FileStore)(nil)
