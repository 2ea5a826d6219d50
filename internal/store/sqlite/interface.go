package sqlite

import "github.com/krasmussen37/ess/internal/store"

// Compile-time interface compliance check.
var _ store.Store = (*DB)(nil)
