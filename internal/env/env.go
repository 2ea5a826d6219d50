// Package env takes a single, mutex-guarded snapshot of the process
// environment for a sync run to read credentials from. Connectors
// read through a Snapshot instead of calling os.Getenv directly so that a
// sync run sees one consistent view even if something else in the process
// mutates the environment mid-run.
package env

import (
	"os"
	"strings"
	"sync"
)

// Snapshot is a read-only, point-in-time copy of os.Environ().
type Snapshot struct {
	mu     sync.Mutex
	values map[string]string
}

// Capture copies the current process environment into a Snapshot.
func Capture() *Snapshot {
	s := &Snapshot{values: map[string]string{}}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			s.values[kv[:i]] = kv[i+1:]
		}
	}
	return s
}

// FromMap builds a Snapshot directly from values, for tests that need to
// control credential lookups without mutating the real environment.
func FromMap(values map[string]string) *Snapshot {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Snapshot{values: copied}
}

// Get returns the trimmed value of key, or "" if it was unset or blank
// at capture time.
func (s *Snapshot) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(s.values[key])
}
