// Package ids generates the identifiers used for transient records.
package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

func newULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Session returns a new session identifier.
func Session() string {
	return "sess_" + strings.ToLower(newULID())
}

// Validation returns a new validation identifier.
func Validation() string {
	return "val_" + strings.ToLower(newULID())
}

// Batch returns a new batch identifier.
func Batch() string {
	return "batch_" + strings.ToLower(newULID())
}
