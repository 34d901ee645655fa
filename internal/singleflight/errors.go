package singleflight

import "errors"

// ErrAbandoned is returned to every caller when the shared call panicked
// before producing a result.
var ErrAbandoned = errors.New("singleflight: owning call panicked")
