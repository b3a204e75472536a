// Package transformer derives new dataset columns from reference data.
package transformer

import (
	"fmt"
	"strings"
)

// Rates is an ordered, read-only mapping from a short code (a currency
// code) to a multiplier. Key order is the order the entries were loaded in.
type Rates struct {
	keys []string
	vals map[string]float64
}

// NewRates builds Rates from parallel slices. Keys are trimmed; empty or
// duplicate keys are rejected.
func NewRates(keys []string, values []float64) (*Rates, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("rates: %d keys but %d values", len(keys), len(values))
	}
	r := &Rates{
		keys: make([]string, 0, len(keys)),
		vals: make(map[string]float64, len(keys)),
	}
	for i, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, fmt.Errorf("rates: empty key at position %d", i)
		}
		if _, dup := r.vals[k]; dup {
			return nil, fmt.Errorf("rates: duplicate key %q", k)
		}
		r.keys = append(r.keys, k)
		r.vals[k] = values[i]
	}
	return r, nil
}

// Keys returns the keys in load order. The slice is a copy.
func (r *Rates) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Rate returns the multiplier for key.
func (r *Rates) Rate(key string) (float64, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// Len returns the number of entries.
func (r *Rates) Len() int { return len(r.keys) }
